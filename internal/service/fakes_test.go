package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func int64Ptr(v int64) *int64       { return &v }
func intPtr(v int) *int             { return &v }
func float64Ptr(v float64) *float64 { return &v }

// stubMetric scores creators from a per-ID table. Creators missing from the table
// are unavailable.
type stubMetric struct {
	id      model.MetricID
	scores  map[int64]float64
	factors []string
	panics  bool
}

func (m *stubMetric) ID() model.MetricID { return m.id }

func (m *stubMetric) Name() string {
	s := strings.ReplaceAll(string(m.id), "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func (m *stubMetric) Description() string { return "stub" }

func (m *stubMetric) Available(c *model.CreatorSnapshot) bool {
	if m.scores == nil {
		return true
	}
	_, ok := m.scores[c.ID]
	return ok
}

func (m *stubMetric) Compute(_ context.Context, c *model.CreatorSnapshot, _ metric.TopicContext) model.MetricResult {
	if m.panics {
		panic("boom")
	}
	factors := m.factors
	if factors == nil {
		factors = []string{string(m.id) + " factor"}
	}
	return model.NewMetricResult(m.scores[c.ID], true, factors, nil)
}

// uniform returns a stub that gives every creator in ids the same score.
func uniform(id model.MetricID, score float64, ids ...int64) *stubMetric {
	scores := make(map[int64]float64, len(ids))
	for _, cid := range ids {
		scores[cid] = score
	}
	return &stubMetric{id: id, scores: scores}
}

func stubRegistry(ms ...*stubMetric) *metric.Registry {
	out := make([]metric.Metric, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return metric.NewRegistry(out...)
}

func creator(id int64, subs int64) *model.CreatorSnapshot {
	return &model.CreatorSnapshot{
		ID:          id,
		ChannelID:   "UC" + string(rune('A'+id)),
		Name:        "Creator",
		Subscribers: subs,
		Views:       subs * 100,
	}
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	vec   []float32
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeGenerator struct {
	text      string
	err       error
	prompt    string
	maxTokens int
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, maxTokens int, _ float64) (string, error) {
	g.prompt = prompt
	g.maxTokens = maxTokens
	return g.text, g.err
}

var errFake = errors.New("fake failure")
