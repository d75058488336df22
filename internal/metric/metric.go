// Package metric implements the creator suitability signals. Each module scores one
// dimension in [0,1] and reports whether it had enough data to do so.
package metric

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// ErrUnknownMetric is returned when a caller asks for a metric that was never registered.
var ErrUnknownMetric = errors.New("unknown metric")

// TopicContext carries the per-request inputs shared by all metrics of a pass.
type TopicContext struct {
	Now            time.Time
	TopicEmbedding []float32
	Keywords       []string
}

// Metric is a single scoring module. Callers check Available before Compute, and
// Compute still returns an unavailable result when the data is insufficient.
type Metric interface {
	ID() model.MetricID
	Name() string
	Description() string
	Available(c *model.CreatorSnapshot) bool
	Compute(ctx context.Context, c *model.CreatorSnapshot, tc TopicContext) model.MetricResult
}

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ContentCache stores aggregate content embeddings per creator.
type ContentCache interface {
	Get(key string) ([]float32, bool)
	Add(key string, v []float32)
}

// Registry maps metric IDs to implementations and keeps registration order.
type Registry struct {
	metrics map[model.MetricID]Metric
	order   []model.MetricID
}

// NewRegistry registers the given metrics in order. Later duplicates replace earlier ones.
func NewRegistry(ms ...Metric) *Registry {
	r := &Registry{metrics: make(map[model.MetricID]Metric, len(ms))}
	for _, m := range ms {
		if _, exists := r.metrics[m.ID()]; !exists {
			r.order = append(r.order, m.ID())
		}
		r.metrics[m.ID()] = m
	}
	return r
}

// NewDefaultRegistry wires the five built-in modules.
func NewDefaultRegistry(embedder Embedder, cache ContentCache) *Registry {
	return NewRegistry(
		NewCredibility(),
		NewTopicAuthority(embedder, cache),
		NewCommunication(),
		NewFreshness(),
		NewGrowth(),
	)
}

// Get returns the metric for id or ErrUnknownMetric.
func (r *Registry) Get(id model.MetricID) (Metric, error) {
	m, ok := r.metrics[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, id)
	}
	return m, nil
}

// IDs returns the registered metric IDs in canonical order.
func (r *Registry) IDs() []model.MetricID {
	out := make([]model.MetricID, len(r.order))
	copy(out, r.order)
	return out
}

// Ordered returns the IDs present in configs, registered ones first in canonical
// order followed by unknown ones sorted by name.
func (r *Registry) Ordered(configs map[model.MetricID]model.MetricConfig) []model.MetricID {
	ids := make([]model.MetricID, 0, len(configs))
	for _, id := range r.order {
		if _, ok := configs[id]; ok {
			ids = append(ids, id)
		}
	}
	var unknown []model.MetricID
	for id := range configs {
		if _, ok := r.metrics[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(ids, unknown...)
}

// daysBetween returns whole days elapsed from t to now, floored.
func daysBetween(now, t time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

func dated(videos []model.VideoSnapshot) []time.Time {
	var out []time.Time
	for _, v := range videos {
		if v.PublishedAt != nil {
			out = append(out, *v.PublishedAt)
		}
	}
	return out
}

func nowOr(tc TopicContext) time.Time {
	if tc.Now.IsZero() {
		return time.Now().UTC()
	}
	return tc.Now
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdev matches the n-1 estimator.
func sampleStdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
