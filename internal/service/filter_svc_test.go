package service

import (
	"testing"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

func TestFilter_SubscriberBounds(t *testing.T) {
	p := NewFilterPipeline(fixedNow)
	f := model.FilterCriteria{SubscriberMin: int64Ptr(1000), SubscriberMax: int64Ptr(5000)}

	tests := []struct {
		subs int64
		want bool
	}{
		{999, false},
		{1000, true},
		{5000, true},
		{5001, false},
	}
	for _, tt := range tests {
		if got := p.Passes(creator(1, tt.subs), f); got != tt.want {
			t.Errorf("Passes(subs=%d) = %v, want %v", tt.subs, got, tt.want)
		}
	}
}

func TestFilter_NoCriteriaKeepsEverything(t *testing.T) {
	p := NewFilterPipeline(fixedNow)
	corpus := []*model.CreatorSnapshot{creator(1, 0), creator(2, 10), creator(3, 1e9)}
	out := p.Apply(corpus, model.FilterCriteria{})
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i := range out {
		if out[i] != corpus[i] {
			t.Errorf("order changed at %d", i)
		}
	}
}

func TestAvgVideoLength_IgnoresShorts(t *testing.T) {
	c := creator(1, 10)
	c.Videos = []model.VideoSnapshot{{DurationSeconds: 30}, {DurationSeconds: 60}, {DurationSeconds: 600}, {DurationSeconds: 1200}}
	if got := AvgVideoLength(c); got != 900 {
		t.Errorf("AvgVideoLength = %.2f, want 900.00", got)
	}

	c.Videos = []model.VideoSnapshot{{DurationSeconds: 45}}
	if got := AvgVideoLength(c); got != 0 {
		t.Errorf("AvgVideoLength = %.2f, want 0.00 (shorts only)", got)
	}
}

func TestFilter_AvgVideoLengthMin(t *testing.T) {
	p := NewFilterPipeline(fixedNow)
	c := creator(1, 10)
	c.Videos = []model.VideoSnapshot{{DurationSeconds: 300}, {DurationSeconds: 900}}

	if !p.Passes(c, model.FilterCriteria{AvgVideoLengthMin: intPtr(600)}) {
		t.Error("average of 600s should pass a 600s minimum")
	}
	if p.Passes(c, model.FilterCriteria{AvgVideoLengthMin: intPtr(601)}) {
		t.Error("average of 600s should fail a 601s minimum")
	}
}

func TestSnapshotGrowthRate(t *testing.T) {
	c := creator(1, 10)
	if _, ok := SnapshotGrowthRate(c); ok {
		t.Error("no snapshots should not yield a rate")
	}

	// Out of order on purpose; oldest is 1000, latest 1200.
	c.Snapshots = []model.MetricsSnapshot{
		{Date: testNow, Subscribers: 1200},
		{Date: testNow.AddDate(0, 0, -60), Subscribers: 1000},
		{Date: testNow.AddDate(0, 0, -30), Subscribers: 1100},
	}
	rate, ok := SnapshotGrowthRate(c)
	if !ok || !almostEqual(rate, 20, 1e-9) {
		t.Errorf("rate = %.2f (ok=%v), want 20.00", rate, ok)
	}

	p := NewFilterPipeline(fixedNow)
	if !p.Passes(c, model.FilterCriteria{GrowthRateMin: float64Ptr(20)}) {
		t.Error("growth of 20 percent should pass a minimum of 20")
	}
	if p.Passes(c, model.FilterCriteria{GrowthRateMin: float64Ptr(25)}) {
		t.Error("growth of 20 percent should fail a minimum of 25")
	}
	if p.Passes(creator(2, 10), model.FilterCriteria{GrowthRateMin: float64Ptr(0)}) {
		t.Error("creator without history should fail any growth minimum")
	}
}

func TestRecentUploads_Window(t *testing.T) {
	c := creator(1, 10)
	c.Videos = []model.VideoSnapshot{
		{PublishedAt: daysAgo(1)},
		{PublishedAt: daysAgo(89)},
		{PublishedAt: daysAgo(90)}, // exactly on the cutoff is outside
		{PublishedAt: daysAgo(200)},
		{},
	}
	if got := RecentUploads(c, testNow, 90); got != 2 {
		t.Errorf("RecentUploads = %d, want 2", got)
	}

	p := NewFilterPipeline(fixedNow)
	if !p.Passes(c, model.FilterCriteria{UploadsLast90DaysMin: intPtr(2)}) {
		t.Error("2 uploads should pass a minimum of 2")
	}
	if p.Passes(c, model.FilterCriteria{UploadsLast90DaysMin: intPtr(3)}) {
		t.Error("2 uploads should fail a minimum of 3")
	}
}

func TestPassesTopicRelevance(t *testing.T) {
	atHalf := model.FilterCriteria{TopicRelevanceMin: float64Ptr(0.5)}
	scored := func(score float64, available bool) *model.ScoringResult {
		return &model.ScoringResult{MetricScores: map[model.MetricID]model.MetricResult{
			model.MetricTopicAuthority: {Score: score, Available: available},
		}}
	}

	tests := []struct {
		name string
		res  *model.ScoringResult
		f    model.FilterCriteria
		want bool
	}{
		{"no filter", nil, model.FilterCriteria{}, true},
		{"above", scored(0.6, true), atHalf, true},
		{"equal", scored(0.5, true), atHalf, true},
		{"below", scored(0.49, true), atHalf, false},
		{"unavailable counts as zero", scored(0.9, false), atHalf, false},
		{"not scored", &model.ScoringResult{}, atHalf, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PassesTopicRelevance(tt.res, tt.f); got != tt.want {
				t.Errorf("PassesTopicRelevance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterSummary(t *testing.T) {
	got := FilterSummary(model.FilterCriteria{
		SubscriberMin:     int64Ptr(1000),
		AvgVideoLengthMin: intPtr(600),
		GrowthRateMin:     float64Ptr(12.5),
	})
	if got["subscriber_min"] != int64(1000) {
		t.Errorf("subscriber_min = %v", got["subscriber_min"])
	}
	if got["avg_video_length_min"] != "10 min" {
		t.Errorf("avg_video_length_min = %v, want 10 min", got["avg_video_length_min"])
	}
	if got["growth_rate_min"] != "12.5%" {
		t.Errorf("growth_rate_min = %v, want 12.5%%", got["growth_rate_min"])
	}
	if _, ok := got["topic_relevance_min"]; ok {
		t.Error("unset filters should be omitted")
	}

	if len(FilterSummary(model.FilterCriteria{})) != 0 {
		t.Error("empty criteria should give an empty summary")
	}
}

func TestNewFilterPipeline_DefaultClock(t *testing.T) {
	p := NewFilterPipeline(nil)
	if d := time.Since(p.now()); d < 0 || d > time.Minute {
		t.Errorf("default clock off by %v", d)
	}
}
