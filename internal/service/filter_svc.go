package service

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

// FilterPipeline applies the hard constraints of a search before scoring.
type FilterPipeline struct {
	now func() time.Time
}

// NewFilterPipeline creates a pipeline that measures upload recency against now.
// A nil now uses the wall clock.
func NewFilterPipeline(now func() time.Time) *FilterPipeline {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &FilterPipeline{now: now}
}

// Apply returns the creators that pass every pre-score predicate, preserving order.
func (p *FilterPipeline) Apply(creators []*model.CreatorSnapshot, f model.FilterCriteria) []*model.CreatorSnapshot {
	out := make([]*model.CreatorSnapshot, 0, len(creators))
	for _, c := range creators {
		if p.Passes(c, f) {
			out = append(out, c)
		}
	}
	return out
}

// Passes reports whether c satisfies every enabled pre-score predicate. Topic
// relevance is checked after scoring by PassesTopicRelevance.
func (p *FilterPipeline) Passes(c *model.CreatorSnapshot, f model.FilterCriteria) bool {
	if f.SubscriberMin != nil && c.Subscribers < *f.SubscriberMin {
		return false
	}
	if f.SubscriberMax != nil && c.Subscribers > *f.SubscriberMax {
		return false
	}
	if f.AvgVideoLengthMin != nil && AvgVideoLength(c) < float64(*f.AvgVideoLengthMin) {
		return false
	}
	if f.GrowthRateMin != nil {
		rate, ok := SnapshotGrowthRate(c)
		if !ok || rate < *f.GrowthRateMin {
			return false
		}
	}
	if f.UploadsLast90DaysMin != nil && RecentUploads(c, p.now(), 90) < *f.UploadsLast90DaysMin {
		return false
	}
	return true
}

// PassesTopicRelevance checks the topic relevance minimum against a computed score.
// A creator whose topic authority was not scored or was unavailable counts as 0.
func PassesTopicRelevance(res *model.ScoringResult, f model.FilterCriteria) bool {
	if f.TopicRelevanceMin == nil {
		return true
	}
	var score float64
	if res != nil {
		if r, ok := res.MetricScores[model.MetricTopicAuthority]; ok && r.Available {
			score = r.Score
		}
	}
	return score >= *f.TopicRelevanceMin
}

// AvgVideoLength is the mean duration in seconds of videos longer than a minute.
func AvgVideoLength(c *model.CreatorSnapshot) float64 {
	var sum, n int
	for _, v := range c.Videos {
		if v.DurationSeconds > 60 {
			sum += v.DurationSeconds
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// SnapshotGrowthRate compares the oldest and latest snapshot subscriber counts.
func SnapshotGrowthRate(c *model.CreatorSnapshot) (float64, bool) {
	if len(c.Snapshots) < 2 {
		return 0, false
	}
	snaps := append([]model.MetricsSnapshot(nil), c.Snapshots...)
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Date.Before(snaps[j].Date) })
	return metric.SubscriberGrowthRate(snaps[0].Subscribers, snaps[len(snaps)-1].Subscribers)
}

// RecentUploads counts videos published within the trailing window of days.
func RecentUploads(c *model.CreatorSnapshot, now time.Time, days int) int {
	cutoff := now.AddDate(0, 0, -days)
	n := 0
	for _, v := range c.Videos {
		if v.PublishedAt != nil && v.PublishedAt.After(cutoff) {
			n++
		}
	}
	return n
}

// FilterSummary renders the active filters for display.
func FilterSummary(f model.FilterCriteria) map[string]any {
	out := map[string]any{}
	if f.SubscriberMin != nil {
		out["subscriber_min"] = *f.SubscriberMin
	}
	if f.SubscriberMax != nil {
		out["subscriber_max"] = *f.SubscriberMax
	}
	if f.AvgVideoLengthMin != nil {
		out["avg_video_length_min"] = fmt.Sprintf("%d min", *f.AvgVideoLengthMin/60)
	}
	if f.GrowthRateMin != nil {
		out["growth_rate_min"] = strconv.FormatFloat(*f.GrowthRateMin, 'f', -1, 64) + "%"
	}
	if f.UploadsLast90DaysMin != nil {
		out["uploads_last_90_days_min"] = *f.UploadsLast90DaysMin
	}
	if f.TopicRelevanceMin != nil {
		out["topic_relevance_min"] = *f.TopicRelevanceMin
	}
	return out
}
