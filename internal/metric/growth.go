package metric

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// growthLookbackDays is how far before the latest snapshot the comparison base is taken.
const growthLookbackDays = 90

// Growth measures subscriber trajectory and audience momentum.
type Growth struct{}

func NewGrowth() *Growth { return &Growth{} }

func (m *Growth) ID() model.MetricID  { return model.MetricGrowth }
func (m *Growth) Name() string        { return "Growth Trajectory" }
func (m *Growth) Description() string { return "Subscriber growth and audience momentum" }

func (m *Growth) Available(c *model.CreatorSnapshot) bool {
	return c != nil && (len(c.Snapshots) >= 2 || c.Subscribers > 0)
}

// Compute weights the snapshot branch .5 + .3 + .2. Without snapshot history the
// estimate and trend terms carry .6 + .2, so the total tops out at 0.8.
func (m *Growth) Compute(_ context.Context, c *model.CreatorSnapshot, _ TopicContext) model.MetricResult {
	if !m.Available(c) {
		return model.Unavailable("Insufficient data for growth analysis")
	}

	var (
		total   float64
		factors []string
		raw     = map[string]any{}
	)

	if len(c.Snapshots) >= 2 {
		snaps := sortedSnapshots(c.Snapshots)

		rateScore, rateFactor, rate := snapshotGrowthScore(snaps)
		total += 0.5 * rateScore
		factors = append(factors, rateFactor)
		raw["growth_rate"] = rate

		accelScore, accelFactor := accelerationScore(snaps)
		total += 0.3 * accelScore
		factors = append(factors, accelFactor)
	} else {
		estScore, estFactor := estimateGrowthFromVideos(c)
		total += 0.6 * estScore
		factors = append(factors, estFactor)
	}

	trendScore, trendFactor := videoPerformanceTrend(c.Videos)
	total += 0.2 * trendScore
	factors = append(factors, trendFactor)

	return model.NewMetricResult(total, true, factors, raw)
}

func sortedSnapshots(in []model.MetricsSnapshot) []model.MetricsSnapshot {
	out := append([]model.MetricsSnapshot(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SubscriberGrowthRate returns the percentage change between two counts. ok is false
// when the base is zero.
func SubscriberGrowthRate(from, to int64) (rate float64, ok bool) {
	if from == 0 {
		return 0, false
	}
	return float64(to-from) / float64(from) * 100, true
}

// snapshotGrowthScore expects snaps sorted by date with at least two entries.
func snapshotGrowthScore(snaps []model.MetricsSnapshot) (float64, string, float64) {
	latest := snaps[len(snaps)-1]
	target := latest.Date.AddDate(0, 0, -growthLookbackDays)

	base := snaps[0]
	for _, s := range snaps {
		if !s.Date.After(target) {
			base = s
		}
	}

	rate, ok := SubscriberGrowthRate(base.Subscribers, latest.Subscribers)
	if !ok {
		return 0.5, "Cannot calculate growth rate", 0
	}

	switch {
	case rate > 50:
		return 1.0, fmt.Sprintf("Exceptional growth: +%.1f%% subscribers", rate), rate
	case rate > 25:
		return 0.85, fmt.Sprintf("Strong growth: +%.1f%% subscribers", rate), rate
	case rate > 10:
		return 0.7, fmt.Sprintf("Good growth: +%.1f%% subscribers", rate), rate
	case rate > 5:
		return 0.5, fmt.Sprintf("Moderate growth: +%.1f%% subscribers", rate), rate
	case rate > 0:
		return 0.35, fmt.Sprintf("Slow growth: +%.1f%% subscribers", rate), rate
	case rate > -5:
		return 0.2, fmt.Sprintf("Flat/slight decline: %.1f%%", rate), rate
	default:
		return 0.1, fmt.Sprintf("Declining: %.1f%% subscribers", rate), rate
	}
}

// accelerationScore compares growth in the first half of the history with the second half.
func accelerationScore(snaps []model.MetricsSnapshot) (float64, string) {
	if len(snaps) < 3 {
		return 0.5, "Insufficient data for acceleration analysis"
	}

	mid := len(snaps) / 2
	older, newer := snaps[:mid], snaps[mid:]
	if older[0].Subscribers == 0 {
		return 0.5, "Cannot compute acceleration"
	}

	olderGrowth := float64(older[len(older)-1].Subscribers-older[0].Subscribers) / float64(older[0].Subscribers)
	var newerGrowth float64
	if newer[0].Subscribers > 0 {
		newerGrowth = float64(newer[len(newer)-1].Subscribers-newer[0].Subscribers) / float64(newer[0].Subscribers)
	}

	if olderGrowth == 0 {
		if newerGrowth > 0 {
			return 0.8, "Growth accelerating from flat"
		}
		return 0.5, "Stable (no growth)"
	}

	accel := (newerGrowth - olderGrowth) / math.Abs(olderGrowth)
	switch {
	case accel > 0.5:
		return 1.0, "Growth accelerating significantly"
	case accel > 0.1:
		return 0.75, "Growth accelerating"
	case accel > -0.1:
		return 0.5, "Stable growth trajectory"
	case accel > -0.5:
		return 0.3, "Growth slowing"
	default:
		return 0.15, "Growth decelerating"
	}
}

func estimateGrowthFromVideos(c *model.CreatorSnapshot) (float64, string) {
	if len(c.Videos) == 0 || c.Subscribers == 0 {
		return 0.5, "Limited data for growth estimation"
	}

	var views int64
	for _, v := range c.Videos {
		views += v.Views
	}
	avgViews := float64(views) / float64(len(c.Videos))
	ratio := avgViews / float64(c.Subscribers)

	switch {
	case ratio > 0.5:
		return 0.9, "High view-to-subscriber ratio indicates growth"
	case ratio > 0.2:
		return 0.7, "Healthy view engagement suggests steady growth"
	case ratio > 0.1:
		return 0.5, "Moderate engagement levels"
	default:
		return 0.3, "Lower view engagement"
	}
}

type datedViews struct {
	at    time.Time
	views int64
}

// videoPerformanceTrend compares average views of the newer half of uploads to the older half.
func videoPerformanceTrend(videos []model.VideoSnapshot) (float64, string) {
	if len(videos) < 4 {
		return 0.5, "Too few videos for trend analysis"
	}

	var dv []datedViews
	for _, v := range videos {
		if v.PublishedAt != nil {
			dv = append(dv, datedViews{at: *v.PublishedAt, views: v.Views})
		}
	}
	if len(dv) < 4 {
		return 0.5, "Insufficient dated videos"
	}
	sort.SliceStable(dv, func(i, j int) bool { return dv[i].at.Before(dv[j].at) })

	mid := len(dv) / 2
	var olderSum, newerSum int64
	for _, x := range dv[:mid] {
		olderSum += x.views
	}
	for _, x := range dv[mid:] {
		newerSum += x.views
	}
	olderAvg := float64(olderSum) / float64(mid)
	newerAvg := float64(newerSum) / float64(len(dv)-mid)

	if olderAvg == 0 {
		if newerAvg > 0 {
			return 0.8, "Recent videos gaining traction"
		}
		return 0.5, "Limited view data"
	}

	ratio := newerAvg / olderAvg
	switch {
	case ratio > 1.5:
		return 1.0, "Recent videos significantly outperforming"
	case ratio > 1.1:
		return 0.75, "Recent videos performing better"
	case ratio > 0.9:
		return 0.5, "Consistent video performance"
	case ratio > 0.5:
		return 0.3, "Recent videos underperforming"
	default:
		return 0.15, "Declining video performance"
	}
}
