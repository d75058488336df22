package metric

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

const (
	recentWindowDays = 90
	priorWindowDays  = 180
)

// Freshness measures how current and actively updated a creator's uploads are.
type Freshness struct{}

func NewFreshness() *Freshness { return &Freshness{} }

func (m *Freshness) ID() model.MetricID  { return model.MetricFreshness }
func (m *Freshness) Name() string        { return "Freshness" }
func (m *Freshness) Description() string { return "Recency of content and active publishing" }

func (m *Freshness) Available(c *model.CreatorSnapshot) bool {
	if c == nil {
		return false
	}
	for _, v := range c.Videos {
		if v.PublishedAt != nil {
			return true
		}
	}
	return false
}

func (m *Freshness) Compute(_ context.Context, c *model.CreatorSnapshot, tc TopicContext) model.MetricResult {
	if !m.Available(c) {
		return model.Unavailable("No video publish dates available")
	}
	now := nowOr(tc)
	dates := dated(c.Videos)

	recentScore, recentFactor := recentActivityScore(dates, now)
	recencyScore, recencyFactor := lastUploadScore(dates, now)
	momentumScore, momentumFactor := uploadMomentumScore(dates, now)

	total := 0.4*recentScore + 0.35*recencyScore + 0.25*momentumScore

	return model.NewMetricResult(total, true,
		[]string{recentFactor, recencyFactor, momentumFactor},
		map[string]any{
			"recent_activity_score": recentScore,
			"recency_score":         recencyScore,
			"momentum_score":        momentumScore,
		})
}

func recentActivityScore(dates []time.Time, now time.Time) (float64, string) {
	if len(dates) == 0 {
		return 0, "No dated videos found"
	}
	cutoff := now.AddDate(0, 0, -recentWindowDays)
	recent := 0
	for _, t := range dates {
		if t.After(cutoff) {
			recent++
		}
	}
	pct := float64(recent) / float64(len(dates))

	switch {
	case recent >= 10:
		return math.Min(1, 0.7+0.3*pct), fmt.Sprintf("Very active: %d videos in last 90 days", recent)
	case recent >= 5:
		return 0.6 + 0.3*pct, fmt.Sprintf("Active: %d videos in last 90 days", recent)
	case recent >= 2:
		return 0.4 + 0.3*pct, fmt.Sprintf("Moderately active: %d videos in last 90 days", recent)
	case recent == 1:
		return 0.3, "1 video in last 90 days"
	default:
		return 0.1, "No videos in last 90 days"
	}
}

func lastUploadScore(dates []time.Time, now time.Time) (float64, string) {
	if len(dates) == 0 {
		return 0, "Cannot determine last upload date"
	}
	latest := dates[0]
	for _, t := range dates[1:] {
		if t.After(latest) {
			latest = t
		}
	}
	days := daysBetween(now, latest)

	switch {
	case days <= 7:
		return 1.0, fmt.Sprintf("Very recent upload (%d days ago)", days)
	case days <= 14:
		return 0.9, fmt.Sprintf("Recent upload (%d days ago)", days)
	case days <= 30:
		return 0.75, "Upload within last month"
	case days <= 60:
		return 0.5, fmt.Sprintf("Last upload %d days ago", days)
	case days <= 90:
		return 0.3, fmt.Sprintf("Last upload ~%d months ago", days/30)
	default:
		return 0.1, fmt.Sprintf("Inactive for %d+ months", days/30)
	}
}

// uploadMomentumScore compares the last 90 days against the 90 days before them.
func uploadMomentumScore(dates []time.Time, now time.Time) (float64, string) {
	recentCutoff := now.AddDate(0, 0, -recentWindowDays)
	priorCutoff := now.AddDate(0, 0, -priorWindowDays)

	var recent, older int
	for _, t := range dates {
		switch {
		case t.After(recentCutoff):
			recent++
		case t.After(priorCutoff):
			older++
		}
	}

	if recent == 0 && older == 0 {
		return 0.5, "Insufficient upload history for momentum"
	}
	if older == 0 {
		return 1.0, "New or ramping up activity"
	}

	ratio := float64(recent) / float64(older)
	switch {
	case ratio > 1.5:
		return 1.0, fmt.Sprintf("Accelerating uploads (%d vs %d)", recent, older)
	case ratio > 1.0:
		return 0.8, "Increasing upload frequency"
	case ratio > 0.7:
		return 0.6, "Stable upload frequency"
	case ratio > 0.3:
		return 0.4, "Slowing upload frequency"
	default:
		return 0.2, fmt.Sprintf("Declining activity (%d vs %d)", recent, older)
	}
}
