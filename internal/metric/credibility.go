package metric

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// credibilityDomains is checked in order; the first substring match wins per link.
var credibilityDomains = []string{
	"github.com",
	"gitlab.com",
	"arxiv.org",
	"scholar.google",
	"researchgate.net",
	"linkedin.com",
	"twitter.com",
	"x.com",
	"medium.com",
	"substack.com",
	"dev.to",
	"stackoverflow.com",
	"huggingface.co",
	"kaggle.com",
}

var highValueDomains = map[string]bool{
	"github.com":     true,
	"gitlab.com":     true,
	"arxiv.org":      true,
	"huggingface.co": true,
	"kaggle.com":     true,
}

// Credibility scores channel age, content depth, upload regularity and external presence.
type Credibility struct{}

func NewCredibility() *Credibility { return &Credibility{} }

func (m *Credibility) ID() model.MetricID { return model.MetricCredibility }
func (m *Credibility) Name() string       { return "Credibility" }
func (m *Credibility) Description() string {
	return "Channel age, content depth, upload consistency, external validation"
}

func (m *Credibility) Available(c *model.CreatorSnapshot) bool {
	return c != nil && c.CreatedAt != nil && len(c.Videos) > 0
}

func (m *Credibility) Compute(_ context.Context, c *model.CreatorSnapshot, tc TopicContext) model.MetricResult {
	if !m.Available(c) {
		return model.Unavailable("Insufficient data for credibility calculation")
	}
	now := nowOr(tc)

	ageScore, ageFactor := channelAgeScore(*c.CreatedAt, now)
	lengthScore, lengthFactor := videoLengthScore(c.Videos)
	consistencyScore, consistencyFactor := uploadConsistencyScore(c.Videos, now)
	linksScore, linksFactor := externalLinksScore(c.ExternalLinks)

	total := 0.25*ageScore + 0.25*lengthScore + 0.25*consistencyScore + 0.25*linksScore

	return model.NewMetricResult(total, true,
		[]string{ageFactor, lengthFactor, consistencyFactor, linksFactor},
		map[string]any{
			"channel_age_score":  ageScore,
			"video_length_score": lengthScore,
			"consistency_score":  consistencyScore,
			"links_score":        linksScore,
		})
}

// channelAgeScore reaches 1.0 at three years.
func channelAgeScore(created, now time.Time) (float64, string) {
	days := daysBetween(now, created)
	years := float64(days) / 365
	score := math.Min(1, years/3)

	switch {
	case years >= 3:
		return score, fmt.Sprintf("Established channel (%.1f years)", years)
	case years >= 1:
		return score, fmt.Sprintf("Developing channel (%.1f years)", years)
	default:
		return score, fmt.Sprintf("Newer channel (%d days)", days)
	}
}

// videoLengthScore reaches 1.0 at a 15 minute median over videos longer than a minute.
func videoLengthScore(videos []model.VideoSnapshot) (float64, string) {
	if len(videos) == 0 {
		return 0, "No videos available"
	}
	var durations []float64
	for _, v := range videos {
		if v.DurationSeconds > 60 {
			durations = append(durations, float64(v.DurationSeconds))
		}
	}
	if len(durations) == 0 {
		return 0, "No substantial videos found"
	}

	minutes := median(durations) / 60
	score := math.Min(1, minutes/15)

	switch {
	case minutes >= 15:
		return score, fmt.Sprintf("In-depth content (median %.0f min)", minutes)
	case minutes >= 8:
		return score, fmt.Sprintf("Moderate depth (median %.0f min)", minutes)
	default:
		return score, fmt.Sprintf("Shorter content (median %.0f min)", minutes)
	}
}

func uploadConsistencyScore(videos []model.VideoSnapshot, now time.Time) (float64, string) {
	if len(videos) < 3 {
		return 0.3, "Too few videos to assess consistency"
	}

	yearAgo := now.AddDate(0, 0, -365)
	var recent []time.Time
	for _, t := range dated(videos) {
		if t.After(yearAgo) {
			recent = append(recent, t)
		}
	}
	if len(recent) < 2 {
		return 0.2, "Infrequent uploads in the past year"
	}

	sort.Slice(recent, func(i, j int) bool { return recent[i].Before(recent[j]) })
	var total int
	for i := 1; i < len(recent); i++ {
		total += daysBetween(recent[i], recent[i-1])
	}
	avgGap := float64(total) / float64(len(recent)-1)

	switch {
	case avgGap <= 7:
		return 1.0, fmt.Sprintf("Very consistent (avg %.0f days between uploads)", avgGap)
	case avgGap <= 14:
		return 0.85, "Consistent bi-weekly uploads"
	case avgGap <= 30:
		return 0.6, "Monthly upload schedule"
	case avgGap <= 60:
		return 0.4, "Bi-monthly uploads"
	default:
		return 0.2, fmt.Sprintf("Infrequent uploads (avg %.0f days apart)", avgGap)
	}
}

// externalLinksScore rewards links to code hosting, preprint and ML community sites.
// A creator with no links at all gets a small floor instead of zero.
func externalLinksScore(links []string) (float64, string) {
	if len(links) == 0 {
		return 0.3, "No external links found"
	}

	unique := make(map[string]bool)
	for _, link := range links {
		lower := strings.ToLower(link)
		for _, domain := range credibilityDomains {
			if strings.Contains(lower, domain) {
				unique[domain] = true
				break
			}
		}
	}

	var highValue []string
	for d := range unique {
		if highValueDomains[d] {
			highValue = append(highValue, d)
		}
	}
	sort.Strings(highValue)

	base := math.Min(0.5, 0.15*float64(len(unique)))
	bonus := math.Min(0.5, 0.2*float64(len(highValue)))
	score := math.Min(1, base+bonus)

	switch {
	case len(highValue) > 0:
		return score, fmt.Sprintf("Strong external presence (%s)", strings.Join(highValue, ", "))
	case len(unique) > 0:
		return score, fmt.Sprintf("Active online presence (%d platforms)", len(unique))
	default:
		return score, "Limited external validation"
	}
}
