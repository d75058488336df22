package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

const (
	maxRelevantVideos = 3
	maxRelevantItems  = 5
	maxSuggested      = 4
	promptTitles      = 5
	fallbackTitles    = 10

	suggestMaxTokens   = 200
	suggestTemperature = 0.7
)

// Generator produces free text from a prompt. Implementations may fail; callers
// fall back to deterministic output.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Explainer turns scoring results into rationale bullets, relevant content and
// suggested consultation topics.
type Explainer struct {
	gen Generator
	now func() time.Time
}

// NewExplainer creates an Explainer. gen may be nil, in which case suggested topics
// always come from the deterministic template.
func NewExplainer(gen Generator, now func() time.Time) *Explainer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Explainer{gen: gen, now: now}
}

// Explain builds the full explanation for one scored creator.
func (x *Explainer) Explain(ctx context.Context, c *model.CreatorSnapshot, res *model.ScoringResult, query string) model.Explanation {
	return model.Explanation{
		Bullets:         x.Bullets(c, res, query),
		RelevantContent: RelevantContent(c, query),
		SuggestedTopics: x.SuggestedTopics(ctx, c, query),
	}
}

// Bullets returns the audience bullet followed by one bullet per available metric.
func (x *Explainer) Bullets(c *model.CreatorSnapshot, res *model.ScoringResult, query string) []string {
	bullets := []string{
		fmt.Sprintf("Audience: %s subscribers, %s total views", formatSubscribers(c.Subscribers), formatViews(c.Views)),
	}
	if res == nil {
		return bullets
	}
	scored := func(id model.MetricID) (model.MetricResult, bool) {
		r, ok := res.MetricScores[id]
		return r, ok && r.Available
	}
	now := x.now()

	if r, ok := scored(model.MetricTopicAuthority); ok {
		pct := percent(r.Score)
		switch {
		case r.Score >= 0.7:
			bullets = append(bullets, fmt.Sprintf("Topic Match (%d%%): Strong alignment with '%s'. Multiple videos directly cover this subject.", pct, query))
		case r.Score >= 0.4:
			bullets = append(bullets, fmt.Sprintf("Topic Match (%d%%): Moderate alignment with '%s'. Some relevant content found.", pct, query))
		default:
			bullets = append(bullets, fmt.Sprintf("Topic Match (%d%%): Limited coverage of '%s'. Content touches related areas.", pct, query))
		}
	}

	if r, ok := scored(model.MetricCredibility); ok {
		pct := percent(r.Score)
		switch {
		case r.Score >= 0.7:
			reasons := credibilityReasons(c, now)
			suffix := "."
			if len(reasons) > 0 {
				suffix = " — " + strings.Join(reasons, ", ") + "."
			}
			bullets = append(bullets, fmt.Sprintf("Credibility (%d%%): Established creator%s", pct, suffix))
		case r.Score >= 0.4:
			bullets = append(bullets, fmt.Sprintf("Credibility (%d%%): Building reputation with consistent content quality.", pct))
		default:
			bullets = append(bullets, fmt.Sprintf("Credibility (%d%%): Newer creator, still establishing track record.", pct))
		}
	}

	if r, ok := scored(model.MetricFreshness); ok {
		bullets = append(bullets, freshnessBullet(c, r.Score, now))
	}

	if r, ok := scored(model.MetricGrowth); ok {
		bullets = append(bullets, growthBullet(r))
	}

	if r, ok := scored(model.MetricCommunication); ok && r.Score > 0 {
		pct := percent(r.Score)
		switch {
		case r.Score >= 0.7:
			bullets = append(bullets, fmt.Sprintf("Communication (%d%%): Clear, well-structured explanations.", pct))
		case r.Score >= 0.4:
			bullets = append(bullets, fmt.Sprintf("Communication (%d%%): Good presentation style.", pct))
		default:
			bullets = append(bullets, fmt.Sprintf("Communication (%d%%): Quality varies across content.", pct))
		}
	}

	return bullets
}

func percent(score float64) int {
	return int(score * 100)
}

func credibilityReasons(c *model.CreatorSnapshot, now time.Time) []string {
	var reasons []string
	if c.CreatedAt != nil {
		years := wholeDays(now, *c.CreatedAt) / 365
		switch {
		case years >= 5:
			reasons = append(reasons, fmt.Sprintf("%d+ years on platform", years))
		case years >= 2:
			reasons = append(reasons, fmt.Sprintf("%d years experience", years))
		}
	}
	if anyLinkContains(c.ExternalLinks, "github.com") {
		reasons = append(reasons, "has GitHub")
	}
	if anyLinkContains(c.ExternalLinks, "linkedin.com") {
		reasons = append(reasons, "verified LinkedIn")
	}
	return reasons
}

func anyLinkContains(links []string, domain string) bool {
	for _, l := range links {
		if strings.Contains(strings.ToLower(l), domain) {
			return true
		}
	}
	return false
}

func freshnessBullet(c *model.CreatorSnapshot, score float64, now time.Time) string {
	pct := percent(score)
	var latest *time.Time
	for _, v := range c.Videos {
		if v.PublishedAt != nil && (latest == nil || v.PublishedAt.After(*latest)) {
			latest = v.PublishedAt
		}
	}
	if latest == nil {
		return fmt.Sprintf("Freshness (%d%%): Activity data unavailable.", pct)
	}

	ago := humanizeAgo(wholeDays(now, *latest))
	switch {
	case score >= 0.7:
		return fmt.Sprintf("Freshness (%d%%): Very active. Last upload %s.", pct, ago)
	case score >= 0.4:
		return fmt.Sprintf("Freshness (%d%%): Moderately active. Last upload %s.", pct, ago)
	default:
		return fmt.Sprintf("Freshness (%d%%): Infrequent uploads. Last post %s.", pct, ago)
	}
}

func growthBullet(r model.MetricResult) string {
	pct := percent(r.Score)
	rate, ok := r.RawData["growth_rate"].(float64)
	if !ok {
		switch {
		case r.Score >= 0.7:
			return fmt.Sprintf("Growth (%d%%): Strong growth trajectory.", pct)
		case r.Score >= 0.4:
			return fmt.Sprintf("Growth (%d%%): Moderate audience growth.", pct)
		default:
			return fmt.Sprintf("Growth (%d%%): Limited recent growth.", pct)
		}
	}

	switch {
	case rate > 0 && r.Score >= 0.7:
		return fmt.Sprintf("Growth (%d%%): Strong trajectory with +%.1f%% subscriber increase.", pct, rate)
	case rate > 0 && r.Score >= 0.4:
		return fmt.Sprintf("Growth (%d%%): Steady at +%.1f%% subscriber increase.", pct, rate)
	case rate > 0:
		return fmt.Sprintf("Growth (%d%%): Slow growth at +%.1f%%.", pct, rate)
	case rate < 0:
		return fmt.Sprintf("Growth (%d%%): Declining, %.1f%% subscriber loss.", pct, rate)
	default:
		return fmt.Sprintf("Growth (%d%%): Stable audience, no significant change.", pct)
	}
}

// wholeDays floors the elapsed days from t to now, never negative.
func wholeDays(now, t time.Time) int {
	d := int(math.Floor(now.Sub(t).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

func humanizeAgo(days int) string {
	plural := func(n int, unit string) string {
		if n > 1 {
			return fmt.Sprintf("%d %ss ago", n, unit)
		}
		return fmt.Sprintf("%d %s ago", n, unit)
	}
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func formatSubscribers(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

func formatViews(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// groupThousands renders n with comma separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// RelevantContent picks the videos that best match the query terms, then appends
// recognized profile links from the first two external links.
func RelevantContent(c *model.CreatorSnapshot, query string) []model.RelevantContent {
	terms := strings.Fields(strings.ToLower(query))

	type scoredVideo struct {
		score float64
		video *model.VideoSnapshot
	}
	var scored []scoredVideo
	for i := range c.Videos {
		v := &c.Videos[i]
		title := strings.ToLower(v.Title)
		desc := strings.ToLower(v.Description)
		tags := strings.ToLower(strings.Join(v.Tags, " "))

		var score float64
		for _, term := range terms {
			if strings.Contains(title, term) {
				score += 3
			}
			if strings.Contains(desc, term) {
				score += 1
			}
			if strings.Contains(tags, term) {
				score += 2
			}
		}
		score += math.Min(2, float64(v.Views)/100000)
		if score > 0 {
			scored = append(scored, scoredVideo{score: score, video: v})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxRelevantVideos {
		scored = scored[:maxRelevantVideos]
	}

	out := make([]model.RelevantContent, 0, maxRelevantItems)
	for _, s := range scored {
		views := s.video.Views
		out = append(out, model.RelevantContent{
			Title:     s.video.Title,
			URL:       "https://youtube.com/watch?v=" + s.video.VideoID,
			Relevance: describeRelevance(views),
			Views:     &views,
		})
	}

	links := c.ExternalLinks
	if len(links) > 2 {
		links = links[:2]
	}
	for _, link := range links {
		switch {
		case strings.Contains(link, "github.com"):
			out = append(out, model.RelevantContent{Title: "GitHub Profile", URL: link, Relevance: "Open source work and code examples"})
		case strings.Contains(link, "huggingface.co"):
			out = append(out, model.RelevantContent{Title: "Hugging Face", URL: link, Relevance: "ML models and datasets"})
		}
	}

	if len(out) > maxRelevantItems {
		out = out[:maxRelevantItems]
	}
	return out
}

func describeRelevance(views int64) string {
	switch {
	case views >= 100000:
		return fmt.Sprintf("Popular video on related topic (%s views)", groupThousands(views))
	case views >= 10000:
		return fmt.Sprintf("Well-received content (%s views)", groupThousands(views))
	default:
		return "Relevant to your search topic"
	}
}

// SuggestedTopics asks the generator for consultation topics and falls back to a
// fixed template when it is missing, fails or returns nothing usable.
func (x *Explainer) SuggestedTopics(ctx context.Context, c *model.CreatorSnapshot, query string) []string {
	if x.gen == nil {
		return FallbackTopics(c, query)
	}

	text, err := x.gen.Generate(ctx, suggestPrompt(c, query), suggestMaxTokens, suggestTemperature)
	if err != nil {
		log.Debug().Err(err).Str("channel_id", c.ChannelID).Msg("explain: topic generation failed, using fallback")
		return FallbackTopics(c, query)
	}
	topics := ParseTopics(text)
	if len(topics) == 0 {
		return FallbackTopics(c, query)
	}
	return topics
}

func suggestPrompt(c *model.CreatorSnapshot, query string) string {
	name := c.Name
	if name == "" {
		name = "Creator"
	}
	videos := c.Videos
	if len(videos) > promptTitles {
		videos = videos[:promptTitles]
	}
	var titles strings.Builder
	for i, v := range videos {
		if i > 0 {
			titles.WriteByte('\n')
		}
		titles.WriteString("- " + v.Title)
	}

	return fmt.Sprintf(`Based on this YouTube creator's content, suggest 3-4 specific topics
for an expert consultation call. The search topic was: "%s"

Creator: %s
Recent video titles:
%s

Generate 3-4 specific, actionable consultation topics. Be concise (under 10 words each).
Output as a simple list, one topic per line, no bullets or numbers.`, query, name, titles.String())
}

// ParseTopics splits generator output into at most four topics, dropping list markers.
func ParseTopics(text string) []string {
	var topics []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		t := strings.TrimLeft(strings.TrimSpace(line), "•-0123456789. ")
		if t == "" {
			continue
		}
		topics = append(topics, t)
		if len(topics) == maxSuggested {
			break
		}
	}
	return topics
}

// FallbackTopics is the deterministic topic template.
func FallbackTopics(c *model.CreatorSnapshot, query string) []string {
	topics := []string{
		"Deep dive into " + query,
		"Industry trends and predictions",
		"Best practices and common pitfalls",
	}

	videos := c.Videos
	if len(videos) > fallbackTitles {
		videos = videos[:fallbackTitles]
	}
	for _, v := range videos {
		for _, w := range strings.Fields(v.Title) {
			first, _ := utf8.DecodeRuneInString(w)
			if utf8.RuneCountInString(w) > 5 && unicode.IsUpper(first) {
				return append(topics, "Technical discussion on "+w)
			}
		}
	}
	return topics
}
