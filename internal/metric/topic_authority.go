package metric

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

const (
	maxTopVideos     = 15
	channelDescChars = 500
	videoDescChars   = 200
	tagsPerVideo     = 5
)

// TopicAuthority measures alignment between a creator's content and the expertise topic.
type TopicAuthority struct {
	embedder Embedder
	cache    ContentCache
}

// NewTopicAuthority builds the module. embedder and cache may be nil; without an
// embedder the module falls back to keyword matching.
func NewTopicAuthority(embedder Embedder, cache ContentCache) *TopicAuthority {
	return &TopicAuthority{embedder: embedder, cache: cache}
}

func (m *TopicAuthority) ID() model.MetricID { return model.MetricTopicAuthority }
func (m *TopicAuthority) Name() string       { return "Topic Authority" }
func (m *TopicAuthority) Description() string {
	return "Alignment between content and target expertise topics"
}

func (m *TopicAuthority) Available(c *model.CreatorSnapshot) bool {
	return c != nil && len(c.Videos) > 0
}

func (m *TopicAuthority) Compute(ctx context.Context, c *model.CreatorSnapshot, tc TopicContext) model.MetricResult {
	if !m.Available(c) {
		return model.Unavailable("No video content available for topic analysis")
	}

	keywords := normalizeKeywords(tc.Keywords)
	if len(tc.TopicEmbedding) == 0 && len(keywords) == 0 {
		return model.NewMetricResult(0.5, true, []string{"No topic query provided - using neutral score"}, nil)
	}

	if len(tc.TopicEmbedding) > 0 {
		if content := m.contentEmbedding(ctx, c); content != nil && len(content) == len(tc.TopicEmbedding) {
			sim := CosineSimilarity(tc.TopicEmbedding, content)
			score := math.Min(1, math.Max(0, (sim+0.2)*1.25))
			return model.NewMetricResult(score, true,
				[]string{
					fmt.Sprintf("%s semantic match (similarity: %.2f)", similarityStrength(sim), sim),
					fmt.Sprintf("Analyzed %d videos", len(c.Videos)),
				},
				map[string]any{"similarity": sim, "videos_analyzed": len(c.Videos)})
		}
	}

	if len(keywords) > 0 {
		score, factors := keywordMatchScore(c.Videos, keywords)
		return model.NewMetricResult(score, true, factors, map[string]any{"method": "keyword_matching"})
	}

	return model.NewMetricResult(0.5, true, []string{"Unable to compute topic match - insufficient data"}, nil)
}

func similarityStrength(sim float64) string {
	switch {
	case sim >= 0.5:
		return "Strong"
	case sim >= 0.35:
		return "Good"
	case sim >= 0.2:
		return "Moderate"
	default:
		return "Weak"
	}
}

// contentEmbedding returns the cached aggregate embedding for the creator, computing it
// on a miss. Provider failures are logged and yield nil.
func (m *TopicAuthority) contentEmbedding(ctx context.Context, c *model.CreatorSnapshot) []float32 {
	key := c.ChannelID
	if m.cache != nil && key != "" {
		if v, ok := m.cache.Get(key); ok {
			return v
		}
	}
	if m.embedder == nil {
		return nil
	}

	text := ContentText(c)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("channel_id", c.ChannelID).Msg("topic-authority: content embedding failed")
		return nil
	}
	if m.cache != nil && key != "" {
		m.cache.Add(key, vec)
	}
	return vec
}

// ContentText assembles the text that represents a creator for embedding: the channel
// description followed by the most viewed videos.
func ContentText(c *model.CreatorSnapshot) string {
	var parts []string
	if c.Description != "" {
		parts = append(parts, "Channel: "+truncateRunes(c.Description, channelDescChars))
	}

	videos := append([]model.VideoSnapshot(nil), c.Videos...)
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Views > videos[j].Views })
	if len(videos) > maxTopVideos {
		videos = videos[:maxTopVideos]
	}

	for _, v := range videos {
		var b strings.Builder
		b.WriteString("Video: ")
		b.WriteString(v.Title)
		if desc := truncateRunes(v.Description, videoDescChars); desc != "" {
			b.WriteString(". ")
			b.WriteString(desc)
		}
		tags := v.Tags
		if len(tags) > tagsPerVideo {
			tags = tags[:tagsPerVideo]
		}
		if len(tags) > 0 {
			b.WriteString(". Tags: ")
			b.WriteString(strings.Join(tags, ", "))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

// CosineSimilarity returns 0 when either vector has zero norm or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// keywordMatchScore blends the share of videos mentioning any keyword (.6) with the
// share of keywords seen in at least one video (.4). keywords must be normalized.
func keywordMatchScore(videos []model.VideoSnapshot, keywords []string) (float64, []string) {
	if len(videos) == 0 || len(keywords) == 0 {
		return 0, []string{"No keywords or videos for matching"}
	}

	videoHits := make([]int, len(keywords))
	videosWithMatch := 0
	for _, v := range videos {
		content := strings.ToLower(v.Title + " " + v.Description + " " + strings.Join(v.Tags, " "))
		matched := false
		for i, k := range keywords {
			if strings.Contains(content, k) {
				videoHits[i]++
				matched = true
			}
		}
		if matched {
			videosWithMatch++
		}
	}

	found := 0
	for _, n := range videoHits {
		if n > 0 {
			found++
		}
	}

	coverage := float64(videosWithMatch) / float64(len(videos))
	keywordCoverage := float64(found) / float64(len(keywords))
	score := 0.6*coverage + 0.4*keywordCoverage

	factors := []string{
		fmt.Sprintf("%d/%d videos contain target keywords", videosWithMatch, len(videos)),
		fmt.Sprintf("%d/%d keywords found", found, len(keywords)),
	}

	idx := make([]int, len(keywords))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return videoHits[idx[a]] > videoHits[idx[b]] })
	var top []string
	for _, i := range idx {
		if len(top) == 3 || videoHits[i] == 0 {
			break
		}
		top = append(top, keywords[i])
	}
	if len(top) > 0 {
		factors = append(factors, "Top matches: "+strings.Join(top, ", "))
	}
	return score, factors
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
