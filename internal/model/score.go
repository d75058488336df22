package model

// MetricID identifies a registered metric module.
type MetricID string

const (
	MetricCredibility    MetricID = "credibility"
	MetricTopicAuthority MetricID = "topic_authority"
	MetricCommunication  MetricID = "communication"
	MetricFreshness      MetricID = "freshness"
	MetricGrowth         MetricID = "growth"
)

// MetricResult is the output of a single metric module.
type MetricResult struct {
	Score     float64        `json:"score"`
	Available bool           `json:"available"`
	Factors   []string       `json:"factors"`
	RawData   map[string]any `json:"raw_data,omitempty"`
}

// NewMetricResult builds a result with the score clamped to [0,1].
func NewMetricResult(score float64, available bool, factors []string, raw map[string]any) MetricResult {
	if raw == nil {
		raw = map[string]any{}
	}
	if factors == nil {
		factors = []string{}
	}
	return MetricResult{
		Score:     Clamp01(score),
		Available: available,
		Factors:   factors,
		RawData:   raw,
	}
}

// Unavailable returns a zero-score result flagged as unavailable.
func Unavailable(factor string) MetricResult {
	return NewMetricResult(0, false, []string{factor}, nil)
}

// Clamp01 restricts v to the closed unit interval. NaN maps to 0.
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ScoringResult is the aggregated outcome for one creator.
type ScoringResult struct {
	OverallScore   float64                   `json:"overall_score"`
	MetricScores   map[MetricID]MetricResult `json:"metric_scores"`
	WeightsApplied map[MetricID]float64      `json:"weights"`
	Factors        []string                  `json:"factors"`
}

// Explanation is the human-facing rationale for a ranked creator.
type Explanation struct {
	Bullets         []string          `json:"bullets"`
	RelevantContent []RelevantContent `json:"relevant_content"`
	SuggestedTopics []string          `json:"suggested_topics"`
}

// RelevantContent points at a video or external resource backing the rationale.
type RelevantContent struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Relevance string `json:"relevance"`
	Views     *int64 `json:"views,omitempty"`
}
