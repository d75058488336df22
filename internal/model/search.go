package model

import "time"

// MetricConfig toggles a metric and sets its relative weight.
type MetricConfig struct {
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"`
}

// FilterCriteria holds the optional hard constraints of a search.
type FilterCriteria struct {
	SubscriberMin        *int64   `json:"subscriber_min,omitempty"`
	SubscriberMax        *int64   `json:"subscriber_max,omitempty"`
	AvgVideoLengthMin    *int     `json:"avg_video_length_min,omitempty"` // seconds
	GrowthRateMin        *float64 `json:"growth_rate_min,omitempty"`      // percent
	UploadsLast90DaysMin *int     `json:"uploads_last_90_days_min,omitempty"`
	TopicRelevanceMin    *float64 `json:"topic_relevance_min,omitempty"` // 0-1
}

// SearchRequest configures a ranking pass.
type SearchRequest struct {
	TopicQuery    string                    `json:"topic_query"`
	TopicKeywords []string                  `json:"topic_keywords"`
	Metrics       map[MetricID]MetricConfig `json:"metrics"`
	Filters       FilterCriteria            `json:"filters"`
	Limit         int                       `json:"limit"`
	Offset        int                       `json:"offset"`
}

// Pagination bounds for search and listing.
const (
	DefaultLimit       = 20
	MaxLimit           = 100
	MinTopicLen        = 3
	MaxTopicLen        = 500
	MaxDiscover        = 200
	DefaultDiscoverMax = 50
)

// DefaultMetricConfigs returns the out-of-the-box weights.
func DefaultMetricConfigs() map[MetricID]MetricConfig {
	return map[MetricID]MetricConfig{
		MetricCredibility:    {Enabled: true, Weight: 0.2},
		MetricTopicAuthority: {Enabled: true, Weight: 0.3},
		MetricCommunication:  {Enabled: true, Weight: 0.2},
		MetricFreshness:      {Enabled: true, Weight: 0.15},
		MetricGrowth:         {Enabled: true, Weight: 0.15},
	}
}

// VideoSummary is a compact video reference shown on cards.
type VideoSummary struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Views        int64  `json:"views"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CreatorCard is one ranked result.
type CreatorCard struct {
	ID                int64                `json:"id"`
	ChannelID         string               `json:"channel_id"`
	ChannelName       string               `json:"channel_name"`
	ThumbnailURL      string               `json:"thumbnail_url,omitempty"`
	Subscribers       int64                `json:"total_subscribers"`
	Views             int64                `json:"total_views"`
	OverallScore      float64              `json:"overall_score"`
	Subscores         map[MetricID]float64 `json:"subscores"`
	WhyExpert         []string             `json:"why_expert"`
	TopicMatchSummary string               `json:"topic_match_summary"`
	TopVideos         []VideoSummary       `json:"top_videos"`
	RelevantContent   []RelevantContent    `json:"relevant_content"`
	SuggestedTopics   []string             `json:"suggested_topics"`
	GrowthTrend       string               `json:"growth_trend"`
	ExternalLinks     []string             `json:"external_links"`
	ChannelURL        string               `json:"channel_url"`
}

// SearchResponse is the result of a ranking pass.
type SearchResponse struct {
	SearchID         string         `json:"search_id"`
	Query            string         `json:"query"`
	TotalResults     int            `json:"total_results"`
	FilteredCount    int            `json:"filtered_count"`
	Creators         []CreatorCard  `json:"creators"`
	MetricsUsed      []MetricID     `json:"metrics_used"`
	FiltersApplied   map[string]any `json:"filters_applied"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
}

// ProgressEvent reports a stage transition of a ranking pass.
type ProgressEvent struct {
	Status  string    `json:"status"`
	Step    string    `json:"step"`
	Details string    `json:"details"`
	At      time.Time `json:"at"`
}

// Progress statuses.
const (
	StatusIdle      = "idle"
	StatusSearching = "searching"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// SearchLog is a persisted record of a completed search.
type SearchLog struct {
	SearchID       string
	Query          string
	TopicEmbedding []float32
	Filters        FilterCriteria
	Weights        map[MetricID]MetricConfig
	ResultsCount   int
}

// DiscoveredCreator summarizes a creator added by discovery.
type DiscoveredCreator struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Subscribers int64  `json:"subscribers"`
}

// CreatorDetail is the detail view with optional scoring.
type CreatorDetail struct {
	*CreatorSnapshot
	Scoring     *ScoringResult `json:"scoring,omitempty"`
	Explanation *Explanation   `json:"explanation,omitempty"`
}
