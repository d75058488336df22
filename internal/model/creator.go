package model

import (
	"strings"
	"time"
)

// CreatorSnapshot is a read-only view of a creator assembled for one ranking pass.
type CreatorSnapshot struct {
	ID            int64             `json:"id"`
	ChannelID     string            `json:"channel_id"`
	Name          string            `json:"channel_name"`
	Description   string            `json:"channel_description,omitempty"`
	ThumbnailURL  string            `json:"thumbnail_url,omitempty"`
	Country       string            `json:"country,omitempty"`
	Subscribers   int64             `json:"total_subscribers"`
	Views         int64             `json:"total_views"`
	VideoCount    int               `json:"total_videos"`
	CreatedAt     *time.Time        `json:"channel_created_date,omitempty"`
	ExternalLinks []string          `json:"external_links"`
	Videos        []VideoSnapshot   `json:"videos"`
	Snapshots     []MetricsSnapshot `json:"metrics_snapshots"`
	LastFetchedAt *time.Time        `json:"last_fetched_at,omitempty"`
}

// VideoSnapshot is one uploaded video of a creator.
type VideoSnapshot struct {
	VideoID         string              `json:"video_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description,omitempty"`
	ThumbnailURL    string              `json:"thumbnail_url,omitempty"`
	PublishedAt     *time.Time          `json:"published_at,omitempty"`
	DurationSeconds int                 `json:"duration_seconds"`
	Views           int64               `json:"views"`
	Likes           int64               `json:"likes"`
	Comments        int64               `json:"comments"`
	HasCaptions     bool                `json:"has_captions"`
	Tags            []string            `json:"tags"`
	Transcript      *TranscriptSnapshot `json:"transcript,omitempty"`
}

// TranscriptSnapshot holds caption text for a video. Embedding is nil until one
// has been computed for the text.
type TranscriptSnapshot struct {
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Embedding []float32 `json:"-"`
}

// MetricsSnapshot is a dated record of a creator's public counters.
type MetricsSnapshot struct {
	Date        time.Time `json:"date"`
	Subscribers int64     `json:"subscriber_count"`
	Views       int64     `json:"view_count"`
	VideoCount  int       `json:"video_count"`
}

// HasTranscript reports whether the video carries non-empty transcript text.
func (v *VideoSnapshot) HasTranscript() bool {
	return v.Transcript != nil && strings.TrimSpace(v.Transcript.Text) != ""
}

// CreatorSummary is the row shape used by the creator listing.
type CreatorSummary struct {
	ID            int64      `json:"id"`
	ChannelID     string     `json:"channel_id"`
	Name          string     `json:"channel_name"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	Subscribers   int64      `json:"total_subscribers"`
	Views         int64      `json:"total_views"`
	OverallScore  *float64   `json:"overall_score"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
}

// ChannelDetails is what a corpus provider reports for a single channel.
type ChannelDetails struct {
	ChannelID     string
	Name          string
	Description   string
	ThumbnailURL  string
	Country       string
	Subscribers   int64
	Views         int64
	VideoCount    int
	CreatedAt     *time.Time
	ExternalLinks []string
}

// ChannelHit is a search result from a corpus provider.
type ChannelHit struct {
	ChannelID    string
	Name         string
	Description  string
	ThumbnailURL string
}

// CreatorUpsert is one write of provider data: the channel, its latest videos and
// the day's counters.
type CreatorUpsert struct {
	Details   ChannelDetails
	Videos    []VideoSnapshot
	Snapshot  MetricsSnapshot
	FetchedAt time.Time
}

// Creator listing sort keys.
const (
	SortOverallScore = "overall_score"
	SortSubscribers  = "total_subscribers"
	SortCreatedAt    = "created_at"
)

// CreatorPage is one page of the creator listing.
type CreatorPage struct {
	Creators []CreatorSummary `json:"creators"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}
