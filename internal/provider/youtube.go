package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// ErrChannelNotFound is returned when the API knows no channel with the given ID.
var ErrChannelNotFound = errors.New("youtube: channel not found")

const (
	pageSize      = 50 // API maximum per request
	maxLinks      = 10
	defaultLang   = "en"
	youtubeAPIURL = "https://www.googleapis.com/youtube/v3"
)

// YouTubeConfig configures a YouTube Data API client.
type YouTubeConfig struct {
	APIKey            string
	BaseURL           string
	RelevanceLanguage string
	RPS               float64
	Timeout           time.Duration
}

// YouTube implements service.ChannelSource over the YouTube Data API v3.
type YouTube struct {
	cfg     YouTubeConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewYouTube(cfg YouTubeConfig) *YouTube {
	if cfg.BaseURL == "" {
		cfg.BaseURL = youtubeAPIURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RelevanceLanguage == "" {
		cfg.RelevanceLanguage = defaultLang
	}
	return &YouTube{cfg: cfg, client: newHTTPClient(cfg.Timeout), limiter: newLimiter(cfg.RPS)}
}

// Configured reports whether an API key was supplied.
func (y *YouTube) Configured() bool {
	return y.cfg.APIKey != ""
}

type thumbnails struct {
	High struct {
		URL string `json:"url"`
	} `json:"high"`
}

type searchResponse struct {
	Items []struct {
		Snippet struct {
			ChannelID   string     `json:"channelId"`
			Title       string     `json:"title"`
			Description string     `json:"description"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// SearchChannels returns channels matching query, at most 50.
func (y *YouTube) SearchChannels(ctx context.Context, query string, limit int) ([]model.ChannelHit, error) {
	if limit <= 0 || limit > pageSize {
		limit = pageSize
	}
	var out searchResponse
	err := y.get(ctx, "/search", url.Values{
		"part":              {"snippet"},
		"q":                 {query},
		"type":              {"channel"},
		"maxResults":        {strconv.Itoa(limit)},
		"relevanceLanguage": {y.cfg.RelevanceLanguage},
	}, &out)
	if err != nil {
		return nil, err
	}

	hits := make([]model.ChannelHit, 0, len(out.Items))
	for _, it := range out.Items {
		hits = append(hits, model.ChannelHit{
			ChannelID:    it.Snippet.ChannelID,
			Name:         it.Snippet.Title,
			Description:  it.Snippet.Description,
			ThumbnailURL: it.Snippet.Thumbnails.High.URL,
		})
	}
	return hits, nil
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			PublishedAt string     `json:"publishedAt"`
			Country     string     `json:"country"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			ViewCount       string `json:"viewCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
		BrandingSettings struct {
			Channel struct {
				CustomURL string `json:"customUrl"`
			} `json:"channel"`
		} `json:"brandingSettings"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ChannelDetails fetches the profile and public counters of a channel.
func (y *YouTube) ChannelDetails(ctx context.Context, channelID string) (*model.ChannelDetails, error) {
	var out channelsResponse
	err := y.get(ctx, "/channels", url.Values{
		"part": {"snippet,statistics,brandingSettings"},
		"id":   {channelID},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	it := out.Items[0]
	links := ExtractLinks(it.Snippet.Description)
	if custom := it.BrandingSettings.Channel.CustomURL; custom != "" {
		links = append(links, "https://youtube.com/"+custom)
	}

	return &model.ChannelDetails{
		ChannelID:     channelID,
		Name:          it.Snippet.Title,
		Description:   it.Snippet.Description,
		ThumbnailURL:  it.Snippet.Thumbnails.High.URL,
		Country:       it.Snippet.Country,
		Subscribers:   parseCount(it.Statistics.SubscriberCount),
		Views:         parseCount(it.Statistics.ViewCount),
		VideoCount:    int(parseCount(it.Statistics.VideoCount)),
		CreatedAt:     parseTime(it.Snippet.PublishedAt),
		ExternalLinks: links,
	}, nil
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			PublishedAt string     `json:"publishedAt"`
			Tags        []string   `json:"tags"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
			Caption  string `json:"caption"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// ChannelVideos returns up to limit of the channel's most recent uploads.
func (y *YouTube) ChannelVideos(ctx context.Context, channelID string, limit int) ([]model.VideoSnapshot, error) {
	var ch channelsResponse
	err := y.get(ctx, "/channels", url.Values{"part": {"contentDetails"}, "id": {channelID}}, &ch)
	if err != nil {
		return nil, err
	}
	if len(ch.Items) == 0 {
		return []model.VideoSnapshot{}, nil
	}
	uploads := ch.Items[0].ContentDetails.RelatedPlaylists.Uploads

	videos := []model.VideoSnapshot{}
	pageToken := ""
	for len(videos) < limit {
		params := url.Values{
			"part":       {"snippet,contentDetails"},
			"playlistId": {uploads},
			"maxResults": {strconv.Itoa(min(pageSize, limit-len(videos)))},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		var page playlistItemsResponse
		if err := y.get(ctx, "/playlistItems", params, &page); err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(page.Items))
		for _, it := range page.Items {
			ids = append(ids, it.ContentDetails.VideoID)
		}
		if len(ids) > 0 {
			batch, err := y.videoDetails(ctx, ids)
			if err != nil {
				return nil, err
			}
			videos = append(videos, batch...)
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func (y *YouTube) videoDetails(ctx context.Context, ids []string) ([]model.VideoSnapshot, error) {
	var out videosResponse
	err := y.get(ctx, "/videos", url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"id":   {strings.Join(ids, ",")},
	}, &out)
	if err != nil {
		return nil, err
	}

	videos := make([]model.VideoSnapshot, 0, len(out.Items))
	for _, it := range out.Items {
		tags := it.Snippet.Tags
		if tags == nil {
			tags = []string{}
		}
		videos = append(videos, model.VideoSnapshot{
			VideoID:         it.ID,
			Title:           it.Snippet.Title,
			Description:     it.Snippet.Description,
			ThumbnailURL:    it.Snippet.Thumbnails.High.URL,
			PublishedAt:     parseTime(it.Snippet.PublishedAt),
			DurationSeconds: ParseDuration(it.ContentDetails.Duration),
			Views:           parseCount(it.Statistics.ViewCount),
			Likes:           parseCount(it.Statistics.LikeCount),
			Comments:        parseCount(it.Statistics.CommentCount),
			HasCaptions:     it.ContentDetails.Caption == "true",
			Tags:            tags,
		})
	}
	return videos, nil
}

func (y *YouTube) get(ctx context.Context, path string, params url.Values, out any) error {
	if !y.Configured() {
		return ErrNotConfigured
	}
	params.Set("key", y.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("youtube: build request: %w", err)
	}
	return doJSON(ctx, y.client, y.limiter, "youtube", req, out)
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration converts an ISO 8601 duration such as PT1H2M3S to whole seconds.
// Malformed input yields 0.
func ParseDuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	unit := []float64{7 * 86400, 86400, 3600, 60, 1}
	var total float64
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		total += v * unit[i]
	}
	return int(total)
}

var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// profileDomains are kept even when the URL also mentions YouTube.
var profileDomains = []string{
	"github.com", "gitlab.com", "twitter.com", "x.com",
	"linkedin.com", "medium.com", "substack.com", "dev.to",
	"arxiv.org", "huggingface.co", "kaggle.com",
}

// ExtractLinks returns the unique non-YouTube URLs of a channel description, at most ten.
func ExtractLinks(text string) []string {
	seen := map[string]bool{}
	links := []string{}
	for _, u := range urlPattern.FindAllString(text, -1) {
		lower := strings.ToLower(u)
		if !containsAny(lower, profileDomains) && containsAny(lower, []string{"youtube.com", "youtu.be"}) {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		links = append(links, u)
		if len(links) == maxLinks {
			break
		}
	}
	return links
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// parseCount reads the string-encoded counters of the API. Hidden counts are 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
