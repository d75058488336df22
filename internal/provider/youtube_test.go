package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYouTube serves canned API answers keyed by path. The uploads playlist has
// two pages of two videos each.
func fakeYouTube(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "yt-key" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"bad key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "channel", q.Get("type"))
			assert.Equal(t, "50", q.Get("maxResults"))
			_, _ = w.Write([]byte(`{"items":[{"snippet":{"channelId":"UC1","title":"Rust Guy","description":"d","thumbnails":{"high":{"url":"https://img/1"}}}}]}`))

		case "/channels":
			if q.Get("id") == "UCmissing" {
				_, _ = w.Write([]byte(`{"items":[]}`))
				return
			}
			if q.Get("part") == "contentDetails" {
				_, _ = w.Write([]byte(`{"items":[{"id":"UC1","contentDetails":{"relatedPlaylists":{"uploads":"UU1"}}}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"items":[{"id":"UC1",
				"snippet":{"title":"Rust Guy","description":"Code: https://github.com/rustguy and https://youtube.com/@rustguy","publishedAt":"2019-04-02T10:00:00Z","country":"DE","thumbnails":{"high":{"url":"https://img/1"}}},
				"statistics":{"subscriberCount":"12500","viewCount":"900000","videoCount":"42"},
				"brandingSettings":{"channel":{"customUrl":"@rustguy"}}}]}`))

		case "/playlistItems":
			assert.Equal(t, "UU1", q.Get("playlistId"))
			if q.Get("pageToken") == "" {
				_, _ = w.Write([]byte(`{"nextPageToken":"p2","items":[{"contentDetails":{"videoId":"v1"}},{"contentDetails":{"videoId":"v2"}}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"videoId":"v3"}},{"contentDetails":{"videoId":"v4"}}]}`))

		case "/videos":
			var items []string
			for _, id := range strings.Split(q.Get("id"), ",") {
				items = append(items, `{"id":"`+id+`","snippet":{"title":"Video `+id+`","publishedAt":"2026-05-01T00:00:00Z","tags":["rust"]},
					"statistics":{"viewCount":"1000","likeCount":"50"},
					"contentDetails":{"duration":"PT12M30S","caption":"true"}}`)
			}
			_, _ = w.Write([]byte(`{"items":[` + strings.Join(items, ",") + `]}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestYouTube_SearchChannels(t *testing.T) {
	srv := fakeYouTube(t)
	defer srv.Close()
	yt := NewYouTube(YouTubeConfig{APIKey: "yt-key", BaseURL: srv.URL})

	hits, err := yt.SearchChannels(context.Background(), "rust", 200)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "UC1", hits[0].ChannelID)
	assert.Equal(t, "Rust Guy", hits[0].Name)
	assert.Equal(t, "https://img/1", hits[0].ThumbnailURL)
}

func TestYouTube_ChannelDetails(t *testing.T) {
	srv := fakeYouTube(t)
	defer srv.Close()
	yt := NewYouTube(YouTubeConfig{APIKey: "yt-key", BaseURL: srv.URL})

	d, err := yt.ChannelDetails(context.Background(), "UC1")
	require.NoError(t, err)

	assert.Equal(t, int64(12500), d.Subscribers)
	assert.Equal(t, int64(900000), d.Views)
	assert.Equal(t, 42, d.VideoCount)
	assert.Equal(t, "DE", d.Country)
	require.NotNil(t, d.CreatedAt)
	assert.True(t, d.CreatedAt.Equal(time.Date(2019, 4, 2, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"https://github.com/rustguy", "https://youtube.com/@rustguy"}, d.ExternalLinks)

	_, err = yt.ChannelDetails(context.Background(), "UCmissing")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestYouTube_ChannelVideosPaginates(t *testing.T) {
	srv := fakeYouTube(t)
	defer srv.Close()
	yt := NewYouTube(YouTubeConfig{APIKey: "yt-key", BaseURL: srv.URL})

	videos, err := yt.ChannelVideos(context.Background(), "UC1", 3)
	require.NoError(t, err)
	require.Len(t, videos, 3)
	assert.Equal(t, "v3", videos[2].VideoID)

	v := videos[0]
	assert.Equal(t, 750, v.DurationSeconds)
	assert.True(t, v.HasCaptions)
	assert.Equal(t, int64(1000), v.Views)
	assert.Equal(t, int64(50), v.Likes)
	assert.Equal(t, int64(0), v.Comments)
	assert.Equal(t, []string{"rust"}, v.Tags)
	require.NotNil(t, v.PublishedAt)

	none, err := yt.ChannelVideos(context.Background(), "UCmissing", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestYouTube_Errors(t *testing.T) {
	_, err := NewYouTube(YouTubeConfig{}).SearchChannels(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := fakeYouTube(t)
	defer srv.Close()
	_, err = NewYouTube(YouTubeConfig{APIKey: "wrong", BaseURL: srv.URL}).SearchChannels(context.Background(), "q", 5)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Equal(t, "youtube", se.Provider)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT0S", 0},
		{"PT45S", 45},
		{"PT12M30S", 750},
		{"PT1H2M3S", 3723},
		{"PT2H", 7200},
		{"P1DT1S", 86401},
		{"P1W", 604800},
		{"PT1.5S", 1},
		{"P0D", 0},
		{"", 0},
		{"garbage", 0},
		{"12:30", 0},
	}
	for _, tt := range tests {
		if got := ParseDuration(tt.in); got != tt.want {
			t.Errorf("ParseDuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestExtractLinks(t *testing.T) {
	text := `Find me: https://github.com/me, https://twitter.com/me
watch https://youtu.be/abc and https://www.youtube.com/watch?v=1
blog <https://example.dev/post> again https://github.com/me,
https://github.com/me/repo?ref=youtube.com`

	got := ExtractLinks(text)
	want := []string{
		"https://github.com/me,",
		"https://twitter.com/me",
		"https://example.dev/post",
		"https://github.com/me/repo?ref=youtube.com",
	}
	assert.Equal(t, want, got)

	var many strings.Builder
	for i := 0; i < 15; i++ {
		many.WriteString("https://site" + string(rune('a'+i)) + ".com ")
	}
	assert.Len(t, ExtractLinks(many.String()), maxLinks)
	assert.Empty(t, ExtractLinks("no links here"))
}
