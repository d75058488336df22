package service

import (
	"context"
	"strings"
	"testing"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

func TestFormatCounts(t *testing.T) {
	subs := []struct {
		n    int64
		want string
	}{
		{999, "999"},
		{1500, "1.5K"},
		{2_300_000, "2.3M"},
	}
	for _, tt := range subs {
		if got := formatSubscribers(tt.n); got != tt.want {
			t.Errorf("formatSubscribers(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}

	views := []struct {
		n    int64
		want string
	}{
		{500, "500"},
		{45_000, "45K"},
		{7_500_000, "7.5M"},
		{1_200_000_000, "1.2B"},
	}
	for _, tt := range views {
		if got := formatViews(tt.n); got != tt.want {
			t.Errorf("formatViews(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestGroupThousands(t *testing.T) {
	tests := map[int64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		1234567:   "1,234,567",
		-1000:     "-1,000",
		100000000: "100,000,000",
	}
	for n, want := range tests {
		if got := groupThousands(n); got != want {
			t.Errorf("groupThousands(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestHumanizeAgo(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "today"},
		{1, "yesterday"},
		{3, "3 days ago"},
		{7, "1 week ago"},
		{14, "2 weeks ago"},
		{30, "1 month ago"},
		{60, "2 months ago"},
		{365, "1 year ago"},
		{800, "2 years ago"},
	}
	for _, tt := range tests {
		if got := humanizeAgo(tt.days); got != tt.want {
			t.Errorf("humanizeAgo(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestBullets(t *testing.T) {
	c := creator(1, 1500)
	c.Views = 45_000
	c.CreatedAt = daysAgo(6 * 365)
	c.ExternalLinks = []string{"https://github.com/someone"}

	res := &model.ScoringResult{MetricScores: map[model.MetricID]model.MetricResult{
		model.MetricTopicAuthority: {Score: 0.75, Available: true},
		model.MetricCredibility:    {Score: 0.8, Available: true},
		model.MetricGrowth:         {Score: 0.75, Available: true, RawData: map[string]any{"growth_rate": 12.5}},
		model.MetricCommunication:  {Score: 0, Available: true},
		model.MetricFreshness:      {Score: 0, Available: false},
	}}

	got := NewExplainer(nil, fixedNow).Bullets(c, res, "rust")
	want := []string{
		"Audience: 1.5K subscribers, 45K total views",
		"Topic Match (75%): Strong alignment with 'rust'. Multiple videos directly cover this subject.",
		"Credibility (80%): Established creator — 6+ years on platform, has GitHub.",
		"Growth (75%): Strong trajectory with +12.5% subscriber increase.",
	}
	if len(got) != len(want) {
		t.Fatalf("bullets = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bullet[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBullets_Freshness(t *testing.T) {
	c := creator(1, 10)
	c.Videos = []model.VideoSnapshot{{PublishedAt: daysAgo(14)}, {PublishedAt: daysAgo(40)}}
	x := NewExplainer(nil, fixedNow)

	tests := []struct {
		score float64
		want  string
	}{
		{0.9, "Freshness (90%): Very active. Last upload 2 weeks ago."},
		{0.5, "Freshness (50%): Moderately active. Last upload 2 weeks ago."},
		{0.1, "Freshness (10%): Infrequent uploads. Last post 2 weeks ago."},
	}
	for _, tt := range tests {
		res := &model.ScoringResult{MetricScores: map[model.MetricID]model.MetricResult{
			model.MetricFreshness: {Score: tt.score, Available: true},
		}}
		got := x.Bullets(c, res, "q")
		if len(got) != 2 || got[1] != tt.want {
			t.Errorf("score %.1f: bullets = %q, want second %q", tt.score, got, tt.want)
		}
	}
}

func TestGrowthBullet(t *testing.T) {
	tests := []struct {
		score float64
		raw   map[string]any
		want  string
	}{
		{0.5, map[string]any{"growth_rate": 4.0}, "Growth (50%): Steady at +4.0% subscriber increase."},
		{0.2, map[string]any{"growth_rate": 1.0}, "Growth (20%): Slow growth at +1.0%."},
		{0.1, map[string]any{"growth_rate": -3.5}, "Growth (10%): Declining, -3.5% subscriber loss."},
		{0.5, map[string]any{"growth_rate": 0.0}, "Growth (50%): Stable audience, no significant change."},
		{0.75, nil, "Growth (75%): Strong growth trajectory."},
		{0.3, nil, "Growth (30%): Limited recent growth."},
	}
	for _, tt := range tests {
		got := growthBullet(model.MetricResult{Score: tt.score, Available: true, RawData: tt.raw})
		if got != tt.want {
			t.Errorf("growthBullet(%.2f, %v) = %q, want %q", tt.score, tt.raw, got, tt.want)
		}
	}
}

func TestRelevantContent(t *testing.T) {
	c := creator(1, 10)
	c.Videos = []model.VideoSnapshot{
		{VideoID: "v1", Title: "Cooking pasta", Views: 500},
		{VideoID: "v2", Title: "Rust ownership explained", Views: 150_000},
		{VideoID: "v3", Title: "Async deep dive", Description: "rust futures", Views: 20_000},
		{VideoID: "v4", Title: "Vlog"},
	}
	c.ExternalLinks = []string{"https://github.com/x", "https://huggingface.co/y", "https://linkedin.com/in/z"}

	got := RelevantContent(c, "Rust")
	wantTitles := []string{"Rust ownership explained", "Async deep dive", "Cooking pasta", "GitHub Profile", "Hugging Face"}
	if len(got) != len(wantTitles) {
		t.Fatalf("got %d items, want %d: %+v", len(got), len(wantTitles), got)
	}
	for i, title := range wantTitles {
		if got[i].Title != title {
			t.Errorf("item[%d] = %q, want %q", i, got[i].Title, title)
		}
	}
	if got[0].URL != "https://youtube.com/watch?v=v2" {
		t.Errorf("url = %q", got[0].URL)
	}
	if got[0].Relevance != "Popular video on related topic (150,000 views)" {
		t.Errorf("relevance[0] = %q", got[0].Relevance)
	}
	if got[1].Relevance != "Well-received content (20,000 views)" {
		t.Errorf("relevance[1] = %q", got[1].Relevance)
	}
	if got[2].Relevance != "Relevant to your search topic" {
		t.Errorf("relevance[2] = %q", got[2].Relevance)
	}
	if got[0].Views == nil || *got[0].Views != 150_000 {
		t.Error("video items should carry view counts")
	}
	if got[3].Views != nil {
		t.Error("link items should not carry view counts")
	}
}

func TestParseTopics(t *testing.T) {
	text := "1. Ownership in practice\n- Async runtimes\n\n• Unsafe code\nFFI boundaries\nOne too many"
	got := ParseTopics(text)
	want := []string{"Ownership in practice", "Async runtimes", "Unsafe code", "FFI boundaries"}
	if len(got) != len(want) {
		t.Fatalf("topics = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topic[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := ParseTopics("  \n 1. \n - "); len(got) != 0 {
		t.Errorf("markers only = %q, want none", got)
	}
}

func TestFallbackTopics(t *testing.T) {
	c := creator(1, 10)
	c.Videos = []model.VideoSnapshot{{Title: "intro to things"}, {Title: "why Understanding Kubernetes matters"}}

	got := FallbackTopics(c, "rust")
	want := []string{
		"Deep dive into rust",
		"Industry trends and predictions",
		"Best practices and common pitfalls",
		"Technical discussion on Understanding",
	}
	if len(got) != len(want) {
		t.Fatalf("topics = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topic[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	c.Videos = []model.VideoSnapshot{{Title: "all lowercase words here"}}
	if got := FallbackTopics(c, "rust"); len(got) != 3 {
		t.Errorf("without a technical term got %d topics, want 3", len(got))
	}
}

func TestSuggestedTopics(t *testing.T) {
	c := creator(1, 10)
	c.Name = "Rustacean Station"
	c.Videos = []model.VideoSnapshot{{Title: "Lifetimes"}, {Title: "Traits"}}

	t.Run("generator output", func(t *testing.T) {
		gen := &fakeGenerator{text: "Ownership patterns\nError handling"}
		got := NewExplainer(gen, fixedNow).SuggestedTopics(context.Background(), c, "rust")
		if len(got) != 2 || got[0] != "Ownership patterns" {
			t.Errorf("topics = %q", got)
		}
		if gen.maxTokens != 200 {
			t.Errorf("maxTokens = %d, want 200", gen.maxTokens)
		}
		for _, part := range []string{`The search topic was: "rust"`, "Creator: Rustacean Station", "- Lifetimes\n- Traits"} {
			if !strings.Contains(gen.prompt, part) {
				t.Errorf("prompt missing %q", part)
			}
		}
	})

	t.Run("generator error falls back", func(t *testing.T) {
		got := NewExplainer(&fakeGenerator{err: errFake}, fixedNow).SuggestedTopics(context.Background(), c, "rust")
		if len(got) == 0 || got[0] != "Deep dive into rust" {
			t.Errorf("topics = %q, want fallback", got)
		}
	})

	t.Run("empty output falls back", func(t *testing.T) {
		got := NewExplainer(&fakeGenerator{text: "\n - \n"}, fixedNow).SuggestedTopics(context.Background(), c, "rust")
		if len(got) == 0 || got[0] != "Deep dive into rust" {
			t.Errorf("topics = %q, want fallback", got)
		}
	})

	t.Run("no generator", func(t *testing.T) {
		got := NewExplainer(nil, fixedNow).SuggestedTopics(context.Background(), c, "rust")
		if len(got) != 4 || got[3] != "Technical discussion on Lifetimes" {
			t.Errorf("topics = %q, want the template plus a title term", got)
		}
	})
}
