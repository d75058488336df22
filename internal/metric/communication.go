package metric

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

var fillerPhrases = []string{
	"um", "uh", "like", "you know", "basically", "actually",
	"sort of", "kind of", "i mean", "right", "okay so",
	"literally", "honestly", "to be honest", "at the end of the day",
}

var structureMarkers = []string{
	"first", "second", "third", "finally", "lastly",
	"next", "then", "now", "moving on", "let's look at",
	"in summary", "to summarize", "in conclusion",
	"the key point", "importantly", "note that",
	"step one", "step two", "step 1", "step 2",
	"on one hand", "on the other hand", "however",
	"for example", "for instance", "such as",
	"let me explain", "here's how", "here's why",
}

var explanationMarkers = []string{
	"let me explain", "what this means", "in other words",
	"think of it as", "imagine", "picture this",
	"the reason is", "because", "this is important because",
	"you might wonder", "you might be thinking",
	"to understand", "to clarify", "simply put",
	"breaking it down", "let's break this down",
	"the idea here", "the concept", "fundamentally",
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// minWordsForDensity is the smallest transcript corpus the density signals are trusted on.
const minWordsForDensity = 100

// Communication scores delivery quality from transcript text.
type Communication struct{}

func NewCommunication() *Communication { return &Communication{} }

func (m *Communication) ID() model.MetricID { return model.MetricCommunication }
func (m *Communication) Name() string       { return "Communication Quality" }
func (m *Communication) Description() string {
	return "Clarity, structure, and teaching effectiveness from transcripts"
}

func (m *Communication) Available(c *model.CreatorSnapshot) bool {
	if c == nil {
		return false
	}
	for i := range c.Videos {
		if c.Videos[i].HasTranscript() {
			return true
		}
	}
	return false
}

func (m *Communication) Compute(_ context.Context, c *model.CreatorSnapshot, _ TopicContext) model.MetricResult {
	if !m.Available(c) {
		return model.Unavailable("No transcripts available for communication analysis")
	}

	var texts []string
	for i := range c.Videos {
		if c.Videos[i].HasTranscript() {
			texts = append(texts, c.Videos[i].Transcript.Text)
		}
	}
	combined := strings.Join(texts, " ")
	lower := strings.ToLower(combined)
	words := len(strings.Fields(combined))

	sentenceScore, sentenceFactor := sentenceStructureScore(combined)
	fillerScore, fillerFactor := fillerDensityScore(lower, words)
	structureScore, structureFactor := structureMarkerScore(lower, words)
	explanationScore, explanationFactor := explanationMarkerScore(lower, words)

	total := 0.25*sentenceScore + 0.25*fillerScore + 0.25*structureScore + 0.25*explanationScore

	return model.NewMetricResult(total, true,
		[]string{sentenceFactor, fillerFactor, structureFactor, explanationFactor},
		map[string]any{
			"sentence_score":       sentenceScore,
			"filler_score":         fillerScore,
			"structure_score":      structureScore,
			"explanation_score":    explanationScore,
			"transcripts_analyzed": len(texts),
			"total_words":          words,
		})
}

func sentenceStructureScore(text string) (float64, string) {
	var counts []float64
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > 10 {
			counts = append(counts, float64(len(strings.Fields(s))))
		}
	}
	if len(counts) < 5 {
		return 0.5, "Too few sentences for structure analysis"
	}

	avg := mean(counts)
	var lengthScore float64
	switch {
	case avg >= 15 && avg <= 25:
		lengthScore = 1.0
	case avg >= 10 && avg <= 30:
		lengthScore = 0.7
	default:
		lengthScore = 0.4
	}
	penalty := math.Min(0.3, sampleStdev(counts)/30)
	score := math.Max(0, lengthScore-penalty)

	switch {
	case score >= 0.7:
		return score, fmt.Sprintf("Clear sentence structure (avg %.0f words)", avg)
	case score >= 0.4:
		return score, fmt.Sprintf("Moderate sentence clarity (avg %.0f words)", avg)
	default:
		return score, fmt.Sprintf("Variable sentence structure (avg %.0f words)", avg)
	}
}

func countPhrases(lower string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		n += strings.Count(lower, p)
	}
	return n
}

// fillerDensityScore buckets filler occurrences per 100 words.
func fillerDensityScore(lower string, words int) (float64, string) {
	if words < minWordsForDensity {
		return 0.5, "Insufficient text for filler analysis"
	}
	density := float64(countPhrases(lower, fillerPhrases)) / float64(words) * 100

	switch {
	case density < 1:
		return 1.0, "Minimal filler words - polished delivery"
	case density < 2:
		return 0.8, "Low filler usage - good verbal clarity"
	case density < 3:
		return 0.6, "Moderate filler usage"
	case density < 5:
		return 0.4, "Higher filler word usage"
	default:
		return 0.2, "Frequent filler words detected"
	}
}

// structureMarkerScore buckets sequencing and transition markers per 1000 words.
func structureMarkerScore(lower string, words int) (float64, string) {
	if words < minWordsForDensity {
		return 0.5, "Insufficient text for structure analysis"
	}
	density := float64(countPhrases(lower, structureMarkers)) / float64(words) * 1000

	switch {
	case density > 10:
		return 1.0, "Well-organized with clear structure"
	case density > 5:
		return 0.7, "Good content organization"
	case density > 2:
		return 0.5, "Some structural elements present"
	default:
		return 0.3, "Limited structural markers"
	}
}

func explanationMarkerScore(lower string, words int) (float64, string) {
	if words < minWordsForDensity {
		return 0.5, "Insufficient text for explanation analysis"
	}
	density := float64(countPhrases(lower, explanationMarkers)) / float64(words) * 1000

	switch {
	case density > 8:
		return 1.0, "Strong teaching/explanation style"
	case density > 4:
		return 0.75, "Good explanatory approach"
	case density > 2:
		return 0.5, "Some explanatory content"
	default:
		return 0.3, "Limited explanation patterns"
	}
}
