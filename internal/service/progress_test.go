package service

import (
	"testing"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

func TestProgressTracker(t *testing.T) {
	p := NewProgressTracker()
	if got := p.Last().Status; got != model.StatusIdle {
		t.Errorf("initial status = %q, want idle", got)
	}

	events, done := p.Attach()
	events <- model.ProgressEvent{Status: model.StatusSearching, Step: StepLoading}
	events <- model.ProgressEvent{Status: model.StatusComplete, Step: StepComplete, Details: "Found 3 experts"}
	done()

	last := p.Last()
	if last.Status != model.StatusComplete || last.Details != "Found 3 experts" {
		t.Errorf("last = %+v", last)
	}
}

func TestProgressTracker_WithSearch(t *testing.T) {
	svc, _ := rankingFixture(RankingOptions{})
	p := NewProgressTracker()

	events, done := p.Attach()
	_, err := svc.Search(t.Context(), model.SearchRequest{TopicQuery: "rust", Metrics: credibilityOnly()}, events)
	done()
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Last(); got.Step != StepComplete || got.Details != "Found 5 experts" {
		t.Errorf("last = %+v", got)
	}
}
