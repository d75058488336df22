package service

import (
	"sync"
	"time"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

// ProgressTracker keeps the latest progress event of the most recent search.
type ProgressTracker struct {
	mu   sync.RWMutex
	last model.ProgressEvent
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{last: model.ProgressEvent{Status: model.StatusIdle, At: time.Now().UTC()}}
}

// Attach returns a channel to pass to RankingService.Search. The returned function
// closes the channel and waits until every event has been recorded.
func (p *ProgressTracker) Attach() (chan<- model.ProgressEvent, func()) {
	ch := make(chan model.ProgressEvent, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			p.set(ev)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

func (p *ProgressTracker) set(ev model.ProgressEvent) {
	p.mu.Lock()
	p.last = ev
	p.mu.Unlock()
}

// Last returns the most recent event.
func (p *ProgressTracker) Last() model.ProgressEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}
