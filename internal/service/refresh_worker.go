package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// refreshBatch caps how many creators a single tick refreshes.
const refreshBatch = 50

// StaleLister finds creators whose provider data is older than a cutoff.
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]int64, error)
	MarkRefreshFailed(ctx context.Context, id int64, at time.Time) error
}

// Refresher re-fetches a single creator.
type Refresher interface {
	Refresh(ctx context.Context, creatorID int64) error
}

// RefreshWorker is a periodic background job that re-fetches stale creators. Each
// refresh appends a daily metrics snapshot, which is the history growth scoring uses.
type RefreshWorker struct {
	store     StaleLister
	refresher Refresher
	interval  time.Duration
	maxAge    time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// NewRefreshWorker creates a worker that ticks every interval and refreshes creators
// not fetched within maxAge.
func NewRefreshWorker(store StaleLister, refresher Refresher, interval, maxAge time.Duration) *RefreshWorker {
	return &RefreshWorker{
		store:     store,
		refresher: refresher,
		interval:  interval,
		maxAge:    maxAge,
		stopCh:    make(chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs one tick immediately, then every interval until ctx is done or Stop
// is called.
func (w *RefreshWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Dur("max_age", w.maxAge).Msg("refresh-worker: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("refresh-worker: stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Msg("refresh-worker: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop. It is safe to call more than once.
func (w *RefreshWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// tick refreshes one batch of stale creators.
func (w *RefreshWorker) tick(ctx context.Context) (refreshed, failed int) {
	start := time.Now()

	ids, err := w.store.ListStale(ctx, w.now().Add(-w.maxAge), refreshBatch)
	if err != nil {
		log.Error().Err(err).Msg("refresh-worker: listing stale creators failed")
		return 0, 0
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := w.refresher.Refresh(ctx, id); err != nil {
			log.Warn().Err(err).Int64("creator_id", id).Msg("refresh-worker: refresh failed")
			if err := w.store.MarkRefreshFailed(ctx, id, w.now()); err != nil {
				log.Error().Err(err).Int64("creator_id", id).Msg("refresh-worker: recording failure failed")
			}
			failed++
			continue
		}
		refreshed++
	}

	log.Info().Int("refreshed", refreshed).Int("failed", failed).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("refresh-worker: tick complete")
	return refreshed, failed
}
