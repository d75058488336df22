package db

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSchema_DeclaresTables(t *testing.T) {
	s := Schema()
	for _, table := range []string{"creators", "videos", "transcripts", "metrics_snapshots", "search_queries"} {
		if !strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema missing table %s", table)
		}
	}
	if !strings.Contains(s, "PRIMARY KEY (creator_id, date)") {
		t.Error("snapshots must be unique per creator and day")
	}
	if !strings.Contains(s, "ADD COLUMN IF NOT EXISTS refresh_failed_at") {
		t.Error("existing databases need the refresh_failed_at column")
	}
	if !strings.Contains(s, "embedding vector") {
		t.Error("transcripts must carry an optional embedding")
	}
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "test", func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d, want nil after 1 call", err, calls)
	}
}

func TestWithRetry_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	err := withRetry(ctx, "test", func() error {
		calls++
		cancel()
		return context.DeadlineExceeded
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if time.Since(start) >= retryInterval {
		t.Error("cancelled retry should not wait for the interval")
	}
}

func TestNewPool_InvalidURL(t *testing.T) {
	if _, err := NewPool(context.Background(), "postgres://%zz"); err == nil {
		t.Error("expected parse error")
	}
}
