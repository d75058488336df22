// Package provider holds the clients of the external APIs the engine depends on:
// OpenAI for embeddings and topic generation, and the YouTube Data API for the corpus.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrNotConfigured is returned by every call of a client created without an API key.
var ErrNotConfigured = errors.New("provider not configured")

const (
	defaultTimeout = 30 * time.Second
	errBodyLimit   = 512
)

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}

// newLimiter allows rps requests per second with a burst of one. rps <= 0 disables limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doJSON waits for the limiter, sends req and decodes a JSON body into out.
func doJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, provider string, req *http.Request, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug().Str("provider", provider).Str("path", req.URL.Path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("provider: request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return &StatusError{Provider: provider, Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}
