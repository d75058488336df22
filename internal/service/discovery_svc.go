package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/model"
	"github.com/abm312/expert-suitability-engine/pkg/hash"
)

// videosPerChannel is how many recent uploads are stored per discovered channel.
const videosPerChannel = 30

// ChannelSource is the external catalogue creators are discovered from.
type ChannelSource interface {
	SearchChannels(ctx context.Context, query string, max int) ([]model.ChannelHit, error)
	ChannelDetails(ctx context.Context, channelID string) (*model.ChannelDetails, error)
	ChannelVideos(ctx context.Context, channelID string, max int) ([]model.VideoSnapshot, error)
}

// DiscoveryStore persists provider data.
type DiscoveryStore interface {
	ExistsByChannelID(ctx context.Context, channelID string) (bool, error)
	ChannelIDOf(ctx context.Context, creatorID int64) (string, error)
	UpsertCreator(ctx context.Context, in model.CreatorUpsert) (int64, error)
}

// DiscoveryService grows and refreshes the creator corpus from a ChannelSource.
type DiscoveryService struct {
	source  ChannelSource
	store   DiscoveryStore
	cache   *CacheService
	content *EmbeddingCache
	metrics *Metrics
	now     func() time.Time
}

// NewDiscoveryService creates a DiscoveryService. cache, content and m may be nil.
func NewDiscoveryService(source ChannelSource, store DiscoveryStore, cache *CacheService, content *EmbeddingCache, m *Metrics) *DiscoveryService {
	return &DiscoveryService{
		source:  source,
		store:   store,
		cache:   cache,
		content: content,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Discover searches the source for query and stores every channel not yet known.
// A failure on one channel is logged and skipped.
func (s *DiscoveryService) Discover(ctx context.Context, query string, max int) ([]model.DiscoveredCreator, error) {
	if max <= 0 {
		max = model.DefaultDiscoverMax
	}
	if max > model.MaxDiscover {
		max = model.MaxDiscover
	}

	hits, err := s.source.SearchChannels(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("search channels: %w", err)
	}

	added := []model.DiscoveredCreator{}
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return added, err
		}

		exists, err := s.store.ExistsByChannelID(ctx, hit.ChannelID)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", hit.ChannelID).Msg("discovery: lookup failed")
			continue
		}
		if exists {
			continue
		}

		details, err := s.fetch(ctx, hit.ChannelID)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", hit.ChannelID).Msg("discovery: skipping channel")
			continue
		}

		added = append(added, model.DiscoveredCreator{
			ChannelID:   details.ChannelID,
			ChannelName: details.Name,
			Subscribers: details.Subscribers,
		})
	}

	s.metrics.addDiscovered(len(added))
	log.Info().Str("query_hash", hash.Prefix(hash.NormalizeQuery(query), 12)).Int("hits", len(hits)).Int("added", len(added)).
		Msg("discovery: complete")
	return added, nil
}

// Refresh re-fetches a stored creator and records today's counters.
func (s *DiscoveryService) Refresh(ctx context.Context, creatorID int64) (err error) {
	defer func() { s.metrics.observeRefresh(err) }()

	channelID, err := s.store.ChannelIDOf(ctx, creatorID)
	if err != nil {
		return err
	}
	if _, err := s.fetch(ctx, channelID); err != nil {
		return err
	}

	if s.content != nil {
		s.content.Remove(channelID)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateCreator(ctx, creatorID); err != nil {
			log.Warn().Err(err).Int64("creator_id", creatorID).Msg("discovery: cache invalidation failed")
		}
	}
	return nil
}

// fetch pulls details and recent videos for a channel and upserts them together with
// today's snapshot. Video failures are tolerated.
func (s *DiscoveryService) fetch(ctx context.Context, channelID string) (*model.ChannelDetails, error) {
	details, err := s.source.ChannelDetails(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("channel details: %w", err)
	}

	videos, err := s.source.ChannelVideos(ctx, channelID, videosPerChannel)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("channel_id", channelID).Msg("discovery: videos unavailable")
		videos = nil
	}

	now := s.now()
	_, err = s.store.UpsertCreator(ctx, model.CreatorUpsert{
		Details: *details,
		Videos:  videos,
		Snapshot: model.MetricsSnapshot{
			Date:        time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Subscribers: details.Subscribers,
			Views:       details.Views,
			VideoCount:  details.VideoCount,
		},
		FetchedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store creator: %w", err)
	}
	return details, nil
}
