package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

// CreatorStore reads creators and stores their cached scores.
type CreatorStore interface {
	List(ctx context.Context, sortBy string, limit, offset int) ([]model.CreatorSummary, int, error)
	FindByID(ctx context.Context, id int64) (*model.CreatorSnapshot, error)
	UpdateScores(ctx context.Context, id int64, res *model.ScoringResult) error
}

// CreatorService serves the creator listing and detail views.
type CreatorService struct {
	store     CreatorStore
	engine    *ScoringEngine
	explainer *Explainer
	embedder  metric.Embedder
	cache     *CacheService
	now       func() time.Time
}

// NewCreatorService creates a CreatorService. embedder and cache may be nil.
func NewCreatorService(store CreatorStore, engine *ScoringEngine, explainer *Explainer, embedder metric.Embedder, cache *CacheService) *CreatorService {
	return &CreatorService{
		store:     store,
		engine:    engine,
		explainer: explainer,
		embedder:  embedder,
		cache:     cache,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of creators ordered by sortBy.
func (s *CreatorService) List(ctx context.Context, sortBy string, limit, offset int) (*model.CreatorPage, error) {
	if sortBy == "" {
		sortBy = model.SortOverallScore
	}
	switch sortBy {
	case model.SortOverallScore, model.SortSubscribers, model.SortCreatedAt:
	default:
		return nil, fmt.Errorf("%w: unsupported sort %q", ErrInvalidRequest, sortBy)
	}
	if limit <= 0 {
		limit = model.DefaultLimit
	}
	if limit > model.MaxLimit {
		limit = model.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	creators, total, err := s.store.List(ctx, sortBy, limit, offset)
	if err != nil {
		return nil, err
	}
	if creators == nil {
		creators = []model.CreatorSummary{}
	}
	return &model.CreatorPage{Creators: creators, Total: total, Limit: limit, Offset: offset}, nil
}

// Detail returns the full snapshot of a creator. With a topic, it is also scored
// with the default weights and explained, and the scores are written back.
func (s *CreatorService) Detail(ctx context.Context, id int64, topic string) (*model.CreatorDetail, error) {
	topic = strings.TrimSpace(topic)

	if s.cache != nil {
		cached, err := s.cache.GetCreatorDetail(ctx, id, topic)
		if err != nil {
			log.Warn().Err(err).Int64("creator_id", id).Msg("creator: cache read failed")
		}
		if cached != nil {
			var d model.CreatorDetail
			if err := json.Unmarshal(cached, &d); err == nil {
				return &d, nil
			}
		}
	}

	snap, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &model.CreatorDetail{CreatorSnapshot: snap}

	if topic != "" {
		var vec []float32
		if s.embedder != nil {
			if vec, err = s.embedder.Embed(ctx, topic); err != nil {
				log.Warn().Err(err).Msg("creator: topic embedding unavailable")
				vec = nil
			}
		}
		tc := metric.TopicContext{Now: s.now(), TopicEmbedding: vec}
		res, err := s.engine.Score(ctx, snap, model.DefaultMetricConfigs(), tc)
		if err != nil {
			return nil, err
		}
		exp := s.explainer.Explain(ctx, snap, res, topic)
		detail.Scoring = res
		detail.Explanation = &exp

		if err := s.store.UpdateScores(ctx, id, res); err != nil {
			log.Warn().Err(err).Int64("creator_id", id).Msg("creator: storing scores failed")
		}
	}

	if s.cache != nil {
		if err := s.cache.SetCreatorDetail(ctx, id, topic, detail); err != nil {
			log.Warn().Err(err).Int64("creator_id", id).Msg("creator: cache write failed")
		}
	}
	return detail, nil
}
