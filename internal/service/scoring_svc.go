package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

// factorsPerMetric is how many factors of each available metric reach the flattened list.
const factorsPerMetric = 2

// ScoringEngine runs the enabled metrics for one creator and combines them into a
// weighted suitability score.
type ScoringEngine struct {
	registry *metric.Registry
	metrics  *Metrics
}

// NewScoringEngine creates a ScoringEngine. m may be nil.
func NewScoringEngine(registry *metric.Registry, m *Metrics) *ScoringEngine {
	return &ScoringEngine{registry: registry, metrics: m}
}

// Registry exposes the metric registry used by the engine.
func (e *ScoringEngine) Registry() *metric.Registry {
	return e.registry
}

// Score evaluates every enabled metric in configs against c.
//
// Unavailable metrics are recorded with a zero score but carry no weight. The weights of
// the remaining metrics are rescaled to sum to 1. A cancelled context discards all
// partial results.
func (e *ScoringEngine) Score(ctx context.Context, c *model.CreatorSnapshot, configs map[model.MetricID]model.MetricConfig, tc metric.TopicContext) (*model.ScoringResult, error) {
	type slot struct {
		id     model.MetricID
		m      metric.Metric
		weight float64
		result model.MetricResult
	}

	var slots []*slot
	for _, id := range e.registry.Ordered(configs) {
		cfg := configs[id]
		if !cfg.Enabled {
			continue
		}
		m, err := e.registry.Get(id)
		if err != nil {
			return nil, err
		}
		slots = append(slots, &slot{id: id, m: m, weight: cfg.Weight})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range slots {
		if !s.m.Available(c) {
			s.result = model.Unavailable(fmt.Sprintf("%s not available for this creator", s.m.Name()))
			e.metrics.observeUnavailable(s.id)
			continue
		}
		g.Go(func() error {
			s.result = safeCompute(gctx, s.m, c, tc)
			if !s.result.Available {
				e.metrics.observeUnavailable(s.id)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &model.ScoringResult{
		MetricScores:   make(map[model.MetricID]model.MetricResult, len(slots)),
		WeightsApplied: make(map[model.MetricID]float64),
		Factors:        []string{},
	}

	var totalWeight float64
	for _, s := range slots {
		res.MetricScores[s.id] = s.result
		if !s.result.Available {
			continue
		}
		totalWeight += s.weight
		factors := s.result.Factors
		if len(factors) > factorsPerMetric {
			factors = factors[:factorsPerMetric]
		}
		res.Factors = append(res.Factors, factors...)
	}

	if totalWeight > 0 {
		for _, s := range slots {
			if !s.result.Available {
				continue
			}
			w := s.weight / totalWeight
			res.WeightsApplied[s.id] = w
			res.OverallScore += s.result.Score * w
		}
	}
	res.OverallScore = model.Clamp01(res.OverallScore)

	return res, nil
}

// safeCompute turns a panicking metric into an unavailable result.
func safeCompute(ctx context.Context, m metric.Metric, c *model.CreatorSnapshot, tc metric.TopicContext) (res model.MetricResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("metric", string(m.ID())).Str("channel_id", c.ChannelID).
				Interface("panic", r).Msg("scoring: metric panicked")
			res = model.Unavailable(fmt.Sprintf("%s could not be computed", m.Name()))
		}
	}()
	return m.Compute(ctx, c, tc)
}
