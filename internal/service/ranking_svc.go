package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
	"github.com/abm312/expert-suitability-engine/internal/tracing"
)

// ErrInvalidRequest marks a search request that failed validation.
var ErrInvalidRequest = errors.New("invalid request")

// Progress steps of a ranking pass.
const (
	StepEmbedding   = "embedding"
	StepDiscovering = "discovering"
	StepLoading     = "loading"
	StepFiltering   = "filtering"
	StepScoring     = "scoring"
	StepExplaining  = "explaining"
	StepComplete    = "complete"
)

// searchDiscoverMax caps discovery triggered from a search so a pass stays responsive.
const searchDiscoverMax = 20

// CorpusStore loads the creator corpus and records searches.
type CorpusStore interface {
	ListSnapshots(ctx context.Context) ([]*model.CreatorSnapshot, error)
	SaveSearch(ctx context.Context, entry model.SearchLog) error
}

// Discoverer adds creators matching a query to the corpus.
type Discoverer interface {
	Discover(ctx context.Context, query string, max int) ([]model.DiscoveredCreator, error)
}

// RankingOptions configures optional collaborators of a RankingService.
type RankingOptions struct {
	Embedder     metric.Embedder // topic embeddings; nil disables semantic matching
	Discoverer   Discoverer      // nil disables discovery
	AutoDiscover bool
	DiscoverMax  int
	Concurrency  int
	Metrics      *Metrics
	Now          func() time.Time
}

// RankingService runs filter, score, sort, paginate and explain over the corpus.
type RankingService struct {
	store     CorpusStore
	engine    *ScoringEngine
	filters   *FilterPipeline
	explainer *Explainer
	opts      RankingOptions
}

func NewRankingService(store CorpusStore, engine *ScoringEngine, filters *FilterPipeline, explainer *Explainer, opts RankingOptions) *RankingService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.DiscoverMax <= 0 || opts.DiscoverMax > searchDiscoverMax {
		opts.DiscoverMax = searchDiscoverMax
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &RankingService{
		store:     store,
		engine:    engine,
		filters:   filters,
		explainer: explainer,
		opts:      opts,
	}
}

type rankedCreator struct {
	creator *model.CreatorSnapshot
	result  *model.ScoringResult
}

// Search ranks the corpus for req. Stage transitions are sent on events when it is
// non-nil; the caller must keep receiving until Search returns. A cancelled context
// aborts the pass and nothing is persisted.
func (s *RankingService) Search(ctx context.Context, req model.SearchRequest, events chan<- model.ProgressEvent) (resp *model.SearchResponse, err error) {
	start := time.Now()
	emit := func(status, step, details string) {
		if events == nil {
			return
		}
		select {
		case events <- model.ProgressEvent{Status: status, Step: step, Details: details, At: s.opts.Now()}:
		case <-ctx.Done():
		}
	}

	ctx, end := tracing.StartSpan(ctx, "ranking.search")
	defer func() {
		end(err)
		status := model.StatusComplete
		if err != nil {
			status = model.StatusError
			if events != nil && ctx.Err() == nil {
				emit(model.StatusError, "error", err.Error())
			}
		}
		s.opts.Metrics.observeSearch(status, time.Since(start).Seconds())
	}()

	req, err = s.normalize(req)
	if err != nil {
		return nil, err
	}
	query := req.TopicQuery

	emit(model.StatusSearching, StepEmbedding, fmt.Sprintf("Looking for '%s' experts...", query))
	topicVec, err := s.embedTopic(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.opts.AutoDiscover && s.opts.Discoverer != nil {
		emit(model.StatusSearching, StepDiscovering, "Searching YouTube for channels...")
		added, derr := s.opts.Discoverer.Discover(ctx, query, s.opts.DiscoverMax)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if derr != nil {
			log.Warn().Err(derr).Msg("ranking: discovery failed, continuing with known corpus")
		} else if len(added) > 0 {
			log.Info().Int("added", len(added)).Msg("ranking: discovery added creators")
		}
	}

	emit(model.StatusSearching, StepLoading, "Loading creator corpus...")
	corpus, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	total := len(corpus)

	emit(model.StatusSearching, StepFiltering, fmt.Sprintf("Checking %d creators against your filters...", total))
	candidates := s.filters.Apply(corpus, req.Filters)

	emit(model.StatusSearching, StepScoring, fmt.Sprintf("Analyzing %d potential experts...", len(candidates)))
	tc := metric.TopicContext{Now: s.opts.Now(), TopicEmbedding: topicVec, Keywords: req.TopicKeywords}
	ranked, err := s.scoreAll(ctx, candidates, req, tc)
	if err != nil {
		return nil, err
	}

	sortRanked(ranked)
	page := paginate(ranked, req.Offset, req.Limit)

	emit(model.StatusSearching, StepExplaining, fmt.Sprintf("Explaining top %d experts...", len(page)))
	explanations, err := s.explainAll(ctx, page, query)
	if err != nil {
		return nil, err
	}

	cards := make([]model.CreatorCard, len(page))
	for i, r := range page {
		cards[i] = BuildCard(r.creator, r.result, explanations[i], query)
	}

	resp = &model.SearchResponse{
		SearchID:         uuid.NewString(),
		Query:            query,
		TotalResults:     total,
		FilteredCount:    len(ranked),
		Creators:         cards,
		MetricsUsed:      s.enabledMetrics(req.Metrics),
		FiltersApplied:   FilterSummary(req.Filters),
		ProcessingTimeMs: math.Round(float64(time.Since(start).Microseconds())/10) / 100,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.SaveSearch(ctx, model.SearchLog{
		SearchID:       resp.SearchID,
		Query:          query,
		TopicEmbedding: topicVec,
		Filters:        req.Filters,
		Weights:        req.Metrics,
		ResultsCount:   resp.FilteredCount,
	}); err != nil {
		log.Warn().Err(err).Str("search_id", resp.SearchID).Msg("ranking: failed to record search")
	}

	emit(model.StatusComplete, StepComplete, fmt.Sprintf("Found %d experts", resp.FilteredCount))
	return resp, nil
}

// normalize applies defaults and validates a request.
func (s *RankingService) normalize(req model.SearchRequest) (model.SearchRequest, error) {
	req.TopicQuery = strings.TrimSpace(req.TopicQuery)
	if n := len([]rune(req.TopicQuery)); n < model.MinTopicLen || n > model.MaxTopicLen {
		return req, fmt.Errorf("%w: topic_query must be %d-%d characters", ErrInvalidRequest, model.MinTopicLen, model.MaxTopicLen)
	}
	if req.Limit == 0 {
		req.Limit = model.DefaultLimit
	}
	if req.Limit < 1 || req.Limit > model.MaxLimit {
		return req, fmt.Errorf("%w: limit must be 1-%d", ErrInvalidRequest, model.MaxLimit)
	}
	if req.Offset < 0 {
		return req, fmt.Errorf("%w: offset must be >= 0", ErrInvalidRequest)
	}
	if len(req.Metrics) == 0 {
		req.Metrics = model.DefaultMetricConfigs()
	}
	for id, cfg := range req.Metrics {
		if _, err := s.engine.Registry().Get(id); err != nil {
			return req, err
		}
		if cfg.Weight < 0 || cfg.Weight > 1 || math.IsNaN(cfg.Weight) {
			return req, fmt.Errorf("%w: weight for %s must be within [0,1]", ErrInvalidRequest, id)
		}
	}
	return req, nil
}

// embedTopic returns nil without error when embedding is unavailable.
func (s *RankingService) embedTopic(ctx context.Context, query string) ([]float32, error) {
	if s.opts.Embedder == nil {
		return nil, nil
	}
	vec, err := s.opts.Embedder.Embed(ctx, query)
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		log.Warn().Err(err).Msg("ranking: topic embedding unavailable, using keyword matching")
		return nil, nil
	}
	return vec, nil
}

func (s *RankingService) scoreAll(ctx context.Context, candidates []*model.CreatorSnapshot, req model.SearchRequest, tc metric.TopicContext) (_ []rankedCreator, err error) {
	ctx, end := tracing.StartSpan(ctx, "ranking.score", attribute.Int("creators", len(candidates)))
	defer func() { end(err) }()

	results := make([]*model.ScoringResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			res, err := s.engine.Score(gctx, c, req.Metrics, tc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := make([]rankedCreator, 0, len(candidates))
	for i, c := range candidates {
		if PassesTopicRelevance(results[i], req.Filters) {
			ranked = append(ranked, rankedCreator{creator: c, result: results[i]})
		}
	}
	return ranked, nil
}

func (s *RankingService) explainAll(ctx context.Context, page []rankedCreator, query string) (_ []model.Explanation, err error) {
	ctx, end := tracing.StartSpan(ctx, "ranking.explain", attribute.Int("creators", len(page)))
	defer func() { end(err) }()

	out := make([]model.Explanation, len(page))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, r := range page {
		g.Go(func() error {
			out[i] = s.explainer.Explain(gctx, r.creator, r.result, query)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RankingService) enabledMetrics(configs map[model.MetricID]model.MetricConfig) []model.MetricID {
	var ids []model.MetricID
	for _, id := range s.engine.Registry().Ordered(configs) {
		if configs[id].Enabled {
			ids = append(ids, id)
		}
	}
	if ids == nil {
		ids = []model.MetricID{}
	}
	return ids
}

// sortRanked orders by overall score descending, ties by creator ID.
func sortRanked(ranked []rankedCreator) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.result.OverallScore != b.result.OverallScore {
			return a.result.OverallScore > b.result.OverallScore
		}
		return a.creator.ID < b.creator.ID
	})
}

func paginate(ranked []rankedCreator, offset, limit int) []rankedCreator {
	if offset >= len(ranked) {
		return nil
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}

// BuildCard assembles the public result card of one ranked creator.
func BuildCard(c *model.CreatorSnapshot, res *model.ScoringResult, exp model.Explanation, query string) model.CreatorCard {
	subscores := make(map[model.MetricID]float64, len(res.MetricScores))
	for id, r := range res.MetricScores {
		subscores[id] = round3(r.Score)
	}

	summary := fmt.Sprintf("Relevant to '%s'", query)
	if res.OverallScore > 0.7 {
		summary = fmt.Sprintf("Strong match for '%s'", query)
	}

	links := c.ExternalLinks
	if len(links) > 5 {
		links = links[:5]
	}
	if links == nil {
		links = []string{}
	}

	return model.CreatorCard{
		ID:                c.ID,
		ChannelID:         c.ChannelID,
		ChannelName:       c.Name,
		ThumbnailURL:      c.ThumbnailURL,
		Subscribers:       c.Subscribers,
		Views:             c.Views,
		OverallScore:      round3(res.OverallScore),
		Subscores:         subscores,
		WhyExpert:         exp.Bullets,
		TopicMatchSummary: summary,
		TopVideos:         TopVideos(c.Videos, 3),
		RelevantContent:   exp.RelevantContent,
		SuggestedTopics:   exp.SuggestedTopics,
		GrowthTrend:       GrowthTrend(res),
		ExternalLinks:     links,
		ChannelURL:        "https://youtube.com/channel/" + c.ChannelID,
	}
}

// TopVideos returns the n most viewed videos.
func TopVideos(videos []model.VideoSnapshot, n int) []model.VideoSummary {
	sorted := append([]model.VideoSnapshot(nil), videos...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Views > sorted[j].Views })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]model.VideoSummary, len(sorted))
	for i, v := range sorted {
		out[i] = model.VideoSummary{VideoID: v.VideoID, Title: v.Title, Views: v.Views, ThumbnailURL: v.ThumbnailURL}
	}
	return out
}

// GrowthTrend buckets the growth metric into a label.
func GrowthTrend(res *model.ScoringResult) string {
	g, ok := res.MetricScores[model.MetricGrowth]
	switch {
	case !ok:
		return "Unknown"
	case !g.Available:
		return "Insufficient data"
	case g.Score >= 0.8:
		return "Rapid growth"
	case g.Score >= 0.6:
		return "Steady growth"
	case g.Score >= 0.4:
		return "Stable"
	case g.Score >= 0.2:
		return "Slowing"
	default:
		return "Declining"
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
