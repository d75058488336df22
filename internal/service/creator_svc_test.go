package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abm312/expert-suitability-engine/internal/model"
)

type fakeCreatorStore struct {
	creators   map[int64]*model.CreatorSnapshot
	finds      int
	updated    map[int64]*model.ScoringResult
	listSort   string
	listLimit  int
	listOffset int
}

func (s *fakeCreatorStore) List(_ context.Context, sortBy string, limit, offset int) ([]model.CreatorSummary, int, error) {
	s.listSort, s.listLimit, s.listOffset = sortBy, limit, offset
	return nil, len(s.creators), nil
}

func (s *fakeCreatorStore) FindByID(_ context.Context, id int64) (*model.CreatorSnapshot, error) {
	s.finds++
	c, ok := s.creators[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

func (s *fakeCreatorStore) UpdateScores(_ context.Context, id int64, res *model.ScoringResult) error {
	if s.updated == nil {
		s.updated = map[int64]*model.ScoringResult{}
	}
	s.updated[id] = res
	return nil
}

func newCreatorFixture(cache *CacheService) (*CreatorService, *fakeCreatorStore) {
	store := &fakeCreatorStore{creators: map[int64]*model.CreatorSnapshot{3: creator(3, 2500)}}
	engine := NewScoringEngine(stubRegistry(
		uniform(model.MetricCredibility, 0.6, 3),
		uniform(model.MetricTopicAuthority, 0.8, 3),
		uniform(model.MetricCommunication, 0),
		uniform(model.MetricFreshness, 0),
		uniform(model.MetricGrowth, 0),
	), nil)
	svc := NewCreatorService(store, engine, NewExplainer(nil, fixedNow), nil, cache)
	svc.now = fixedNow
	return svc, store
}

func TestCreatorService_List(t *testing.T) {
	svc, store := newCreatorFixture(nil)
	ctx := context.Background()

	page, err := svc.List(ctx, "", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, model.SortOverallScore, store.listSort)
	assert.Equal(t, model.DefaultLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.NotNil(t, page.Creators)
	assert.Equal(t, 1, page.Total)

	page, err = svc.List(ctx, model.SortSubscribers, 500, 10)
	require.NoError(t, err)
	assert.Equal(t, model.MaxLimit, page.Limit)
	assert.Equal(t, 10, store.listOffset)

	_, err = svc.List(ctx, "channel_name; drop table", 10, 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreatorService_DetailWithoutTopic(t *testing.T) {
	svc, store := newCreatorFixture(nil)

	d, err := svc.Detail(context.Background(), 3, "  ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.ID)
	assert.Nil(t, d.Scoring)
	assert.Nil(t, d.Explanation)
	assert.Empty(t, store.updated)
}

func TestCreatorService_DetailWithTopic(t *testing.T) {
	svc, store := newCreatorFixture(nil)

	d, err := svc.Detail(context.Background(), 3, "rust")
	require.NoError(t, err)
	require.NotNil(t, d.Scoring)

	// Default weights: (0.6*0.2 + 0.8*0.3) / 0.5 = 0.72
	assert.InDelta(t, 0.72, d.Scoring.OverallScore, 1e-9)
	require.NotNil(t, d.Explanation)
	assert.NotEmpty(t, d.Explanation.Bullets)
	assert.Same(t, d.Scoring, store.updated[3])
}

func TestCreatorService_DetailNotFound(t *testing.T) {
	svc, _ := newCreatorFixture(nil)
	_, err := svc.Detail(context.Background(), 404, "")
	assert.Error(t, err)
}

func TestCreatorService_DetailCached(t *testing.T) {
	cache, _ := newTestCache(t, nil)
	svc, store := newCreatorFixture(cache)
	ctx := context.Background()

	first, err := svc.Detail(ctx, 3, "rust")
	require.NoError(t, err)
	second, err := svc.Detail(ctx, 3, "Rust")
	require.NoError(t, err)

	assert.Equal(t, 1, store.finds)
	assert.Equal(t, first.ID, second.ID)
	assert.InDelta(t, first.Scoring.OverallScore, second.Scoring.OverallScore, 1e-12)

	// A different topic is a different entry.
	_, err = svc.Detail(ctx, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 2, store.finds)

	require.NoError(t, cache.InvalidateCreator(ctx, 3))
	_, err = svc.Detail(ctx, 3, "rust")
	require.NoError(t, err)
	assert.Equal(t, 3, store.finds)
}
