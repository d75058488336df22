package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/pkg/hash"
)

// Redis key TTLs.
const (
	TopicEmbeddingTTL = 24 * time.Hour
	CreatorDetailTTL  = 15 * time.Minute
)

// CacheService provides a Redis cache-aside layer for topic embeddings and creator
// detail responses.
type CacheService struct {
	rdb     *redis.Client
	metrics *Metrics
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, m *Metrics) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{metrics: m}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{metrics: m}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{metrics: m}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb, metrics: m}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client, m *Metrics) *CacheService {
	return &CacheService{rdb: rdb, metrics: m}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetTopicEmbedding returns the cached embedding of a query. ok is false on a miss
// or when caching is disabled.
func (c *CacheService) GetTopicEmbedding(ctx context.Context, query string) ([]float32, bool, error) {
	if c.rdb == nil {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, topicKey(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.observeCache("topic_embedding", false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	c.metrics.observeCache("topic_embedding", true)
	return vec, true, nil
}

// SetTopicEmbedding stores the embedding of a query.
func (c *CacheService) SetTopicEmbedding(ctx context.Context, query string, vec []float32) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, topicKey(query), b, TopicEmbeddingTTL).Err()
}

// GetCreatorDetail retrieves a cached detail response for a creator and topic.
// Returns nil if not cached.
func (c *CacheService) GetCreatorDetail(ctx context.Context, creatorID int64, topic string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.HGet(ctx, creatorKey(creatorID), detailField(topic)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.observeCache("creator_detail", false)
		return nil, nil
	}
	if err == nil {
		c.metrics.observeCache("creator_detail", true)
	}
	return data, err
}

// SetCreatorDetail stores a detail response. All topic variants of a creator share
// one hash so a refresh can drop them together.
func (c *CacheService) SetCreatorDetail(ctx context.Context, creatorID int64, topic string, data any) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	key := creatorKey(creatorID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, detailField(topic), b)
	pipe.Expire(ctx, key, CreatorDetailTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateCreator removes every cached detail variant of a creator.
func (c *CacheService) InvalidateCreator(ctx context.Context, creatorID int64) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, creatorKey(creatorID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func topicKey(query string) string {
	return "topic:" + hash.QueryKey(query)
}

func creatorKey(id int64) string {
	return "creator:" + strconv.FormatInt(id, 10)
}

func detailField(topic string) string {
	if hash.NormalizeQuery(topic) == "" {
		return "_"
	}
	return hash.QueryKey(topic)
}

// CachedEmbedder puts the Redis topic cache in front of an Embedder.
type CachedEmbedder struct {
	next  metric.Embedder
	cache *CacheService
}

// NewCachedEmbedder wraps next. A nil cache passes every call through.
func NewCachedEmbedder(next metric.Embedder, cache *CacheService) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

// Embed returns a cached vector when present. Cache errors are logged and ignored.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		vec, ok, err := e.cache.GetTopicEmbedding(ctx, text)
		if err != nil {
			log.Warn().Err(err).Msg("cache: topic embedding lookup failed")
		}
		if ok {
			return vec, nil
		}
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.SetTopicEmbedding(ctx, text, vec); err != nil {
			log.Warn().Err(err).Msg("cache: topic embedding store failed")
		}
	}
	return vec, nil
}
