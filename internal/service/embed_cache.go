package service

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbedCacheSize bounds the content embedding cache when no size is configured.
const DefaultEmbedCacheSize = 1024

// EmbeddingCache is a bounded, process-wide LRU of aggregate content embeddings keyed
// by channel ID. It is safe for concurrent use.
type EmbeddingCache struct {
	lru     *lru.Cache[string, []float32]
	metrics *Metrics
}

// NewEmbeddingCache creates a cache holding at most size entries.
func NewEmbeddingCache(size int, m *Metrics) (*EmbeddingCache, error) {
	if size <= 0 {
		size = DefaultEmbedCacheSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &EmbeddingCache{lru: c, metrics: m}, nil
}

func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	v, ok := c.lru.Get(key)
	c.metrics.observeCache("content_embedding", ok)
	return v, ok
}

func (c *EmbeddingCache) Add(key string, v []float32) {
	c.lru.Add(key, v)
}

// Remove drops a creator's embedding, e.g. after its videos were refreshed.
func (c *EmbeddingCache) Remove(key string) {
	c.lru.Remove(key)
}

func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}
