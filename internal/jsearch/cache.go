package jsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultCacheTTL = time.Hour

type Searcher interface {
	Search(ctx context.Context, title, location string) (*Listings, error)
}

// KV is the cache backend.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedSearcher keeps search results in the key-value store.
type CachedSearcher struct {
	next   Searcher
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSearcher(next Searcher, kv KV, ttl time.Duration, logger *zap.Logger) *CachedSearcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearcher{next: next, kv: kv, ttl: ttl, logger: logger}
}

func cacheKey(title, location string) string {
	return fmt.Sprintf("jobs:%s:%s", strings.ToLower(strings.TrimSpace(title)), strings.ToLower(strings.TrimSpace(location)))
}

// Search serves from the cache when possible. Cache failures fall through to the API.
func (c *CachedSearcher) Search(ctx context.Context, title, location string) (*Listings, error) {
	key := cacheKey(title, location)

	if raw, ok, err := c.kv.Get(ctx, key); err != nil {
		c.logger.Warn("read job cache", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached Listings
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			c.logger.Debug("job cache hit", zap.String("key", key), zap.Int("items", cached.Len()))
			return &cached, nil
		}
		c.logger.Warn("discarding malformed job cache entry", zap.String("key", key))
	}

	listings, err := c.next.Search(ctx, title, location)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(listings)
	if err != nil {
		return listings, nil
	}
	if err := c.kv.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.logger.Warn("write job cache", zap.String("key", key), zap.Error(err))
	}

	return listings, nil
}
