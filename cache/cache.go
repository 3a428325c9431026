// Package cache keeps resolved price comparisons and the recent-search list.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/storage"
)

const (
	// KeyPrefix prefixes every cache entry key in the backend.
	KeyPrefix = "pricescout_cache_"
	// DefaultTTL is how long a cached comparison stays fresh.
	DefaultTTL = 30 * time.Minute

	defaultHotSize = 256
)

// PriceCache stores ProductPricing values per normalized query. The backend
// is the source of truth; a bounded LRU of decoded entries sits in front of
// it.
type PriceCache struct {
	backend storage.Backend
	ttl     time.Duration
	now     func() time.Time
	hotSize int
	hot     *lru.Cache[string, models.CacheEntry]
}

// Option configures a PriceCache.
type Option func(*PriceCache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *PriceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) { c.now = now }
}

// WithHotSize sets the number of decoded entries kept in memory.
func WithHotSize(n int) Option {
	return func(c *PriceCache) {
		if n > 0 {
			c.hotSize = n
		}
	}
}

// NewPriceCache builds a cache over backend.
func NewPriceCache(backend storage.Backend, opts ...Option) (*PriceCache, error) {
	c := &PriceCache{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		hotSize: defaultHotSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	hot, err := lru.New[string, models.CacheEntry](c.hotSize)
	if err != nil {
		return nil, fmt.Errorf("create hot cache: %w", err)
	}
	c.hot = hot
	return c, nil
}

// Key returns the backend key for query.
func Key(query string) string {
	return KeyPrefix + models.NormalizeQuery(query)
}

// TTL returns the configured freshness window.
func (c *PriceCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached pricing for query. Expired and undecodable entries
// are removed and reported as absent.
func (c *PriceCache) Get(query string) (*models.ProductPricing, bool) {
	key := Key(query)

	entry, ok := c.hot.Get(key)
	if !ok {
		raw, found, err := c.backend.Get(key)
		if err != nil {
			slog.Error("cache retrieval failed", slog.String("key", key), slog.Any("error", err))
			return nil, false
		}
		if !found {
			return nil, false
		}
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			slog.Warn("dropping undecodable cache entry", slog.String("key", key), slog.Any("error", err))
			c.remove(key)
			return nil, false
		}
	}

	if c.expired(entry) {
		c.remove(key)
		return nil, false
	}

	c.hot.Add(key, entry)
	data := entry.Data
	data.Prices = append([]models.PriceData(nil), entry.Data.Prices...)
	return &data, true
}

// Set stores pricing for query, stamped with the current time.
func (c *PriceCache) Set(query string, pricing *models.ProductPricing) error {
	if pricing == nil {
		return nil
	}

	key := Key(query)
	entry := models.CacheEntry{Data: *pricing, Timestamp: c.now().UnixMilli()}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.backend.Set(key, string(data)); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	c.hot.Add(key, entry)
	return nil
}

// ClearExpired removes every expired or unparsable entry and returns how
// many were removed.
func (c *PriceCache) ClearExpired() (int, error) {
	keys, err := c.backend.Keys(KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list cache keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		raw, ok, err := c.backend.Get(key)
		if err != nil || !ok {
			continue
		}

		var entry models.CacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || c.expired(entry) {
			c.remove(key)
			removed++
		}
	}
	return removed, nil
}

// Clear removes every cache entry.
func (c *PriceCache) Clear() error {
	keys, err := c.backend.Keys(KeyPrefix)
	if err != nil {
		return fmt.Errorf("list cache keys: %w", err)
	}
	for _, key := range keys {
		if err := c.backend.Delete(key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
	}
	c.hot.Purge()
	return nil
}

// Queries lists the normalized queries currently cached, expired or not.
func (c *PriceCache) Queries() ([]string, error) {
	keys, err := c.backend.Keys(KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	queries := make([]string, 0, len(keys))
	for _, key := range keys {
		queries = append(queries, strings.TrimPrefix(key, KeyPrefix))
	}
	return queries, nil
}

func (c *PriceCache) expired(entry models.CacheEntry) bool {
	return c.now().UnixMilli()-entry.Timestamp > c.ttl.Milliseconds()
}

func (c *PriceCache) remove(key string) {
	c.hot.Remove(key)
	if err := c.backend.Delete(key); err != nil {
		slog.Error("cache delete failed", slog.String("key", key), slog.Any("error", err))
	}
}
