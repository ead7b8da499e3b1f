package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Browse cache metrics. Atomic counters for thread-safe access.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// BrowseCache memoizes browse listings: L1 in-memory with TTL, optional L2 Redis.
// Concurrent misses for the same key share a single load.
type BrowseCache struct {
	mu         sync.Mutex
	l1         map[string]*cacheEntry
	rdb        *redis.Client // nil if Redis unavailable
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	group      singleflight.Group
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewBrowseCache creates a browse cache. rdb may be nil to disable L2.
func NewBrowseCache(ttl time.Duration, maxEntries int, rdb *redis.Client) *BrowseCache {
	if ttl <= 0 {
		ttl = DefaultBrowseCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultBrowseCacheMax
	}
	c := &BrowseCache{
		l1:         make(map[string]*cacheEntry),
		rdb:        rdb,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", rdb != nil), slog.Int("max_entries", maxEntries))
	return c
}

// ConnectRedis returns a client for redisURL, or nil when the URL is empty,
// invalid or unreachable.
func ConnectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
	return rdb
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("yt:%x", hash[:12])
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// Len returns the number of L1 entries, including expired ones not yet evicted.
func (c *BrowseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.l1)
}

func (c *BrowseCache) get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	if entry, ok := c.l1[key]; ok {
		if c.now().Before(entry.expiresAt) {
			c.mu.Unlock()
			slog.Debug("cache: L1 hit", slog.String("key", key))
			return entry.data, true
		}
		delete(c.l1, key)
	}
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			ttl, err := c.rdb.TTL(ctx, key).Result()
			if err != nil {
				ttl = 0
			}
			c.promote(key, data, ttl)
			return data, true
		}
	}
	return nil, false
}

// promote copies an L2 hit into L1 for no longer than the key has left in Redis,
// so an entry never outlives its original insert. Keys without a positive
// remaining TTL are served from L2 only.
func (c *BrowseCache) promote(key string, data []byte, remaining time.Duration) {
	if remaining <= 0 {
		return
	}
	c.store(key, data, min(remaining, c.ttl))
}

func (c *BrowseCache) set(ctx context.Context, key string, data []byte) {
	c.store(key, data, c.ttl)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

func (c *BrowseCache) store(key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.l1[key]; !ok {
		c.evictLocked()
	}
	c.l1[key] = &cacheEntry{data: data, expiresAt: c.now().Add(ttl)}
}

// evictLocked makes room for one entry when L1 is full.
// Removes expired entries first, then oldest entries if still over limit.
func (c *BrowseCache) evictLocked() {
	if len(c.l1) < c.maxEntries {
		return
	}
	now := c.now()
	for k, e := range c.l1 {
		if !now.Before(e.expiresAt) {
			delete(c.l1, k)
		}
	}
	for len(c.l1) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.l1 {
			// Earlier expiry = older entry (since expiry = createdAt + ttl)
			if first || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt, first = k, e.expiresAt, false
			}
		}
		delete(c.l1, oldestKey)
	}
}

// BrowseLoad returns the cached value for key, or runs load and caches its result.
// Errors are never cached. A nil cache always calls load.
func BrowseLoad[T any](ctx context.Context, c *BrowseCache, key string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	if data, ok := c.get(ctx, key); ok {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			cacheHits.Add(1)
			return out, nil
		}
	}
	cacheMisses.Add(1)

	v, err, _ := c.group.Do(key, func() (any, error) {
		out, err := load(ctx)
		if err != nil {
			return out, err
		}
		if data, err := json.Marshal(out); err == nil {
			c.set(ctx, key, data)
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
