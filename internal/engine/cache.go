package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// lookupCache provides 2-tier caching for backend code→id lookups:
// L1 in-memory + L2 Redis. L1 is fast but lost on restart. L2 survives
// restarts, which is what makes re-runs over a large id range cheap.
var lookupCache *tieredCache

// CacheTTL controls how long resolved ids stay cached. Backend ids are
// immutable once assigned, so the TTL only bounds memory, not correctness.
var CacheTTL = 24 * time.Hour

// Cache metrics — atomic counters for thread-safe access.
var (
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
)

// tieredCache implements L1 (memory) + L2 (Redis) caching.
type tieredCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
}

type cacheEntry struct {
	id        string
	expiresAt time.Time
}

// InitCache sets up the 2-tier cache. Call after Init().
// redisURL can be empty to disable L2.
func InitCache(redisURL string, ttl time.Duration, maxEntries int, cleanupInterval time.Duration) {
	c := &tieredCache{ttl: ttl, maxEntries: maxEntries, cleanupInterval: cleanupInterval}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	lookupCache = c
	slog.Info("cache: initialized", slog.Duration("ttl", ttl), slog.Bool("redis", c.rdb != nil), slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("gp:%x", hash[:12]) // 24-char hex prefix
}

// CacheGetID tries L1, then L2. On L2 hit, populates L1.
func CacheGetID(ctx context.Context, key string) (string, bool) {
	if lookupCache == nil {
		cacheMisses.Add(1)
		return "", false
	}

	if val, ok := lookupCache.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			cacheHits.Add(1)
			return entry.id, true
		}
		lookupCache.l1.Delete(key) // expired
	}

	if lookupCache.rdb != nil {
		id, err := lookupCache.rdb.Get(ctx, key).Result()
		if err == nil && id != "" {
			slog.Debug("cache: L2 hit", slog.String("key", key))
			cacheHits.Add(1)
			lookupCache.l1.Store(key, &cacheEntry{
				id:        id,
				expiresAt: time.Now().Add(lookupCache.ttl),
			})
			return id, true
		}
	}

	cacheMisses.Add(1)
	return "", false
}

// CacheSetID stores a resolved id in both L1 and L2.
func CacheSetID(ctx context.Context, key, id string) {
	if lookupCache == nil || id == "" {
		return
	}

	lookupCache.evictIfNeeded()

	lookupCache.l1.Store(key, &cacheEntry{
		id:        id,
		expiresAt: time.Now().Add(lookupCache.ttl),
	})

	if lookupCache.rdb != nil {
		if err := lookupCache.rdb.Set(ctx, key, id, lookupCache.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// CacheStats returns hit/miss counters.
func CacheStats() (hits, misses int64) {
	return cacheHits.Load(), cacheMisses.Load()
}

// evictIfNeeded drops expired entries, then arbitrary ones, when L1 is full.
func (c *tieredCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return count < c.maxEntries
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	removed := 0
	c.l1.Range(func(k, v any) bool {
		if now.After(v.(*cacheEntry).expiresAt) {
			c.l1.Delete(k)
			removed++
		}
		return true
	})
	if removed > 0 {
		return
	}
	// No expired entries: drop a slice of arbitrary ones.
	c.l1.Range(func(k, _ any) bool {
		c.l1.Delete(k)
		removed++
		return removed < c.maxEntries/10+1
	})
}

// cleanupLoop periodically removes expired L1 entries.
func (c *tieredCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	for range time.Tick(interval) {
		now := time.Now()
		c.l1.Range(func(k, v any) bool {
			if now.After(v.(*cacheEntry).expiresAt) {
				c.l1.Delete(k)
			}
			return true
		})
	}
}
