package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/cachekit/logger"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"
)

// LRUCache is a bounded store that evicts the least recently used entry when full.
// Hits refresh recency but never the entry's TTL, which is always measured from the
// last computation. With MaxBytes set, entries are also weighed by an approximate
// encoded size and the oldest are evicted until the total fits.
type LRUCache struct {
	// Dependencies
	logger   logger.Logger
	recorder Recorder
	now      func() time.Time

	// Configuration
	name       string
	defaultTTL time.Duration
	maxEntries int
	maxBytes   int64

	// Runtime state, all guarded by mu (simplelru is not safe for concurrent use)
	mu        sync.Mutex
	lru       *simplelru.LRU[string, *entry]
	bytes     int64
	hits      uint64
	misses    uint64
	evictions uint64
}

var _ Cache = (*LRUCache)(nil)

// NewLRU creates a new bounded cache
// It returns an error if the configuration is invalid
func NewLRU(log logger.Logger, cfg *LRUConfig, opts ...StoreOption) (*LRUCache, error) {
	if cfg == nil {
		cfg = DefaultLRUConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildStoreOptions(opts)
	c := &LRUCache{
		logger:     log,
		recorder:   o.recorder,
		now:        o.now,
		name:       cfg.Name,
		defaultTTL: cfg.DefaultTTL,
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
	}

	// every removal path (eviction, Remove, Purge) goes through onRemoved, except
	// in-place replacement by Add which store accounts for itself
	l, err := simplelru.NewLRU[string, *entry](cfg.MaxEntries, c.onRemoved)
	if err != nil {
		return nil, ErrInvalidMaxEntries(cfg.MaxEntries)
	}
	c.lru = l
	return c, nil
}

func (c *LRUCache) onRemoved(_ string, e *entry) {
	c.bytes -= e.size
}

// Get returns the fresh cached value for key or computes it with fetch
func (c *LRUCache) Get(ctx context.Context, key string, fetch Fetcher, opts ...Option) (any, error) {
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	o := buildOptions(opts)
	ttl := o.ttlOr(c.defaultTTL)

	c.mu.Lock()
	// peek first so a stale entry does not gain recency
	if e, ok := c.lru.Peek(key); ok && e.fresh(c.now(), ttl) {
		c.lru.Get(key)
		e.accessCount++
		c.hits++
		data := e.data
		c.mu.Unlock()
		c.recorder.Hit()
		return data, nil
	}
	c.misses++
	c.mu.Unlock()
	c.recorder.Miss()

	data, err := fetch(ctx)
	if err != nil {
		c.logger.Debug("cache fetch failed",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}

	c.store(key, data, o.Tags)
	return data, nil
}

// store inserts or replaces key and evicts until both limits hold
func (c *LRUCache) store(key string, data any, tags []string) {
	var size int64
	if c.maxBytes > 0 {
		size = estimateSize(data)
	}

	c.mu.Lock()
	if c.maxBytes > 0 && size > c.maxBytes {
		c.lru.Remove(key)
		c.mu.Unlock()
		c.logger.Debug("cache value exceeds max bytes, not stored",
			zap.String("cache", c.name),
			zap.String("key", key),
			zap.Int64("size", size),
			zap.Int64("max_bytes", c.maxBytes),
		)
		return
	}

	e := newEntry(data, c.now(), tags)
	e.size = size
	if old, ok := c.lru.Peek(key); ok {
		c.bytes -= old.size
	}

	evicted := 0
	if c.lru.Add(key, e) {
		evicted++
	}
	c.bytes += size
	for c.maxBytes > 0 && c.bytes > c.maxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
		evicted++
	}
	c.evictions += uint64(evicted)
	c.mu.Unlock()

	if evicted > 0 {
		c.recorder.Evict(evicted)
		c.logger.Debug("cache evicted entries",
			zap.String("cache", c.name),
			zap.Int("evicted", evicted),
		)
	}
}

// Invalidate removes the entry for key if present
func (c *LRUCache) Invalidate(key string) {
	c.mu.Lock()
	ok := c.lru.Remove(key)
	c.mu.Unlock()

	if ok {
		c.recorder.Invalidate(1)
	}
}

// InvalidatePattern removes every entry whose key matches pattern
func (c *LRUCache) InvalidatePattern(pattern string) int {
	match := compilePattern(pattern)
	return c.removeWhere("pattern", pattern, func(key string, _ *entry) bool {
		return match(key)
	})
}

// InvalidateByTags removes every entry tagged with at least one of tags
func (c *LRUCache) InvalidateByTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	set := tagSet(tags)
	return c.removeWhere("tags", tags, func(_ string, e *entry) bool {
		return e.hasAnyTag(set)
	})
}

// removeWhere scans the keys with Peek so the scan leaves recency untouched
func (c *LRUCache) removeWhere(by string, target any, pred func(key string, e *entry) bool) int {
	c.mu.Lock()
	removed := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && pred(key, e) {
			c.lru.Remove(key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.recorder.Invalidate(removed)
		c.logger.Debug("cache invalidated",
			zap.String("cache", c.name),
			zap.String("by", by),
			zap.Any("target", target),
			zap.Int("removed", removed),
		)
	}
	return removed
}

// Clear removes all entries and resets the counters
func (c *LRUCache) Clear() {
	c.mu.Lock()
	n := c.lru.Len()
	c.lru.Purge()
	c.bytes = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
	c.mu.Unlock()

	c.logger.Debug("cache cleared", zap.String("cache", c.name), zap.Int("removed", n))
}

// Stats returns the current counters
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lru.Len()
	return Stats{
		Name:      c.name,
		Size:      n,
		Entries:   n,
		Hits:      c.hits,
		Misses:    c.misses,
		HitRate:   hitRate(c.hits, c.misses),
		Evictions: c.evictions,
		Bytes:     c.bytes,
	}
}

// EntryInfo describes every held entry, most recently used first
func (c *LRUCache) EntryInfo() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := c.lru.Keys()
	infos := make([]EntryInfo, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if e, ok := c.lru.Peek(keys[i]); ok {
			infos = append(infos, e.info(keys[i], now))
		}
	}
	return infos
}

// Capacity returns the configured maximum number of entries
func (c *LRUCache) Capacity() int {
	return c.maxEntries
}
