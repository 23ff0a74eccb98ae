package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// MemoryCache is an unbounded map-backed store.
// Entries accumulate until invalidated or cleared, so it only suits keyspaces whose
// cardinality the caller controls (one entry per logical resource, request-scoped caches, tests).
type MemoryCache struct {
	// Dependencies
	logger   logger.Logger
	recorder Recorder
	now      func() time.Time

	// Configuration
	name       string
	defaultTTL time.Duration

	// Runtime state
	mu      sync.Mutex
	entries map[string]*entry
	hits    uint64
	misses  uint64
}

var _ Cache = (*MemoryCache)(nil)

// NewMemory creates a new unbounded cache
// It returns an error if the configuration is invalid
func NewMemory(log logger.Logger, cfg *MemoryConfig, opts ...StoreOption) (*MemoryCache, error) {
	if cfg == nil {
		cfg = DefaultMemoryConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := buildStoreOptions(opts)
	return &MemoryCache{
		logger:     log,
		recorder:   o.recorder,
		now:        o.now,
		name:       cfg.Name,
		defaultTTL: cfg.DefaultTTL,
		entries:    make(map[string]*entry),
	}, nil
}

// Get returns the fresh cached value for key or computes it with fetch
func (c *MemoryCache) Get(ctx context.Context, key string, fetch Fetcher, opts ...Option) (any, error) {
	if fetch == nil {
		return nil, ErrNilFetcher
	}
	o := buildOptions(opts)
	ttl := o.ttlOr(c.defaultTTL)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.fresh(c.now(), ttl) {
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

	c.mu.Lock()
	c.entries[key] = newEntry(data, c.now(), o.Tags)
	c.mu.Unlock()
	return data, nil
}

// Invalidate removes the entry for key if present
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if ok {
		c.recorder.Invalidate(1)
	}
}

// InvalidatePattern removes every entry whose key matches pattern
func (c *MemoryCache) InvalidatePattern(pattern string) int {
	match := compilePattern(pattern)

	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.invalidated("pattern", pattern, removed)
	return removed
}

// InvalidateByTags removes every entry tagged with at least one of tags
func (c *MemoryCache) InvalidateByTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	set := tagSet(tags)

	c.mu.Lock()
	removed := 0
	for key, e := range c.entries {
		if e.hasAnyTag(set) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.invalidated("tags", tags, removed)
	return removed
}

// Clear removes all entries and resets the counters
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()

	c.logger.Debug("cache cleared", zap.String("cache", c.name), zap.Int("removed", n))
}

// Stats returns the current counters
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Name:    c.name,
		Size:    len(c.entries),
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate(c.hits, c.misses),
	}
}

// EntryInfo describes every held entry, sorted by key
func (c *MemoryCache) EntryInfo() []EntryInfo {
	c.mu.Lock()
	now := c.now()
	infos := make([]EntryInfo, 0, len(c.entries))
	for key, e := range c.entries {
		infos = append(infos, e.info(key, now))
	}
	c.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

func (c *MemoryCache) invalidated(by string, target any, removed int) {
	if removed == 0 {
		return
	}
	c.recorder.Invalidate(removed)
	c.logger.Debug("cache invalidated",
		zap.String("cache", c.name),
		zap.String("by", by),
		zap.Any("target", target),
		zap.Int("removed", removed),
	)
}
