// Package cache provides the compute-or-fetch cache used to keep expensive lookups
// (vendor records, listings, derived aggregates) in memory between writes.
//
// The cache package follows the cachekit conventions:
// - Interface-driven design: every store satisfies Cache and is chosen by configuration
// - Uses logger.Logger interface for unified logging
// - Configuration with validation and defaults
// - Structured error handling
//
// Available stores:
// - MemoryCache: unbounded map, for keyspaces whose cardinality the caller controls
// - LRUCache: fixed capacity with least-recently-used eviction and optional weight limit
//
// Entries expire after a TTL measured from the last computation, and are removed explicitly
// by key, by wildcard pattern or by tag. Concurrent misses on the same cold key are not
// coalesced: each caller runs its own fetcher and the last store wins.
package cache

import (
	"context"
	"time"

	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// Fetcher computes the value for a key on a cache miss
// It is called at most once per Get and never while the store lock is held
type Fetcher func(ctx context.Context) (any, error)

// Cache is the contract shared by every store implementation
type Cache interface {
	// Get returns the cached value for key if it is younger than the effective TTL,
	// otherwise it calls fetch, stores the result and returns it.
	// Errors returned by fetch are passed through unchanged and nothing is stored.
	//
	// For reference types the cached value itself is returned, not a copy. Callers
	// MUST treat it as read-only.
	Get(ctx context.Context, key string, fetch Fetcher, opts ...Option) (any, error)

	// Invalidate removes the entry for key. Missing keys are ignored.
	Invalidate(key string)

	// InvalidatePattern removes every entry whose whole key matches pattern,
	// where '*' matches any substring and every other character is literal.
	// It returns the number of removed entries.
	InvalidatePattern(pattern string) int

	// InvalidateByTags removes every entry carrying at least one of tags.
	// No tags means nothing is removed. It returns the number of removed entries.
	InvalidateByTags(tags ...string) int

	// Clear removes all entries and resets the hit and miss counters
	Clear()

	// Stats returns a point-in-time snapshot of the counters
	Stats() Stats

	// EntryInfo describes the entries currently held, expired ones included
	EntryInfo() []EntryInfo
}

// New creates the store selected by cfg.Kind
// A nil cfg yields the default bounded store
func New(log logger.Logger, cfg *Config, opts ...StoreOption) (Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindMemory:
		c, err := NewMemory(log, cfg.Memory, opts...)
		if err != nil {
			return nil, err
		}
		log.Info("cache initialized",
			zap.String("kind", cfg.Kind),
			zap.String("cache", cfg.Memory.Name),
			zap.Duration("default_ttl", cfg.Memory.DefaultTTL),
		)
		return c, nil
	default:
		c, err := NewLRU(log, cfg.LRU, opts...)
		if err != nil {
			return nil, err
		}
		log.Info("cache initialized",
			zap.String("kind", cfg.Kind),
			zap.String("cache", cfg.LRU.Name),
			zap.Int("max_entries", cfg.LRU.MaxEntries),
			zap.Duration("default_ttl", cfg.LRU.DefaultTTL),
			zap.Int64("max_bytes", cfg.LRU.MaxBytes),
		)
		return c, nil
	}
}

// GetAs is the typed form of Cache.Get
// It returns ErrUnexpectedType if the value cached under key is not a T
func GetAs[T any](ctx context.Context, c Cache, key string, fetch func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	if fetch == nil {
		return zero, ErrNilFetcher
	}
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts...)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, ErrUnexpectedType(key, zero, v)
	}
	return t, nil
}

// Options holds the per-call overrides of Get
type Options struct {
	// TTL overrides the store default for this call only; it is not stored with the entry.
	// Values <= 0 fall back to the store default.
	TTL time.Duration
	// Tags are attached to the entry when it is (re)computed, replacing previous tags
	Tags []string
}

// Option configures a single Get call
type Option func(*Options)

// WithTTL overrides the freshness window for one Get call
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithTags sets the tags stored with the entry if this call computes it
func WithTags(tags ...string) Option {
	return func(o *Options) {
		o.Tags = append(o.Tags, tags...)
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o Options) ttlOr(def time.Duration) time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	return def
}

// Stats is a point-in-time view of a store's counters
type Stats struct {
	Name string `json:"name"`
	// Size and Entries both carry the current entry count
	Size    int    `json:"size"`
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	// HitRate is Hits/(Hits+Misses), 0 before the first lookup
	HitRate float64 `json:"hit_rate"`
	// Evictions counts capacity and weight driven removals (bounded store only)
	Evictions uint64 `json:"evictions"`
	// Bytes is the approximate aggregate weight (bounded store with MaxBytes only)
	Bytes int64 `json:"bytes"`
}

// Lookups returns the number of Get calls counted since the last Clear
func (s Stats) Lookups() uint64 {
	return s.Hits + s.Misses
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// EntryInfo is a read-only projection of one cached entry
type EntryInfo struct {
	Key         string        `json:"key"`
	Age         time.Duration `json:"age"`
	AccessCount int           `json:"access_count"`
	Tags        []string      `json:"tags,omitempty"`
}

// Recorder receives cache events, typically to feed metrics
// Implementations must be safe for concurrent use and must not call back into the cache
type Recorder interface {
	Hit()
	Miss()
	Evict(n int)
	Invalidate(n int)
}

type nopRecorder struct{}

func (nopRecorder) Hit()           {}
func (nopRecorder) Miss()          {}
func (nopRecorder) Evict(int)      {}
func (nopRecorder) Invalidate(int) {}

// StoreOption configures a store at construction time
type StoreOption func(*storeOptions)

type storeOptions struct {
	recorder Recorder
	now      func() time.Time
}

// WithRecorder reports hits, misses, evictions and invalidations to r
func WithRecorder(r Recorder) StoreOption {
	return func(o *storeOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// withClock replaces the wall clock, used by tests
func withClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		o.now = now
	}
}

func buildStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
