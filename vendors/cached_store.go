package vendors

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/invalidation"
	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

const collection = "vendors"

// CachedStore decorates a Store with the shared cache.
// Returned vendors and slices are shared with the cache and must not be modified.
type CachedStore struct {
	logger      logger.Logger
	store       Store
	cache       cache.Cache
	invalidator *invalidation.Invalidator
	// ttl overrides the cache default when > 0
	ttl time.Duration
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore creates a CachedStore; writes go to store and are then invalidated through inv
func NewCachedStore(log logger.Logger, store Store, c cache.Cache, inv *invalidation.Invalidator, ttl time.Duration) *CachedStore {
	return &CachedStore{
		logger:      log,
		store:       store,
		cache:       c,
		invalidator: inv,
		ttl:         ttl,
	}
}

func idKey(id uint64) string     { return collection + ":id:" + strconv.FormatUint(id, 10) }
func slugKey(slug string) string { return collection + ":slug:" + slug }
func tierKey(tier Tier) string   { return collection + ":tier:" + string(tier) }

func (s *CachedStore) FindByID(ctx context.Context, id uint64) (*Vendor, error) {
	return cache.GetAs(ctx, s.cache, idKey(id), func(ctx context.Context) (*Vendor, error) {
		return s.store.FindByID(ctx, id)
	}, cache.WithTTL(s.ttl), cache.WithTags(cache.EntityTags(collection, strconv.FormatUint(id, 10))...))
}

func (s *CachedStore) FindBySlug(ctx context.Context, slug string) (*Vendor, error) {
	return cache.GetAs(ctx, s.cache, slugKey(slug), func(ctx context.Context) (*Vendor, error) {
		return s.store.FindBySlug(ctx, slug)
	}, cache.WithTTL(s.ttl), cache.WithTags(collection, slugKey(slug)))
}

func (s *CachedStore) ListByTier(ctx context.Context, tier Tier) ([]Vendor, error) {
	return cache.GetAs(ctx, s.cache, tierKey(tier), func(ctx context.Context) ([]Vendor, error) {
		return s.store.ListByTier(ctx, tier)
	}, cache.WithTTL(s.ttl), cache.WithTags(collection, tierKey(tier)))
}

// Save writes v and invalidates every entry that may show its previous or new state
func (s *CachedStore) Save(ctx context.Context, v *Vendor) error {
	var before *Vendor
	if v.ID != 0 {
		prev, err := s.store.FindByID(ctx, v.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		before = prev
	}

	if err := s.store.Save(ctx, v); err != nil {
		return err
	}
	return s.invalidate(ctx, before, v)
}

// Approve approves the vendor and invalidates its entries and tier list
func (s *CachedStore) Approve(ctx context.Context, id uint64) error {
	if err := s.store.Approve(ctx, id); err != nil {
		return err
	}
	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.invalidate(ctx, nil, v)
}

// InvalidateAll drops every cached vendor entry, for bulk imports
func (s *CachedStore) InvalidateAll(ctx context.Context) error {
	n, err := s.invalidator.Pattern(ctx, cache.CollectionPattern(collection, ""))
	s.logger.Info("vendor cache invalidated", zap.Int("removed", n))
	return err
}

func (s *CachedStore) invalidate(ctx context.Context, versions ...*Vendor) error {
	seen := make(map[string]struct{})
	var tags []string
	add := func(tag string) {
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	for _, v := range versions {
		if v == nil {
			continue
		}
		// the fine-grained entity tag; the coarse one would drop the whole collection
		add(cache.EntityTags(collection, strconv.FormatUint(v.ID, 10))[1])
		add(slugKey(v.Slug))
		add(tierKey(v.Tier))
	}

	n, err := s.invalidator.Tags(ctx, tags...)
	s.logger.Debug("vendor entries invalidated", zap.Strings("tags", tags), zap.Int("removed", n))
	return err
}
