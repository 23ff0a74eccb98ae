package invalidation

import (
	"context"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// Invalidator is what writers call after a mutation.
// It invalidates the local cache first, then broadcasts the same invalidation.
// A broadcast failure is logged and returned, but the local cache is already coherent.
type Invalidator struct {
	logger      logger.Logger
	cache       cache.Cache
	broadcaster Broadcaster
}

// NewInvalidator creates an Invalidator; a nil broadcaster keeps invalidation process-local
func NewInvalidator(log logger.Logger, c cache.Cache, b Broadcaster) *Invalidator {
	return &Invalidator{
		logger:      log,
		cache:       c,
		broadcaster: b,
	}
}

// Key removes one key everywhere
func (inv *Invalidator) Key(ctx context.Context, key string) error {
	inv.cache.Invalidate(key)
	return inv.broadcast(ctx, Event{Kind: KindKey, Key: key})
}

// Pattern removes the keys matching pattern everywhere and returns the local count
func (inv *Invalidator) Pattern(ctx context.Context, pattern string) (int, error) {
	n := inv.cache.InvalidatePattern(pattern)
	return n, inv.broadcast(ctx, Event{Kind: KindPattern, Pattern: pattern})
}

// Tags removes the entries carrying any of tags everywhere and returns the local count
func (inv *Invalidator) Tags(ctx context.Context, tags ...string) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	n := inv.cache.InvalidateByTags(tags...)
	return n, inv.broadcast(ctx, Event{Kind: KindTags, Tags: tags})
}

// Clear empties every cache
func (inv *Invalidator) Clear(ctx context.Context) error {
	inv.cache.Clear()
	return inv.broadcast(ctx, Event{Kind: KindClear})
}

// Invalidate validates e and performs it through the matching method.
// Key events report 1 like Event.Apply; Clear reports the local size before clearing.
func (inv *Invalidator) Invalidate(ctx context.Context, e Event) (int, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	switch e.Kind {
	case KindKey:
		return 1, inv.Key(ctx, e.Key)
	case KindPattern:
		return inv.Pattern(ctx, e.Pattern)
	case KindTags:
		return inv.Tags(ctx, e.Tags...)
	default:
		n := inv.cache.Stats().Size
		return n, inv.Clear(ctx)
	}
}

func (inv *Invalidator) broadcast(ctx context.Context, e Event) error {
	if inv.broadcaster == nil {
		return nil
	}
	if err := inv.broadcaster.Publish(ctx, e); err != nil {
		inv.logger.Error("invalidation broadcast failed",
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
		return err
	}
	return nil
}
