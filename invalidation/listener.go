package invalidation

import (
	"context"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/kafka"
	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// Listener applies the events published by other processes to the local cache
type Listener struct {
	logger logger.Logger
	cache  cache.Cache
	origin string
}

// NewListener creates a Listener that ignores events from origin
func NewListener(log logger.Logger, c cache.Cache, origin string) *Listener {
	return &Listener{
		logger: log,
		cache:  c,
		origin: origin,
	}
}

// Handle is a kafka.Handler.
// Malformed events are logged and dropped so their offset is committed.
func (l *Listener) Handle(ctx context.Context, msg *kafka.Message) error {
	if origin := msg.GetHeader(headerOrigin); origin != nil && string(origin) == l.origin {
		return nil
	}

	e, err := Decode(msg.Value)
	if err != nil {
		l.logger.Warn("invalidation event dropped",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}
	if e.Origin == l.origin {
		return nil
	}

	n := e.Apply(l.cache)
	l.logger.Debug("invalidation event applied",
		zap.String("kind", string(e.Kind)),
		zap.String("origin", e.Origin),
		zap.Int("removed", n),
	)
	return nil
}
