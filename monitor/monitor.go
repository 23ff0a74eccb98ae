// Package monitor reports cache statistics on a schedule.
package monitor

import (
	"context"
	"time"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/ch"
	"github.com/dailyyoga/cachekit/cron"
	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// Source is anything that exposes cache stats
type Source interface {
	Stats() cache.Stats
}

// Observer receives every snapshot, typically the metrics collector
type Observer interface {
	Observe(s cache.Stats)
}

// StatsTask logs the stats of every source, pushes them to the observer
// and appends them to the sink
type StatsTask struct {
	logger   logger.Logger
	host     string
	sources  []Source
	observer Observer
	sink     ch.Sink
	now      func() time.Time
}

var _ cron.Task = (*StatsTask)(nil)

// NewStatsTask creates the report task; observer and sink may be nil
func NewStatsTask(log logger.Logger, host string, sources []Source, observer Observer, sink ch.Sink) *StatsTask {
	return &StatsTask{
		logger:   log,
		host:     host,
		sources:  sources,
		observer: observer,
		sink:     sink,
		now:      time.Now,
	}
}

func (t *StatsTask) Name() string {
	return "cache-stats-report"
}

func (t *StatsTask) Run(ctx context.Context) error {
	at := t.now()
	snapshots := make([]ch.Snapshot, 0, len(t.sources))

	for _, src := range t.sources {
		s := src.Stats()
		t.logger.Info("cache stats",
			zap.String("cache", s.Name),
			zap.Int("entries", s.Entries),
			zap.Uint64("hits", s.Hits),
			zap.Uint64("misses", s.Misses),
			zap.Float64("hit_rate", s.HitRate),
			zap.Uint64("evictions", s.Evictions),
			zap.Int64("bytes", s.Bytes),
		)
		if t.observer != nil {
			t.observer.Observe(s)
		}
		snapshots = append(snapshots, ch.NewSnapshot(t.host, at, s))
	}

	if t.sink == nil {
		return nil
	}
	return t.sink.Write(ctx, snapshots)
}
