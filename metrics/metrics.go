// Package metrics exports cache counters and gauges to Prometheus.
package metrics

import (
	"time"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/prometheus/client_golang/prometheus"
)

const labelCache = "cache"

// Collector owns the cache metric families of one registry
type Collector struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	invalidations *prometheus.CounterVec

	entries *prometheus.GaugeVec
	hitRate *prometheus.GaugeVec
	bytes   *prometheus.GaugeVec

	taskRuns *prometheus.HistogramVec
}

// NewCollector creates the cache metric families and registers them with reg
// An empty namespace leaves the metric names unprefixed
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache lookups served from a fresh entry",
			},
			[]string{labelCache},
		),
		misses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache lookups that ran the fetcher",
			},
			[]string{labelCache},
		),
		evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of entries evicted by capacity or weight limits",
			},
			[]string{labelCache},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Total number of entries removed by explicit invalidation",
			},
			[]string{labelCache},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Number of entries currently held",
			},
			[]string{labelCache},
		),
		hitRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_hit_rate",
				Help:      "Hits divided by lookups since the last clear",
			},
			[]string{labelCache},
		),
		bytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_bytes",
				Help:      "Approximate aggregate weight of cached values",
			},
			[]string{labelCache},
		),
		taskRuns: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cron_task_duration_seconds",
				Help:      "Duration of scheduled task runs by outcome",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"task", "result"},
		),
	}

	for _, col := range []prometheus.Collector{
		c.hits, c.misses, c.evictions, c.invalidations,
		c.entries, c.hitRate, c.bytes, c.taskRuns,
	} {
		if err := reg.Register(col); err != nil {
			return nil, ErrRegister(err)
		}
	}
	return c, nil
}

// Recorder returns the event hook for the cache called name
func (c *Collector) Recorder(name string) cache.Recorder {
	return &recorder{
		hits:          c.hits.WithLabelValues(name),
		misses:        c.misses.WithLabelValues(name),
		evictions:     c.evictions.WithLabelValues(name),
		invalidations: c.invalidations.WithLabelValues(name),
	}
}

// Observe refreshes the gauges from a stats snapshot
func (c *Collector) Observe(s cache.Stats) {
	c.entries.WithLabelValues(s.Name).Set(float64(s.Entries))
	c.hitRate.WithLabelValues(s.Name).Set(s.HitRate)
	c.bytes.WithLabelValues(s.Name).Set(float64(s.Bytes))
}

// TaskRun records one scheduled task run; it matches cron.RunHook
func (c *Collector) TaskRun(task string, took time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.taskRuns.WithLabelValues(task, result).Observe(took.Seconds())
}

// recorder binds the counters to one cache label up front so the hot path skips label lookup
type recorder struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     prometheus.Counter
	invalidations prometheus.Counter
}

func (r *recorder) Hit()             { r.hits.Inc() }
func (r *recorder) Miss()            { r.misses.Inc() }
func (r *recorder) Evict(n int)      { r.evictions.Add(float64(n)) }
func (r *recorder) Invalidate(n int) { r.invalidations.Add(float64(n)) }
