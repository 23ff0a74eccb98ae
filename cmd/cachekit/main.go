// Command cachekit runs a cache node: the shared cache, its metrics and admin endpoints,
// the kafka invalidation bus, the vendor store and the periodic stats report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dailyyoga/cachekit/admin"
	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/ch"
	"github.com/dailyyoga/cachekit/config"
	"github.com/dailyyoga/cachekit/cron"
	"github.com/dailyyoga/cachekit/db"
	"github.com/dailyyoga/cachekit/invalidation"
	"github.com/dailyyoga/cachekit/kafka"
	"github.com/dailyyoga/cachekit/logger"
	"github.com/dailyyoga/cachekit/metrics"
	"github.com/dailyyoga/cachekit/monitor"
	"github.com/dailyyoga/cachekit/vendors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "cachekit.yaml", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cachekit: %v\n", err)
		os.Exit(1)
	}
}

// closers shuts components down in reverse construction order
type closers struct {
	log logger.Logger
	fns []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (c *closers) add(name string, fn func() error) {
	c.fns = append(c.fns, namedCloser{name: name, close: fn})
}

func (c *closers) closeAll() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i].close(); err != nil {
			c.log.Warn("shutdown failed", zap.String("component", c.fns[i].name), zap.Error(err))
			continue
		}
		c.log.Debug("component closed", zap.String("component", c.fns[i].name))
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer log.Sync()
	log = logger.With(log, zap.String("host", cfg.Report.Host))

	shutdown := &closers{log: log}
	defer shutdown.closeAll()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(reg, cfg.Metrics.Namespace)
	if err != nil {
		return err
	}

	c, err := cache.New(log, cfg.Cache, cache.WithRecorder(collector.Recorder(cfg.Cache.StoreName())))
	if err != nil {
		return err
	}

	inv, err := startInvalidationBus(ctx, log, cfg.Kafka, c, shutdown)
	if err != nil {
		return err
	}

	var directory *vendors.CachedStore
	if cfg.DB != nil {
		if directory, err = startVendors(ctx, log, cfg.DB, reg, c, inv, shutdown); err != nil {
			return err
		}
	}

	var sink ch.Sink
	if cfg.ClickHouse != nil {
		if sink, err = ch.NewSink(log, cfg.ClickHouse); err != nil {
			return err
		}
		shutdown.add("clickhouse sink", sink.Close)
	}

	scheduler := cron.New(log, cron.WithRunHook(collector.TaskRun), cron.WithTimeout(30*time.Second))
	report := monitor.NewStatsTask(log, cfg.Report.Host, []monitor.Source{c}, collector, sink)
	if err := scheduler.AddTask(cfg.Report.Spec, report); err != nil {
		return err
	}
	scheduler.Start(ctx)
	shutdown.add("cron scheduler", func() error {
		scheduler.Close()
		return nil
	})

	router := admin.NewRouter(
		admin.NewHandler(log, c, inv),
		cfg.Metrics.Path,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	)
	if directory != nil {
		admin.MountVendors(router, admin.NewVendorHandler(log, directory))
	}
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("admin server listening", zap.String("addr", srv.Addr), zap.String("metrics", cfg.Metrics.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// startInvalidationBus wires the kafka producer and consumer when configured.
// Without kafka the returned invalidator only touches the local cache.
func startInvalidationBus(ctx context.Context, log logger.Logger, cfg *config.KafkaConfig, c cache.Cache, shutdown *closers) (*invalidation.Invalidator, error) {
	if cfg == nil {
		log.Info("kafka not configured, invalidations stay local")
		return invalidation.NewInvalidator(log, c, nil), nil
	}

	var broadcaster invalidation.Broadcaster
	if cfg.Producer != nil {
		producer, err := kafka.NewProducer(log, cfg.Producer)
		if err != nil {
			return nil, err
		}
		shutdown.add("kafka producer", producer.Close)

		publisher, err := invalidation.NewPublisher(producer, cfg.Invalidation)
		if err != nil {
			return nil, err
		}
		broadcaster = publisher
	}

	if cfg.Consumer != nil {
		consumerCfg := *cfg.Consumer
		consumerCfg.GroupID = cfg.Invalidation.ConsumerGroup(consumerCfg.GroupID)
		consumer, err := kafka.NewConsumer(log, &consumerCfg)
		if err != nil {
			return nil, err
		}
		shutdown.add("kafka consumer", consumer.Close)

		listener := invalidation.NewListener(log, c, cfg.Invalidation.Origin)
		if err := consumer.Start(ctx, listener.Handle); err != nil {
			return nil, err
		}
	}

	return invalidation.NewInvalidator(log, c, broadcaster), nil
}

// startVendors opens the vendor database, warms the per-tier listings and
// returns the cached store served by the admin router
func startVendors(ctx context.Context, log logger.Logger, cfg *db.Config, reg prometheus.Registerer, c cache.Cache, inv *invalidation.Invalidator, shutdown *closers) (*vendors.CachedStore, error) {
	database, err := db.NewMySQL(log, cfg)
	if err != nil {
		return nil, err
	}
	shutdown.add("mysql", database.Close)
	if err := database.RegisterMetrics(reg); err != nil {
		return nil, err
	}

	gormStore, err := vendors.NewGormStore(database)
	if err != nil {
		return nil, err
	}
	if err := gormStore.Migrate(ctx); err != nil {
		return nil, err
	}

	store := vendors.NewCachedStore(log, gormStore, c, inv, 0)
	for _, tier := range []vendors.Tier{vendors.TierGold, vendors.TierSilver, vendors.TierFree} {
		list, err := store.ListByTier(ctx, tier)
		if err != nil {
			log.Warn("vendor warmup failed", zap.String("tier", string(tier)), zap.Error(err))
			continue
		}
		log.Info("vendor tier warmed", zap.String("tier", string(tier)), zap.Int("vendors", len(list)))
	}
	return store, nil
}
