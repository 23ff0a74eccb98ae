package db

import (
	"context"
	"sync/atomic"

	"github.com/dailyyoga/cachekit/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type mysqlDatabase struct {
	logger logger.Logger
	name   string
	db     *gorm.DB
	closed atomic.Bool
}

// NewMySQL opens and pings a MySQL connection pool
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig("config is required")
	}
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   newGormLogger(log, cfg.LogLevel, cfg.SlowThreshold),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SlowThreshold*5)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, ErrConnection(err)
	}

	log.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return &mysqlDatabase{logger: log, name: cfg.Database, db: gdb}, nil
}

func (d *mysqlDatabase) DB() (*gorm.DB, error) {
	if d.db == nil || d.closed.Load() {
		return nil, ErrConnectionNotEstablished
	}
	return d.db, nil
}

func (d *mysqlDatabase) Ping(ctx context.Context) error {
	gdb, err := d.DB()
	if err != nil {
		return err
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

func (d *mysqlDatabase) RegisterMetrics(reg prometheus.Registerer) error {
	gdb, err := d.DB()
	if err != nil {
		return err
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return ErrConnection(err)
	}
	if err := reg.Register(collectors.NewDBStatsCollector(sqldb, d.name)); err != nil {
		return ErrRegisterMetrics(d.name, err)
	}
	return nil
}

func (d *mysqlDatabase) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	sqldb, err := d.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	if err := sqldb.Close(); err != nil {
		return err
	}
	d.logger.Info("database connection closed", zap.String("database", d.name))
	return nil
}
