// Package ch records cache stats history in ClickHouse.
//
// Snapshots are buffered in memory and written in batches, either once FlushSize
// snapshots are pending or every FlushInterval. Close drains the buffer before returning.
package ch

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dailyyoga/cachekit/logger"
	"github.com/dailyyoga/cachekit/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

// Sink accepts stats snapshots for asynchronous storage
type Sink interface {
	Write(ctx context.Context, rows []Snapshot) error
	Close() error
}

type flushFunc func(ctx context.Context, rows []Snapshot) error

type defaultSink struct {
	config *Config
	logger logger.Logger

	conn  driver.Conn
	flush flushFunc

	data   *chanx.UnboundedChan[Snapshot]
	cancel context.CancelFunc
	runner routine.Runner

	mu     sync.RWMutex
	closed bool
}

// NewSink connects to ClickHouse and starts the flush loop
func NewSink(log logger.Logger, config *Config) (Sink, error) {
	if config == nil {
		return nil, ErrInvalidConfig("config is required")
	}
	config = config.MergeDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: config.Hosts,
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
		Debug:       config.Debug,
		Settings:    config.Settings,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, ErrConnection(err)
	}
	if config.CreateTable {
		if err := conn.Exec(ctx, createTableQuery(config.Table)); err != nil {
			conn.Close()
			return nil, ErrConnection(err)
		}
	}

	s := newSink(log, config, nil)
	s.conn = conn
	s.flush = s.batchInsert
	s.start()

	log.Info("clickhouse stats sink initialized",
		zap.Strings("hosts", config.Hosts),
		zap.String("database", config.Database),
		zap.String("table", config.Table),
	)
	return s, nil
}

// newSink builds a sink around flush without starting it
func newSink(log logger.Logger, config *Config, flush flushFunc) *defaultSink {
	ctx, cancel := context.WithCancel(context.Background())
	return &defaultSink{
		config: config,
		logger: log,
		flush:  flush,
		data:   chanx.NewUnboundedChan[Snapshot](ctx, config.FlushSize),
		cancel: cancel,
		runner: routine.New(log),
	}
}

func (s *defaultSink) start() {
	s.runner.GoNamed("ch-stats-flush", s.processLoop)
}

// Write enqueues rows; it only blocks until the buffer goroutine accepts them
func (s *defaultSink) Write(ctx context.Context, rows []Snapshot) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	for _, row := range rows {
		select {
		case s.data.In <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting rows, flushes what is buffered and closes the connection
func (s *defaultSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.data.In)
	s.mu.Unlock()

	s.runner.Wait()
	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Error("clickhouse connection close failed", zap.Error(err))
			return err
		}
	}
	s.logger.Info("clickhouse stats sink closed")
	return nil
}

// processLoop batches rows until the input is closed and fully drained
func (s *defaultSink) processLoop() {
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	buffer := make([]Snapshot, 0, s.config.FlushSize)
	for {
		select {
		case row, ok := <-s.data.Out:
			if !ok {
				s.write(buffer)
				return
			}
			buffer = append(buffer, row)
			if len(buffer) >= s.config.FlushSize {
				s.write(buffer)
				buffer = make([]Snapshot, 0, s.config.FlushSize)
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				s.write(buffer)
				buffer = make([]Snapshot, 0, s.config.FlushSize)
			}
		}
	}
}

func (s *defaultSink) write(rows []Snapshot) {
	if len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.FlushInterval)
	defer cancel()

	if err := s.flush(ctx, rows); err != nil {
		s.logger.Error("stats flush failed", zap.Int("rows", len(rows)), zap.Error(err))
		return
	}
	s.logger.Debug("stats flushed", zap.Int("rows", len(rows)))
}

func (s *defaultSink) batchInsert(ctx context.Context, rows []Snapshot) error {
	batch, err := s.conn.PrepareBatch(ctx, insertQuery(s.config.Table))
	if err != nil {
		return ErrInsert(s.config.Table, err)
	}
	for _, row := range rows {
		if err := batch.Append(row.values()...); err != nil {
			return ErrInsert(s.config.Table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return ErrInsert(s.config.Table, err)
	}
	return nil
}
