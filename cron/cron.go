// Package cron schedules periodic cachekit jobs such as the stats report.
//
// Specs use six fields with seconds ("*/30 * * * * *") or descriptors ("@every 1m").
// A job whose previous run is still in progress is skipped rather than stacked.
package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/dailyyoga/cachekit/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of scheduled work
type Task interface {
	// Name identifies the task in logs
	Name() string
	// Run executes the task; ctx is cancelled when the scheduler closes
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
func TaskFunc(name string, fn func(ctx context.Context) error) Task {
	return &funcTask{name: name, run: fn}
}

// Scheduler runs tasks on cron specs
type Scheduler interface {
	// AddTask registers t to run on spec; it may be called before or after Start
	AddTask(spec string, t Task) error
	// Start begins scheduling; runs receive a context derived from ctx
	Start(ctx context.Context)
	// Close stops scheduling, cancels running tasks and waits for them to return
	Close()
}

type scheduler struct {
	logger      logger.Logger
	cron        *cron.Cron
	middlewares []Middleware

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler; every task is wrapped with recovery and logging
// before the given middlewares
func New(log logger.Logger, mws ...Middleware) Scheduler {
	cl := cronLogger{log}
	ctx, cancel := context.WithCancel(context.Background())
	return &scheduler{
		logger: log,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		middlewares: append([]Middleware{recoveryMiddleware(log), loggingMiddleware(log)}, mws...),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *scheduler) AddTask(spec string, t Task) error {
	if t == nil {
		return ErrNilTask
	}
	wrapped := applyMiddlewares(t, s.middlewares...)

	if _, err := s.cron.AddFunc(spec, func() {
		_ = wrapped.Run(s.runContext())
	}); err != nil {
		return ErrInvalidSpec(spec, err)
	}

	s.logger.Info("cron task added", zap.String("task", t.Name()), zap.String("spec", spec))
	return nil
}

func (s *scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("cron scheduler started", zap.Int("tasks", len(s.cron.Entries())))
}

func (s *scheduler) Close() {
	stopped := s.cron.Stop()

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	<-stopped.Done()
	s.logger.Info("cron scheduler stopped")
}

func (s *scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// cronLogger routes robfig/cron's own messages to zap
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), zap.Error(err))...)
}

func kvFields(kv []any) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
