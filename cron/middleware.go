package cron

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// Middleware wraps a Task with additional behavior
type Middleware func(Task) Task

// RunHook observes the outcome of every run, e.g. to record metrics
type RunHook func(task string, took time.Duration, err error)

// applyMiddlewares applies mws so that the first one is the outermost:
// applyMiddlewares(t, mw1, mw2) runs mw1(mw2(t))
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// around builds a middleware from a function that receives the wrapped task
func around(wrap func(ctx context.Context, next Task) error) Middleware {
	return func(next Task) Task {
		return TaskFunc(next.Name(), func(ctx context.Context) error {
			return wrap(ctx, next)
		})
	}
}

// WithTimeout bounds every run of a task to d
func WithTimeout(d time.Duration) Middleware {
	return around(func(ctx context.Context, next Task) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Run(ctx)
	})
}

// WithRunHook reports every run to hook after it returns
func WithRunHook(hook RunHook) Middleware {
	return around(func(ctx context.Context, next Task) error {
		start := time.Now()
		err := next.Run(ctx)
		hook(next.Name(), time.Since(start), err)
		return err
	})
}

// recoveryMiddleware turns a panic into ErrPanic so one bad run cannot stop the scheduler
func recoveryMiddleware(log logger.Logger) Middleware {
	return around(func(ctx context.Context, next Task) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("task panicked",
					zap.String("task", next.Name()),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
				err = ErrPanic(next.Name(), r)
			}
		}()
		return next.Run(ctx)
	})
}

// loggingMiddleware logs failures at Error and successes at Debug
func loggingMiddleware(log logger.Logger) Middleware {
	return around(func(ctx context.Context, next Task) error {
		start := time.Now()
		err := next.Run(ctx)
		fields := []zap.Field{
			zap.String("task", next.Name()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			log.Error("task failed", append(fields, zap.Error(err))...)
			return err
		}
		log.Debug("task completed", fields...)
		return nil
	})
}

type funcTask struct {
	name string
	run  func(ctx context.Context) error
}

func (t *funcTask) Name() string {
	return t.name
}

func (t *funcTask) Run(ctx context.Context) error {
	return t.run(ctx)
}
