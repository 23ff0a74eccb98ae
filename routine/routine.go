// Package routine runs the background loops of cachekit (consume loops, delivery reports,
// sink flushers) in goroutines that recover and log panics instead of crashing the process.
package routine

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyyoga/cachekit/logger"
	"go.uber.org/zap"
)

// Runner starts named goroutines and tracks them until Wait
type Runner interface {
	// GoNamed executes fn in a new goroutine with panic recovery
	// The name is used for logging purposes
	GoNamed(name string, fn func())

	// GoNamedWithContext executes fn with ctx in a new goroutine with panic recovery
	GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context))

	// GoSupervised runs fn and restarts it after a panic, waiting backoff between runs,
	// until fn returns normally or ctx is done
	GoSupervised(ctx context.Context, name string, backoff time.Duration, fn func(ctx context.Context))

	// Wait waits for all goroutines started by this runner to complete
	Wait()

	// Panics returns the number of panics recovered so far
	Panics() int64
}

type defaultRunner struct {
	log    logger.Logger
	wg     sync.WaitGroup
	panics atomic.Int64
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{
		log: log,
	}
}

func (r *defaultRunner) GoNamed(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.recover(name)
		fn()
	}()
}

func (r *defaultRunner) GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.GoNamed(name, func() { fn(ctx) })
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

func (r *defaultRunner) Panics() int64 {
	return r.panics.Load()
}

func (r *defaultRunner) recover(name string) {
	if rec := recover(); rec != nil {
		r.panics.Add(1)
		logPanic(r.log, name, rec)
	}
}

func (r *defaultRunner) GoSupervised(ctx context.Context, name string, backoff time.Duration, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for restarts := 0; ; restarts++ {
			if !r.runOnce(ctx, name, fn) {
				return
			}
			r.log.Warn("restarting goroutine after panic",
				zap.String("routine", name),
				zap.Int("restarts", restarts+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}()
}

// runOnce reports whether fn panicked
func (r *defaultRunner) runOnce(ctx context.Context, name string, fn func(ctx context.Context)) (panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			logPanic(r.log, name, rec)
			panicked = true
		}
	}()
	fn(ctx)
	return false
}

func logPanic(log logger.Logger, name string, rec any) {
	log.Error("goroutine panicked",
		zap.String("routine", name),
		zap.Error(ErrPanic(rec)),
		zap.String("stack", string(debug.Stack())),
	)
}
