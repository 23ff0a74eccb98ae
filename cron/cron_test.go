package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestApplyMiddlewares_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Task) Task {
			return TaskFunc(next.Name(), func(ctx context.Context) error {
				order = append(order, name)
				return next.Run(ctx)
			})
		}
	}

	task := applyMiddlewares(TaskFunc("t", func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	}), mark("first"), mark("second"))

	if err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{"first", "second", "task"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	task := recoveryMiddleware(zap.New(core))(TaskFunc("boom", func(ctx context.Context) error {
		panic("boom")
	}))

	err := task.Run(context.Background())
	if err == nil {
		t.Fatal("expected panic to become an error")
	}
	if logs.FilterMessage("task panicked").Len() != 1 {
		t.Error("expected panic to be logged")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	errFail := errors.New("fail")

	mw := loggingMiddleware(zap.New(core))
	mw(TaskFunc("ok", func(ctx context.Context) error { return nil })).Run(context.Background())
	if err := mw(TaskFunc("bad", func(ctx context.Context) error { return errFail })).Run(context.Background()); !errors.Is(err, errFail) {
		t.Errorf("expected task error to pass through, got %v", err)
	}

	if logs.FilterMessage("task completed").Len() != 1 || logs.FilterMessage("task failed").Len() != 1 {
		t.Errorf("unexpected logs %v", logs.All())
	}
}

func TestWithTimeout(t *testing.T) {
	task := WithTimeout(10 * time.Millisecond)(TaskFunc("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	if err := task.Run(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWithRunHook(t *testing.T) {
	errFail := errors.New("fail")
	var got []string
	hook := func(task string, took time.Duration, err error) {
		if took < 0 {
			t.Errorf("negative duration for %s", task)
		}
		got = append(got, fmt.Sprintf("%s:%v", task, err))
	}

	WithRunHook(hook)(TaskFunc("ok", func(ctx context.Context) error { return nil })).Run(context.Background())
	err := WithRunHook(hook)(TaskFunc("bad", func(ctx context.Context) error { return errFail })).Run(context.Background())
	if !errors.Is(err, errFail) {
		t.Errorf("expected task error to pass through, got %v", err)
	}

	if strings.Join(got, ",") != "ok:<nil>,bad:fail" {
		t.Errorf("unexpected hook calls %v", got)
	}
}

func TestScheduler_AddTask(t *testing.T) {
	s := New(zap.NewNop())

	if err := s.AddTask("* * * * * *", nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("expected ErrNilTask, got %v", err)
	}
	if err := s.AddTask("not a spec", TaskFunc("t", func(ctx context.Context) error { return nil })); err == nil {
		t.Error("expected invalid spec to fail")
	}
	if err := s.AddTask("*/5 * * * * *", TaskFunc("t", func(ctx context.Context) error { return nil })); err != nil {
		t.Errorf("expected seconds spec to be accepted, got %v", err)
	}
	if err := s.AddTask("@every 1m", TaskFunc("t", func(ctx context.Context) error { return nil })); err != nil {
		t.Errorf("expected descriptor to be accepted, got %v", err)
	}
}

func TestScheduler_RunsAndCancelsOnClose(t *testing.T) {
	s := New(zap.NewNop())

	var runs atomic.Int32
	cancelled := make(chan struct{})
	err := s.AddTask("* * * * * *", TaskFunc("tick", func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			<-ctx.Done()
			close(cancelled)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	s.Start(context.Background())
	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("expected the task to run within 3s")
	}

	s.Close()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("expected Close to cancel the running task")
	}
}
