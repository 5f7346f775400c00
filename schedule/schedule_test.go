package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freekieb7/webserver/test"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestAddJobValidation(t *testing.T) {
	scheduler := NewScheduler(discardLogger)

	noop := func(ctx context.Context) error { return nil }
	test.AssertErrorIs(t, scheduler.AddJob(NewJob().WithTasks(noop)), ErrInvalidJob)
	test.AssertErrorIs(t, scheduler.AddJob(NewJob().WithInterval(time.Second)), ErrInvalidJob)
	test.AssertNoError(t, scheduler.AddJob(NewJob().WithInterval(time.Second).WithTasks(noop)))
}

func TestRunExecutesDueJobs(t *testing.T) {
	scheduler := NewScheduler(discardLogger).WithTick(5 * time.Millisecond)

	var runs atomic.Int32
	job := NewJob().
		WithName("count").
		WithInterval(10 * time.Millisecond).
		WithExecuteAt(time.Now()).
		WithTasks(func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})
	test.AssertNoError(t, scheduler.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	test.AssertErrorIs(t, scheduler.Run(ctx), context.DeadlineExceeded)

	test.AssertTrue(t, runs.Load() >= 2, "job should have run repeatedly")
}

func TestRunRetriesAndRecovers(t *testing.T) {
	scheduler := NewScheduler(discardLogger).WithTick(5 * time.Millisecond)

	var attempts atomic.Int32
	flaky := NewJob().
		WithName("flaky").
		WithInterval(time.Hour).
		WithExecuteAt(time.Now()).
		WithRetries(2).
		WithTasks(func(ctx context.Context) error {
			if attempts.Add(1) < 3 {
				return errors.New("not yet")
			}
			return nil
		})
	test.AssertNoError(t, scheduler.AddJob(flaky))

	var after atomic.Bool
	panicky := NewJob().
		WithName("panicky").
		WithInterval(time.Hour).
		WithExecuteAt(time.Now()).
		WithTasks(func(ctx context.Context) error {
			panic("boom")
		})
	test.AssertNoError(t, scheduler.AddJob(panicky))

	slow := NewJob().
		WithName("slow").
		WithInterval(time.Hour).
		WithExecuteAt(time.Now()).
		WithTimeout(10 * time.Millisecond).
		WithTasks(func(ctx context.Context) error {
			<-ctx.Done()
			after.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})
	test.AssertNoError(t, scheduler.AddJob(slow))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	test.AssertEqual(t, int32(3), attempts.Load())
	test.AssertTrue(t, after.Load(), "task timeout should cancel the task context")
}
