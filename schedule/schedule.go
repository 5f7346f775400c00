package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrInvalidJob = errors.New("schedule: invalid job")

// DefaultTick is how often the scheduler checks for due jobs.
const DefaultTick = time.Second

type Task func(ctx context.Context) error

type Scheduler struct {
	jobs   []*Job
	mu     sync.RWMutex
	tick   time.Duration
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		jobs:   make([]*Job, 0),
		tick:   DefaultTick,
		logger: logger,
	}
}

// WithTick changes the polling interval. Jobs never run more often than
// their own interval.
func (scheduler *Scheduler) WithTick(tick time.Duration) *Scheduler {
	scheduler.tick = tick
	return scheduler
}

func (scheduler *Scheduler) AddJob(job *Job) error {
	if err := job.validate(); err != nil {
		return err
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	scheduler.jobs = append(scheduler.jobs, job)
	return nil
}

type Job struct {
	tasks             []Task
	interval          time.Duration
	nextExecuteAt     time.Time
	previousExecuteAt time.Time
	name              string
	maxRetries        int
	timeout           time.Duration
	running           bool
	mu                sync.RWMutex
}

func NewJob() *Job {
	return &Job{
		tasks: make([]Task, 0),
	}
}

func (job *Job) WithTasks(tasks ...Task) *Job {
	job.tasks = tasks
	return job
}

func (job *Job) WithInterval(interval time.Duration) *Job {
	job.interval = interval
	return job
}

func (job *Job) WithExecuteAt(executeAt time.Time) *Job {
	job.nextExecuteAt = executeAt
	return job
}

func (job *Job) WithName(name string) *Job {
	job.name = name
	return job
}

func (job *Job) WithTimeout(timeout time.Duration) *Job {
	job.timeout = timeout
	return job
}

func (job *Job) WithRetries(maxRetries int) *Job {
	job.maxRetries = maxRetries
	return job
}

func (job *Job) validate() error {
	if job.interval <= 0 {
		return fmt.Errorf("%w: interval must be greater than 0", ErrInvalidJob)
	}
	if len(job.tasks) == 0 {
		return fmt.Errorf("%w: job must have at least one task", ErrInvalidJob)
	}
	if job.nextExecuteAt.IsZero() {
		job.nextExecuteAt = time.Now().Add(job.interval)
	}
	return nil
}

// Run executes due jobs until ctx is done. A job is never started again
// while a previous run is still in progress. Run waits for running jobs
// before returning.
func (scheduler *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(scheduler.tick)
	defer ticker.Stop()
	defer scheduler.wg.Wait()

	for {
		select {
		case now := <-ticker.C:
			scheduler.mu.RLock()
			jobs := make([]*Job, len(scheduler.jobs))
			copy(jobs, scheduler.jobs)
			scheduler.mu.RUnlock()

			for _, job := range jobs {
				if job.start(now) {
					scheduler.wg.Add(1)
					go scheduler.executeJob(ctx, job)
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (job *Job) start(now time.Time) bool {
	job.mu.Lock()
	defer job.mu.Unlock()

	if job.running || job.nextExecuteAt.After(now) {
		return false
	}
	job.running = true
	job.previousExecuteAt = now
	job.nextExecuteAt = now.Add(job.interval)
	return true
}

func (job *Job) finish() {
	job.mu.Lock()
	defer job.mu.Unlock()
	job.running = false
}

func (scheduler *Scheduler) executeJob(ctx context.Context, job *Job) {
	defer scheduler.wg.Done()
	defer job.finish()
	defer func() {
		if r := recover(); r != nil {
			scheduler.logger.Error("job panicked", "job", job.name, "panic", r)
		}
	}()

	for _, task := range job.tasks {
		if err := scheduler.executeTask(ctx, job, task); err != nil {
			scheduler.logger.Error("task failed", "job", job.name, "error", err)
		}
	}
}

func (scheduler *Scheduler) executeTask(ctx context.Context, job *Job, task Task) error {
	var err error
	for attempt := 0; attempt <= job.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = scheduler.runOnce(ctx, job.timeout, task)
		if err == nil {
			return nil
		}
		scheduler.logger.Debug("task attempt failed", "job", job.name, "attempt", attempt+1, "error", err)
	}
	return err
}

func (scheduler *Scheduler) runOnce(ctx context.Context, timeout time.Duration, task Task) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return task(ctx)
}
