package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of periodic maintenance work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	task     Task
	interval time.Duration
}

// Runner executes registered tasks on their own intervals until stopped.
// Tasks run in separate goroutines; a slow task never delays the others.
type Runner struct {
	logger  *zap.Logger
	entries []entry

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRunner creates a runner with no tasks registered.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Register adds a task to run at the given interval. Must be called
// before Start.
func (r *Runner) Register(task Task, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return ErrRunnerStarted
	}
	r.entries = append(r.entries, entry{task: task, interval: interval})
	return nil
}

// Start launches one loop per registered task.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for _, e := range r.entries {
		r.wg.Add(1)
		go r.loop(ctx, e)
	}

	r.logger.Info("Maintenance runner started", zap.Int("tasks", len(r.entries)))
	return nil
}

// Stop cancels all task loops and waits for them to finish, bounded by
// the given context.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Maintenance runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Maintenance runner stop timed out")
		return ctx.Err()
	}
}

func (r *Runner) loop(ctx context.Context, e entry) {
	defer r.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	r.logger.Debug("Task loop started",
		zap.String("task", e.task.Name()),
		zap.Duration("interval", e.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runTask(ctx, e.task)
		}
	}
}

func (r *Runner) runTask(ctx context.Context, task Task) {
	start := time.Now()
	if err := task.Run(ctx); err != nil {
		r.logger.Error("Maintenance task failed",
			zap.String("task", task.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("Maintenance task completed",
		zap.String("task", task.Name()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
