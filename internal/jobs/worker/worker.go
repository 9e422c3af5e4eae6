package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/jobs/runtime"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const (
	DefaultConcurrency  = 4
	DefaultMaxAttempts  = 5
	DefaultRetryDelay   = 30 * time.Second
	DefaultStaleRunning = 30 * time.Minute
	DefaultPollInterval = time.Second
)

type Config struct {
	Concurrency  int
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = DefaultStaleRunning
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Worker drains the side-effect outbox with a fixed pool of poll loops.
type Worker struct {
	log      *logger.Logger
	repo     repos.SideEffectTaskRepo
	registry *runtime.Registry
	metrics  *observability.Metrics
	cfg      Config
	wg       sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo repos.SideEffectTaskRepo, registry *runtime.Registry, metrics *observability.Metrics, cfg Config) *Worker {
	return &Worker{
		log:      baseLog.With("component", "SideEffectWorker"),
		repo:     repo,
		registry: registry,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting side effect worker pool", "concurrency", w.cfg.Concurrency, "max_attempts", w.cfg.MaxAttempts)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has observed ctx cancellation.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// drain everything runnable before waiting for the next tick
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// RunOnce claims and executes at most one task. It reports whether a task
// was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	runErr := w.Execute(ctx, task)
	w.Finish(ctx, task, runErr, task.Attempts >= w.cfg.MaxAttempts)
	return true, nil
}

// Execute runs the registered handler for task, converting panics to errors.
func (w *Worker) Execute(ctx context.Context, task *types.SideEffectTask) (err error) {
	h, ok := w.registry.Get(task.Kind)
	if !ok {
		w.log.Warn("No handler registered for kind", "kind", task.Kind, "task_id", task.ID)
		return &missingHandlerError{Kind: task.Kind}
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Side effect handler panic", "task_id", task.ID, "kind", task.Kind, "panic", r)
			err = errFromRecover(r)
		}
	}()
	return h.Run(runtime.NewContext(ctx, task))
}

// Finish records the outcome of one attempt. A failure on the last allowed
// attempt moves the task to the dead letter state.
func (w *Worker) Finish(ctx context.Context, task *types.SideEffectTask, runErr error, lastAttempt bool) {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if runErr == nil {
		if err := w.repo.MarkSucceeded(dbc, task.ID); err != nil {
			w.log.Warn("MarkSucceeded failed", "task_id", task.ID, "error", err)
		}
		w.metrics.IncSideEffect(task.Kind, jobs.TaskStatusSucceeded)
		return
	}
	if err := w.repo.MarkFailed(dbc, task.ID, runErr.Error(), lastAttempt); err != nil {
		w.log.Warn("MarkFailed failed", "task_id", task.ID, "error", err)
	}
	if lastAttempt {
		w.metrics.IncSideEffect(task.Kind, jobs.TaskStatusDead)
		w.metrics.IncDeadLetter(task.Kind)
		w.log.Error("Side effect moved to dead letter", "task_id", task.ID, "kind", task.Kind, "attempts", task.Attempts, "error", runErr)
		return
	}
	w.metrics.IncSideEffect(task.Kind, jobs.TaskStatusFailed)
	w.log.Warn("Side effect attempt failed", "task_id", task.ID, "kind", task.Kind, "attempts", task.Attempts, "error", runErr)
}

// RunByID loads one task and executes it without claiming; used by external
// executors that own retry scheduling.
func (w *Worker) RunByID(ctx context.Context, id uuid.UUID) (*types.SideEffectTask, error) {
	rows, err := w.repo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("side effect task %s not found", id)
	}
	task := rows[0]
	return task, w.Execute(ctx, task)
}

type missingHandlerError struct{ Kind string }

func (e *missingHandlerError) Error() string { return "no handler registered for kind=" + e.Kind }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
