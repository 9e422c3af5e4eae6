package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/temporalx"
	"github.com/charpstar/pipeline-backend/internal/temporalx/sideeffect"
)

// Runner hosts the side-effect workflow and activity on the configured queue.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	cfg  temporalx.Config
	exec sideeffect.Executor
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, exec sideeffect.Executor) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if exec == nil {
		return nil, fmt.Errorf("temporal worker missing executor")
	}
	return &Runner{log: log.With("component", "TemporalWorker"), tc: tc, cfg: cfg, exec: exec}, nil
}

// Start retries worker start until DialMaxWait elapses, then stops the worker
// when ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	deadline := time.Now().Add(r.cfg.DialMaxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		notFound := errors.As(startErr, &nfe)
		if notFound && r.cfg.AutoRegister {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			if notFound {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.Backoff(250*time.Millisecond, 5*time.Second, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &sideeffect.Activities{Log: r.log, Exec: r.exec}
	w.RegisterWorkflowWithOptions(sideeffect.Workflow, workflow.RegisterOptions{Name: sideeffect.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: sideeffect.ActivityRun})
	return w
}
