package sideeffect

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

// Executor is the slice of the local worker the activity drives.
type Executor interface {
	RunByID(ctx context.Context, id uuid.UUID) (*types.SideEffectTask, error)
	Finish(ctx context.Context, task *types.SideEffectTask, runErr error, lastAttempt bool)
}

type Activities struct {
	Log  *logger.Logger
	Exec Executor
}

func (a *Activities) Run(ctx context.Context, taskID string) error {
	if a == nil || a.Exec == nil {
		return temporal.NewNonRetryableApplicationError("sideeffect: activity not configured", "config", nil)
	}
	id, err := uuid.Parse(taskID)
	if err != nil || id == uuid.Nil {
		return temporal.NewNonRetryableApplicationError(fmt.Sprintf("sideeffect: invalid task_id %q", taskID), "bad_input", err)
	}

	task, runErr := a.Exec.RunByID(ctx, id)
	if task == nil {
		return temporal.NewNonRetryableApplicationError("sideeffect: task not found", "not_found", runErr)
	}

	attempt := int(activity.GetInfo(ctx).Attempt)
	task.Attempts = attempt
	a.Exec.Finish(ctx, task, runErr, attempt >= MaxAttempts)
	if runErr != nil && a.Log != nil {
		a.Log.Warn("side effect activity attempt failed", "task_id", id, "kind", task.Kind, "attempt", attempt, "error", runErr)
	}
	return runErr
}
