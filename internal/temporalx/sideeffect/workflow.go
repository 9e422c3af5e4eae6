package sideeffect

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one side-effect task. Temporal owns the retry schedule; the
// activity records each attempt on the task row.
func Workflow(ctx workflow.Context, taskID string) error {
	if strings.TrimSpace(taskID) == "" {
		return fmt.Errorf("sideeffect: missing task_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    retryInitialInterval,
			BackoffCoefficient: 2,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    MaxAttempts,
		},
	})
	return workflow.ExecuteActivity(ctx, ActivityRun, taskID).Get(ctx, nil)
}
