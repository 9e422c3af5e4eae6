package sideeffect

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Starter hands persisted tasks to Temporal, one workflow per task.
type Starter struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewStarter(tc temporalsdkclient.Client, taskQueue string) (*Starter, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Starter{tc: tc, taskQueue: taskQueue}, nil
}

func WorkflowID(taskID uuid.UUID) string { return "side-effect-" + taskID.String() }

func (s *Starter) StartTask(ctx context.Context, taskID uuid.UUID) error {
	_, err := s.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        WorkflowID(taskID),
		TaskQueue: s.taskQueue,
	}, WorkflowName, taskID.String())
	if err != nil {
		return fmt.Errorf("start side effect workflow %s: %w", taskID, err)
	}
	return nil
}
