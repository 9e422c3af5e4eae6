package sideeffect

import "time"

const (
	WorkflowName = "side_effect_task"
	ActivityRun  = "side_effect_run"

	// MaxAttempts matches the local worker pool's dead-letter threshold.
	MaxAttempts = 5
)

var retryInitialInterval = 5 * time.Second
