package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	types "github.com/charpstar/pipeline-backend/internal/domain"
)

/*
Context is the execution handle for one claimed side-effect task.
Handlers read their input through Decode and report failure by returning an
error; the worker owns every status transition on the task row.
*/
type Context struct {
	Ctx  context.Context
	Task *types.SideEffectTask
}

func NewContext(ctx context.Context, task *types.SideEffectTask) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{Ctx: ctx, Task: task}
}

// Decode unmarshals the task payload into v.
func (c *Context) Decode(v any) error {
	if c == nil || c.Task == nil {
		return fmt.Errorf("no task")
	}
	if len(c.Task.Payload) == 0 {
		return fmt.Errorf("task %s has an empty payload", c.Task.ID)
	}
	if err := json.Unmarshal(c.Task.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.Task.Kind, err)
	}
	return nil
}
