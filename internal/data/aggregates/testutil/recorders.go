package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
)

// HooksRecorder captures write hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{Name: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

// StatusesFor lists recorded statuses for one operation name, in order.
func (h *HooksRecorder) StatusesFor(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []string{}
	for _, op := range h.Operations {
		if op.Name == name {
			out = append(out, op.Status)
		}
	}
	return out
}

// InjectedTxRunner runs the body without a database and supports failure
// injection. A body error counts as a rollback.
type InjectedTxRunner struct {
	mu sync.Mutex

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin, failCommit := r.FailBegin, r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	var err error
	if fn != nil {
		err = fn(dbctx.Context{Ctx: ctx})
	}
	if err == nil {
		err = failCommit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}
