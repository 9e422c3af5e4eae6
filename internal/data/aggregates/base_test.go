package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}

	err := ExecuteWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
	}, "Asset.Transition", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("ExecuteWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("operations: %+v", hooks.Operations)
	}
}

func TestExecuteWriteKeepsDomainCodes(t *testing.T) {
	hooks := &spyHooks{}

	err := ExecuteWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
	}, "Asset.Transition", func(_ dbctx.Context) error {
		return domainagg.NotFound("Asset.Transition", "Asset not found")
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got=%v", err)
	}
	if hooks.Operations[0].Status != string(domainagg.CodeNotFound) {
		t.Fatalf("status: %+v", hooks.Operations)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		err := ExecuteWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "Rollup.Recompute", func(_ dbctx.Context) error {
			return ConflictError("stale version")
		})
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "Rollup.Recompute" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		err := ExecuteWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "Bulk.Apply", func(_ dbctx.Context) error {
			return RetryableError("temporary lock timeout")
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if len(hooks.Retries) != 1 || hooks.Retries[0] != "Bulk.Apply" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
	})
}

func TestRetryOnConflictStopsOnSuccess(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0
	err := RetryOnConflict(context.Background(), hooks, "Rollup.Recompute", 3, func(attempt int) error {
		calls++
		if attempt < 2 {
			return ConflictError("stale")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryOnConflict: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
	if len(hooks.Retries) != 1 {
		t.Fatalf("retries: %+v", hooks.Retries)
	}
}

func TestRetryOnConflictGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), nil, "Rollup.Recompute", 3, func(int) error {
		calls++
		return ConflictError("stale")
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected 3 failing attempts, calls=%d err=%v", calls, err)
	}
}

func TestRetryOnConflictDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := RetryOnConflict(context.Background(), nil, "Rollup.Recompute", 3, func(int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(InvariantError("x")); got != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("invariant status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.Retries = append(h.Retries, name)
}
