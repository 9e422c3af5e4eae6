package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) WithDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// ExecuteWrite runs fn inside one transaction, maps the failure onto an
// aggregate error code and reports the outcome to hooks.
func ExecuteWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.WithDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)
	observe(deps.Hooks, op, mapped, time.Since(start))
	return mapped
}

// Observe reports an operation that ran outside ExecuteWrite.
func Observe(hooks Hooks, op string, err error, dur time.Duration) {
	if hooks == nil {
		hooks = noopHooks{}
	}
	observe(hooks, op, MapError(op, err), dur)
}

func observe(hooks Hooks, op string, mapped error, dur time.Duration) {
	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			hooks.IncRetry(op)
		}
	}
	hooks.ObserveOperation(op, status, dur)
}

// RetryOnConflict re-runs fn while it fails with a conflict, up to attempts
// times. Each retry is reported through hooks.
func RetryOnConflict(ctx context.Context, hooks Hooks, op string, attempts int, fn func(attempt int) error) error {
	if hooks == nil {
		hooks = noopHooks{}
	}
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(attempt)
		if err == nil || !domainagg.IsCode(MapError(op, err), domainagg.CodeConflict) {
			return err
		}
		if attempt < attempts {
			hooks.IncRetry(op)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return MapError(op, ctxErr)
		}
	}
	return err
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
