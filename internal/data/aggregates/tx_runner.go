package aggregates

import (
	"context"

	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner provides the transaction boundary shared by workflow writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// PassthroughTxRunner runs fn without opening a transaction. Repositories fall
// back to their own handle; used by in-memory fakes and non-atomic bulk runs.
type PassthroughTxRunner struct{}

func (PassthroughTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}
