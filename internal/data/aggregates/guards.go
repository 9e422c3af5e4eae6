package aggregates

import (
	"strings"

	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CASGuard provides compare-and-set helpers for guarded writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if db := dbc.DB(g.db); db != nil {
		return db, nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByVersion updates a row only when id+version match and bumps the version.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByVersion")
	}
	if expectedVersion < 0 {
		return false, ValidationError("expectedVersion must be >= 0")
	}
	guarded := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		guarded[k] = v
	}
	guarded["version"] = gorm.Expr("version + 1")
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(guarded)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}
