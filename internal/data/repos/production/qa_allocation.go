package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type QAAllocationRepo interface {
	Create(dbc dbctx.Context, rows []*types.QAAllocation) ([]*types.QAAllocation, error)
	Exists(dbc dbctx.Context, qaID, modelerID uuid.UUID) (bool, error)
}

type qaAllocationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQAAllocationRepo(db *gorm.DB, baseLog *logger.Logger) QAAllocationRepo {
	return &qaAllocationRepo{db: db, log: baseLog.With("repo", "QAAllocationRepo")}
}

func (r *qaAllocationRepo) Create(dbc dbctx.Context, rows []*types.QAAllocation) ([]*types.QAAllocation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.QAAllocation{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *qaAllocationRepo) Exists(dbc dbctx.Context, qaID, modelerID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if qaID == uuid.Nil || modelerID == uuid.Nil {
		return false, nil
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.QAAllocation{}).
		Where("qa_id = ? AND modeler_id = ?", qaID, modelerID).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}
