package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type AllocationListRepo interface {
	Create(dbc dbctx.Context, lists []*types.AllocationList) ([]*types.AllocationList, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationList, error)
	ListAll(dbc dbctx.Context) ([]*types.AllocationList, error)
	// UpdateByVersion applies updates only if the stored version still equals
	// expectedVersion, bumping it on success.
	UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
	// DeleteIfEmpty removes the list only when no assignment references it.
	DeleteIfEmpty(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type allocationListRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	guard aggregates.CASGuard
}

func NewAllocationListRepo(db *gorm.DB, baseLog *logger.Logger) AllocationListRepo {
	return &allocationListRepo{
		db:    db,
		log:   baseLog.With("repo", "AllocationListRepo"),
		guard: aggregates.NewCASGuard(db),
	}
}

func (r *allocationListRepo) Create(dbc dbctx.Context, lists []*types.AllocationList) ([]*types.AllocationList, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(lists) == 0 {
		return []*types.AllocationList{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *allocationListRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AllocationList, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.AllocationList
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *allocationListRepo) ListAll(dbc dbctx.Context) ([]*types.AllocationList, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.AllocationList{}
	if err := transaction.WithContext(dbc.Ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *allocationListRepo) UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	return r.guard.UpdateByVersion(dbc, types.AllocationList{}.TableName(), id, expectedVersion, updates)
}

func (r *allocationListRepo) DeleteIfEmpty(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).Exec(`
		DELETE FROM allocation_lists
		WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM asset_assignments WHERE allocation_list_id = ?)
	`, id, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
