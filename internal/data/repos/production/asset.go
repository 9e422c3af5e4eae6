package production

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type AssetRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status types.AssetStatus, revisionCount *int) error
	// UpdateStatusChunk applies status to every id in one statement. revisionCounts,
	// when non-empty, sets per-asset revision_count in the same write.
	UpdateStatusChunk(dbc dbctx.Context, ids []uuid.UUID, status types.AssetStatus, revisionCounts map[uuid.UUID]int) (int64, error)
	ListTransferable(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error)
	MarkTransferred(dbc dbctx.Context, ids []uuid.UUID) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Asset
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *assetRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Asset{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status types.AssetStatus, revisionCount *int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if revisionCount != nil {
		updates["revision_count"] = *revisionCount
	}
	res := transaction.WithContext(dbc.Ctx).Model(&types.Asset{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assetRepo) UpdateStatusChunk(dbc dbctx.Context, ids []uuid.UUID, status types.AssetStatus, revisionCounts map[uuid.UUID]int) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if expr, ok := revisionCaseExpr(ids, revisionCounts); ok {
		updates["revision_count"] = expr
	}
	res := transaction.WithContext(dbc.Ctx).Model(&types.Asset{}).Where("id IN ?", ids).Updates(updates)
	return res.RowsAffected, res.Error
}

func revisionCaseExpr(ids []uuid.UUID, counts map[uuid.UUID]int) (interface{}, bool) {
	if len(counts) == 0 {
		return nil, false
	}
	var sb strings.Builder
	args := make([]interface{}, 0, len(counts)*2)
	sb.WriteString("CASE id")
	for _, id := range ids {
		n, found := counts[id]
		if !found {
			continue
		}
		sb.WriteString(" WHEN ?::uuid THEN ?::int")
		args = append(args, id.String(), n)
	}
	if len(args) == 0 {
		return nil, false
	}
	sb.WriteString(" ELSE revision_count END")
	return gorm.Expr(sb.String(), args...), true
}

func (r *assetRepo) ListTransferable(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Asset{}
	if len(ids) == 0 {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("id IN ? AND status = ? AND transferred = ?", ids, types.StatusApprovedByClient, false).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) MarkTransferred(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Asset{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"transferred": true, "updated_at": time.Now().UTC()}).Error
}
