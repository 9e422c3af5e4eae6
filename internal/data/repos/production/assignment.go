package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type AssetAssignmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.AssetAssignment) ([]*types.AssetAssignment, error)
	ListByList(dbc dbctx.Context, listID uuid.UUID, role types.AssignmentRole) ([]*types.AssetAssignment, error)
	ListProvisionalQA(dbc dbctx.Context, listID uuid.UUID) ([]*types.AssetAssignment, error)
	ListByAssets(dbc dbctx.Context, assetIDs []uuid.UUID, role types.AssignmentRole) ([]*types.AssetAssignment, error)
	// ListAssetStatuses returns the current status of every asset assigned under
	// listID for role. Assignments whose asset row is gone report "".
	ListAssetStatuses(dbc dbctx.Context, listID uuid.UUID, role types.AssignmentRole) ([]types.AssetStatus, error)
	CountByList(dbc dbctx.Context, listID uuid.UUID) (int64, error)
	CountByLists(dbc dbctx.Context, listIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	DeleteProvisionalQA(dbc dbctx.Context, listID uuid.UUID) (int64, error)
}

type assetAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssetAssignmentRepo {
	return &assetAssignmentRepo{db: db, log: baseLog.With("repo", "AssetAssignmentRepo")}
}

func (r *assetAssignmentRepo) Create(dbc dbctx.Context, rows []*types.AssetAssignment) ([]*types.AssetAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.AssetAssignment{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assetAssignmentRepo) ListByList(dbc dbctx.Context, listID uuid.UUID, role types.AssignmentRole) ([]*types.AssetAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.AssetAssignment{}
	if listID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("allocation_list_id = ? AND role = ?", listID, role).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetAssignmentRepo) ListProvisionalQA(dbc dbctx.Context, listID uuid.UUID) ([]*types.AssetAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.AssetAssignment{}
	if listID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("allocation_list_id = ? AND role = ? AND is_provisional = ?", listID, types.AssignmentRoleQA, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetAssignmentRepo) ListByAssets(dbc dbctx.Context, assetIDs []uuid.UUID, role types.AssignmentRole) ([]*types.AssetAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.AssetAssignment{}
	if len(assetIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("asset_id IN ? AND role = ?", assetIDs, role).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetAssignmentRepo) ListAssetStatuses(dbc dbctx.Context, listID uuid.UUID, role types.AssignmentRole) ([]types.AssetStatus, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []struct {
		Status *string
	}
	err := transaction.WithContext(dbc.Ctx).
		Table("asset_assignments AS aa").
		Select("oa.status AS status").
		Joins("LEFT JOIN onboarding_assets oa ON oa.id = aa.asset_id").
		Where("aa.allocation_list_id = ? AND aa.role = ?", listID, role).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.AssetStatus, 0, len(rows))
	for _, row := range rows {
		if row.Status == nil {
			out = append(out, "")
			continue
		}
		out = append(out, types.AssetStatus(*row.Status))
	}
	return out, nil
}

func (r *assetAssignmentRepo) CountByList(dbc dbctx.Context, listID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.AssetAssignment{}).
		Where("allocation_list_id = ?", listID).
		Count(&n).Error
	return n, err
}

func (r *assetAssignmentRepo) CountByLists(dbc dbctx.Context, listIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[uuid.UUID]int64, len(listIDs))
	if len(listIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AllocationListID uuid.UUID
		N                int64
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.AssetAssignment{}).
		Select("allocation_list_id, COUNT(*) AS n").
		Where("allocation_list_id IN ?", listIDs).
		Group("allocation_list_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range listIDs {
		out[id] = 0
	}
	for _, row := range rows {
		out[row.AllocationListID] = row.N
	}
	return out, nil
}

func (r *assetAssignmentRepo) DeleteProvisionalQA(dbc dbctx.Context, listID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("allocation_list_id = ? AND role = ? AND is_provisional = ?", listID, types.AssignmentRoleQA, true).
		Delete(&types.AssetAssignment{})
	return res.RowsAffected, res.Error
}
