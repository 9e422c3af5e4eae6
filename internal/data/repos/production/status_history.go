package production

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type AssetStatusHistoryRepo interface {
	Create(dbc dbctx.Context, rows []*types.AssetStatusHistory) error
	// MaxRevisionNumbers returns the highest recorded revision number per asset.
	// Assets without revision history are absent from the map.
	MaxRevisionNumbers(dbc dbctx.Context, assetIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type assetStatusHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetStatusHistoryRepo(db *gorm.DB, baseLog *logger.Logger) AssetStatusHistoryRepo {
	return &assetStatusHistoryRepo{db: db, log: baseLog.With("repo", "AssetStatusHistoryRepo")}
}

func (r *assetStatusHistoryRepo) Create(dbc dbctx.Context, rows []*types.AssetStatusHistory) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).CreateInBatches(&rows, 100).Error
}

func (r *assetStatusHistoryRepo) MaxRevisionNumbers(dbc dbctx.Context, assetIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[uuid.UUID]int{}
	if len(assetIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		AssetID uuid.UUID
		MaxRev  int
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.AssetStatusHistory{}).
		Select("asset_id, MAX(revision_number) AS max_rev").
		Where("asset_id IN ? AND action_type = ? AND revision_number IS NOT NULL", assetIDs, types.ActionRevision).
		Group("asset_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AssetID] = row.MaxRev
	}
	return out, nil
}
