package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type CatalogAssetRepo interface {
	// InsertIgnoreDuplicates inserts rows, skipping any (client, article_id)
	// already in the catalog. Returns the source asset ids that own a catalog
	// row afterwards; a skipped row's asset is absent.
	InsertIgnoreDuplicates(dbc dbctx.Context, rows []*types.CatalogAsset) ([]uuid.UUID, error)
	// UpdateGLBLink rewrites glb_link on the row owned by sourceAssetID only.
	UpdateGLBLink(dbc dbctx.Context, sourceAssetID uuid.UUID, link string) error
}

type catalogAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogAssetRepo(db *gorm.DB, baseLog *logger.Logger) CatalogAssetRepo {
	return &catalogAssetRepo{db: db, log: baseLog.With("repo", "CatalogAssetRepo")}
}

func (r *catalogAssetRepo) InsertIgnoreDuplicates(dbc dbctx.Context, rows []*types.CatalogAsset) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sourceIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		sourceIDs = append(sourceIDs, row.SourceAssetID)
	}
	var owned []uuid.UUID
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client"}, {Name: "article_id"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return err
		}
		return txx.Model(&types.CatalogAsset{}).
			Where("source_asset_id IN ?", sourceIDs).
			Pluck("source_asset_id", &owned).Error
	})
	if err != nil {
		return nil, err
	}
	return owned, nil
}

func (r *catalogAssetRepo) UpdateGLBLink(dbc dbctx.Context, sourceAssetID uuid.UUID, link string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.CatalogAsset{}).
		Where("source_asset_id = ?", sourceAssetID).
		Updates(map[string]interface{}{"glb_link": link, "updated_at": time.Now().UTC()}).Error
}
