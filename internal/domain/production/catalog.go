package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CatalogAsset is the public catalog row produced when a client signs off.
type CatalogAsset struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArticleID     string         `gorm:"column:article_id;not null;uniqueIndex:idx_catalog_client_article" json:"article_id"`
	Client        string         `gorm:"column:client;not null;uniqueIndex:idx_catalog_client_article" json:"client"`
	ArticleIDs    datatypes.JSON `gorm:"column:article_ids;type:jsonb" json:"article_ids"`
	ProductName   string         `gorm:"column:product_name" json:"product_name"`
	ProductLink   string         `gorm:"column:product_link" json:"product_link,omitempty"`
	GLBLink       string         `gorm:"column:glb_link" json:"glb_link,omitempty"`
	Category      string         `gorm:"column:category" json:"category,omitempty"`
	Subcategory   string         `gorm:"column:subcategory" json:"subcategory,omitempty"`
	Tags          datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags,omitempty"`
	PreviewImage  string         `gorm:"column:preview_image" json:"preview_image,omitempty"`
	GLBStatus     string         `gorm:"column:glb_status;not null;default:'completed'" json:"glb_status"`
	Active        string         `gorm:"column:active" json:"active"`
	SourceAssetID uuid.UUID      `gorm:"type:uuid;column:source_asset_id;index" json:"source_asset_id"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (CatalogAsset) TableName() string { return "catalog_assets" }
