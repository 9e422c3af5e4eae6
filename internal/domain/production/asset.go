package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Asset is a product moving through the 3D production pipeline.
type Asset struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Status        AssetStatus    `gorm:"column:status;not null;default:'pending';index" json:"status"`
	RevisionCount int            `gorm:"column:revision_count;not null;default:0" json:"revision_count"`
	Client        string         `gorm:"column:client;not null;index" json:"client"`
	Transferred   bool           `gorm:"column:transferred;not null;default:false;index" json:"transferred"`
	ArticleID     string         `gorm:"column:article_id;index" json:"article_id"`
	ArticleIDs    datatypes.JSON `gorm:"column:article_ids;type:jsonb" json:"article_ids,omitempty"`
	ProductName   string         `gorm:"column:product_name" json:"product_name"`
	ProductLink   string         `gorm:"column:product_link" json:"product_link,omitempty"`
	GLBLink       string         `gorm:"column:glb_link" json:"glb_link,omitempty"`
	Category      string         `gorm:"column:category" json:"category,omitempty"`
	Subcategory   string         `gorm:"column:subcategory" json:"subcategory,omitempty"`
	Tags          datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags,omitempty"`
	PreviewImages datatypes.JSON `gorm:"column:preview_images;type:jsonb" json:"preview_images,omitempty"`
	Active        string         `gorm:"column:active" json:"active,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Asset) TableName() string { return "onboarding_assets" }

// DisplayName is used in notification titles.
func (a *Asset) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.ProductName != "" {
		return a.ProductName
	}
	return a.ArticleID
}
