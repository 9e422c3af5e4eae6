package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       *uuid.UUID     `gorm:"type:uuid;column:user_id;index" json:"user_id,omitempty"`
	Action       string         `gorm:"column:action;not null" json:"action"`
	Type         string         `gorm:"column:type;not null" json:"type"`
	ResourceType string         `gorm:"column:resource_type;not null;index" json:"resource_type"`
	ResourceID   uuid.UUID      `gorm:"type:uuid;column:resource_id;index" json:"resource_id"`
	Description  string         `gorm:"column:description" json:"description"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

const (
	NotificationAssetCompleted    = "asset_completed"
	NotificationStatusChange      = "status_change"
	NotificationRevisionRequested = "revision_requested"
	NotificationQAReview          = "qa_review"
)

type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipientID uuid.UUID      `gorm:"type:uuid;column:recipient_id;not null;index" json:"recipient_id"`
	Type        string         `gorm:"column:type;not null" json:"type"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Message     string         `gorm:"column:message" json:"message"`
	AssetIDs    datatypes.JSON `gorm:"column:asset_ids;type:jsonb" json:"asset_ids,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Read        bool           `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
