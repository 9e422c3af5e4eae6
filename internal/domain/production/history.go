package production

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionStatusChange   = "status_change"
	ActionRevision       = "revision"
	ActionApproval       = "approval"
	ActionClientApproval = "client_approval"
)

// ActionTypeFor classifies a transition for the history log.
func ActionTypeFor(status AssetStatus) string {
	switch status {
	case StatusRevisions:
		return ActionRevision
	case StatusApproved:
		return ActionApproval
	case StatusApprovedByClient:
		return ActionClientApproval
	case StatusPending, StatusInProduction, StatusDeliveredByArtist:
		return ActionStatusChange
	}
	return ActionStatusChange
}

// AssetStatusHistory records every status change; revision rows carry the
// sequential revision number.
type AssetStatusHistory struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID        uuid.UUID      `gorm:"type:uuid;column:asset_id;not null;index" json:"asset_id"`
	PreviousStatus AssetStatus    `gorm:"column:previous_status" json:"previous_status"`
	NewStatus      AssetStatus    `gorm:"column:new_status;not null" json:"new_status"`
	ActionType     string         `gorm:"column:action_type;not null;index" json:"action_type"`
	RevisionNumber *int           `gorm:"column:revision_number" json:"revision_number,omitempty"`
	ChangedBy      *uuid.UUID     `gorm:"type:uuid;column:changed_by" json:"changed_by,omitempty"`
	RevisionReason string         `gorm:"column:revision_reason" json:"revision_reason,omitempty"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (AssetStatusHistory) TableName() string { return "asset_status_history" }
