package production

import (
	"time"

	"github.com/google/uuid"
)

// AssetAssignment links one asset to one user for one role inside an allocation list.
type AssetAssignment struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AssetID          uuid.UUID      `gorm:"type:uuid;column:asset_id;not null;index" json:"asset_id"`
	UserID           uuid.UUID      `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	Role             AssignmentRole `gorm:"column:role;not null;index" json:"role"`
	AllocationListID *uuid.UUID     `gorm:"type:uuid;column:allocation_list_id;index" json:"allocation_list_id,omitempty"`
	Price            float64        `gorm:"column:price;not null;default:0" json:"price"`
	Bonus            float64        `gorm:"column:bonus;not null;default:0" json:"bonus"`
	Deadline         *time.Time     `gorm:"column:deadline" json:"deadline,omitempty"`
	IsProvisional    bool           `gorm:"column:is_provisional;not null;default:false;index" json:"is_provisional"`
	Status           string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	AssignedBy       *uuid.UUID     `gorm:"type:uuid;column:assigned_by" json:"assigned_by,omitempty"`
	StartTime        *time.Time     `gorm:"column:start_time" json:"start_time,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (AssetAssignment) TableName() string { return "asset_assignments" }
