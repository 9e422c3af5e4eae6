package production

import (
	"time"

	"github.com/google/uuid"
)

// AllocationList is a numbered batch of assignments owned by one user+role.
// Version is bumped on every rollup write and guards concurrent recomputes.
type AllocationList struct {
	ID         uuid.UUID            `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name       string               `gorm:"column:name;not null" json:"name"`
	Number     int                  `gorm:"column:number;not null;default:0" json:"number"`
	UserID     uuid.UUID            `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`
	Role       AssignmentRole       `gorm:"column:role;not null;index" json:"role"`
	Status     AllocationListStatus `gorm:"column:status;not null;default:'in_progress';index" json:"status"`
	Deadline   *time.Time           `gorm:"column:deadline" json:"deadline,omitempty"`
	Bonus      float64              `gorm:"column:bonus;not null;default:0" json:"bonus"`
	ApprovedAt *time.Time           `gorm:"column:approved_at" json:"approved_at,omitempty"`
	Version    int                  `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt  time.Time            `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time            `gorm:"not null;default:now()" json:"updated_at"`
}

func (AllocationList) TableName() string { return "allocation_lists" }

// QAAllocation is the durable linkage between a QA reviewer and a modeler.
type QAAllocation struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QAID      uuid.UUID `gorm:"type:uuid;column:qa_id;not null;uniqueIndex:idx_qa_allocation_pair" json:"qa_id"`
	ModelerID uuid.UUID `gorm:"type:uuid;column:modeler_id;not null;uniqueIndex:idx_qa_allocation_pair" json:"modeler_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (QAAllocation) TableName() string { return "qa_allocations" }
