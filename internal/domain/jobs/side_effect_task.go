package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TaskKindActivityLog  = "activity_log"
	TaskKindNotification = "notification"
)

const (
	TaskStatusQueued    = "queued"
	TaskStatusRunning   = "running"
	TaskStatusSucceeded = "succeeded"
	TaskStatusFailed    = "failed"
	TaskStatusDead      = "dead"
)

// SideEffectTask is an outbox row for best-effort work fired after a workflow
// write commits. Tasks that exhaust their attempts move to TaskStatusDead.
type SideEffectTask struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Kind        string         `gorm:"column:kind;not null;index" json:"kind"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status      string         `gorm:"column:status;not null;default:'queued';index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (SideEffectTask) TableName() string { return "side_effect_task" }
