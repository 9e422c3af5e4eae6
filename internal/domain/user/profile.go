package user

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the role an authenticated user acts under.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Role      string    `gorm:"column:role;not null;index" json:"role"`
	Email     string    `gorm:"column:email" json:"email,omitempty"`
	Title     string    `gorm:"column:title" json:"title,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
