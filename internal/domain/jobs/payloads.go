package jobs

import "github.com/google/uuid"

// ActivityPayload is the outbox payload for TaskKindActivityLog.
type ActivityPayload struct {
	UserID       *uuid.UUID     `json:"user_id,omitempty"`
	Action       string         `json:"action"`
	Type         string         `json:"type"`
	ResourceType string         `json:"resource_type"`
	ResourceID   uuid.UUID      `json:"resource_id"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NotificationPayload is the outbox payload for TaskKindNotification. One
// notification row is written per recipient.
type NotificationPayload struct {
	RecipientIDs []uuid.UUID    `json:"recipient_ids"`
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	AssetIDs     []uuid.UUID    `json:"asset_ids,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
