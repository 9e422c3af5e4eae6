package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	EventNotificationCreated = "notification.created"
)

// Message is one realtime event addressed to a channel, usually a user.
type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// NewMessage encodes data into a Message.
func NewMessage(channel, event string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Channel: channel, Event: event, Data: raw}, nil
}
