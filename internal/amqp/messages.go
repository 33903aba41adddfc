package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotCheckMessage asks the worker to verify that a user's previous
// month has a savings snapshot. It carries only the user ID; the worker
// reads everything else from the database.
type SnapshotCheckMessage struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotCheckMessage creates a check request for the given user
func NewSnapshotCheckMessage(userID string) *SnapshotCheckMessage {
	return &SnapshotCheckMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotCheckMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotCheckMessageFromJSON creates a message from JSON bytes
func SnapshotCheckMessageFromJSON(data []byte) (*SnapshotCheckMessage, error) {
	var msg SnapshotCheckMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errEmptyUserID
	}
	return &msg, nil
}
