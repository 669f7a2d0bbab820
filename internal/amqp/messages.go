package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SnapshotMessage carries the whole itinerary as a transfer token. Consumers
// keep the highest version seen and ignore anything older.
type SnapshotMessage struct {
	MessageID string    `json:"message_id"`
	Version   int64     `json:"version"`
	Token     string    `json:"token"`
	Count     int       `json:"count"`
	Total     int64     `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotMessage(version int64, token string, count int, total int64) *SnapshotMessage {
	return &SnapshotMessage{
		MessageID: uuid.NewString(),
		Version:   version,
		Token:     token,
		Count:     count,
		Total:     total,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate checks the fields every consumer relies on.
func (m *SnapshotMessage) Validate() error {
	if _, err := uuid.Parse(m.MessageID); err != nil {
		return errors.New("invalid message id")
	}
	if m.Version <= 0 {
		return errors.New("version must be positive")
	}
	if m.Token == "" {
		return errors.New("missing token")
	}
	return nil
}

func SnapshotMessageFromJSON(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
