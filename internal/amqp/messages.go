package amqp

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeSync   MessageType = "sync"
	MessageTypeDelete MessageType = "delete"
)

// TransactionMessage is the lightweight envelope published for every write.
// It carries only the ID (and version for syncs); the worker fetches the
// full transaction from the database.
type TransactionMessage struct {
	Type      MessageType `json:"type"`
	ID        int64       `json:"id"`
	Version   int64       `json:"version,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewTransactionSyncMessage announces that a transaction at a given version
// needs to be exported.
func NewTransactionSyncMessage(id, version int64) *TransactionMessage {
	return &TransactionMessage{
		Type:      MessageTypeSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewTransactionDeleteMessage announces that a transaction was removed.
func NewTransactionDeleteMessage(id int64) *TransactionMessage {
	return &TransactionMessage{
		Type:      MessageTypeDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON creates a message from JSON bytes.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
