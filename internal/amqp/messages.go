package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type MessageType string

const (
	MessageSync   MessageType = "sync"
	MessageDelete MessageType = "delete"
)

// TransactionMessage announces that a transaction was created or deleted.
// It carries only ids; the worker loads the row itself.
type TransactionMessage struct {
	Type          MessageType `json:"type"`
	TransactionID string      `json:"transaction_id"`
	UserID        string      `json:"user_id"`
	Timestamp     time.Time   `json:"timestamp"`
}

func NewSyncMessage(userID, id string) *TransactionMessage {
	return &TransactionMessage{Type: MessageSync, TransactionID: id, UserID: userID, Timestamp: time.Now()}
}

func NewDeleteMessage(userID, id string) *TransactionMessage {
	return &TransactionMessage{Type: MessageDelete, TransactionID: id, UserID: userID, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate checks the envelope carries a known type and both ids.
func (m *TransactionMessage) Validate() error {
	if m.Type != MessageSync && m.Type != MessageDelete {
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	if m.TransactionID == "" || m.UserID == "" {
		return errors.New("transaction_id and user_id are required")
	}
	return nil
}

// TransactionMessageFromJSON decodes and validates a message body.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
