package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/core"
)

// RoutingTransactionCreated is the event name carried in the message type.
const RoutingTransactionCreated = "transaction.created"

// TransactionCreatedMessage announces a stored transaction. It carries only
// what a consumer needs to locate the affected month; the worker reads the
// rest from the store.
type TransactionCreatedMessage struct {
	ID        int64     `json:"id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Date      string    `json:"date"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"message_id"`
}

// NewTransactionCreatedMessage builds the event for t.
func NewTransactionCreatedMessage(t core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:        t.ID,
		TenantID:  t.TenantID,
		Date:      t.Date.String(),
		Kind:      string(t.Kind),
		Timestamp: time.Now(),
		MessageID: uuid.NewString(),
	}
}

// Month returns the calendar month the transaction belongs to.
func (m *TransactionCreatedMessage) Month() (core.YearMonth, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("message %s: %w", m.MessageID, err)
	}
	return d.YearMonth(), nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON creates a message from JSON bytes
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
