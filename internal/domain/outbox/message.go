package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Header names attached to every published ledger event
const (
	HeaderTransactionID = "transaction-id"
	HeaderOwnerID       = "owner-id"
	HeaderEventKind     = "event-kind"
)

// Message stores a committed ledger event until it has been published
type Message struct {
	ID            int64
	TransactionID uuid.UUID
	OwnerID       uuid.UUID
	AccountID     uuid.UUID
	Kind          shared.TransactionKind
	Payload       json.RawMessage
	Status        shared.OutboxStatus
	Attempts      int
	CreatedAt     time.Time
	LastAttemptAt *time.Time
}

// NewMessage encodes event as a pending message created at the event time.
func NewMessage(event shared.LedgerEvent) (*Message, error) {
	if event.TransactionID == uuid.Nil || event.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("ledger event is missing its transaction or owner id")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger event %s: %w", event.TransactionID, err)
	}

	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &Message{
		TransactionID: event.TransactionID,
		OwnerID:       event.OwnerID,
		AccountID:     event.AccountID,
		Kind:          event.Kind,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     createdAt,
	}, nil
}

// Key partitions events by owner so one owner's events stay in commit order.
func (m *Message) Key() string {
	return m.OwnerID.String()
}

func (m *Message) Headers() map[string]string {
	return map[string]string{
		HeaderTransactionID: m.TransactionID.String(),
		HeaderOwnerID:       m.OwnerID.String(),
		HeaderEventKind:     string(m.Kind),
	}
}

// LedgerEvent decodes the event carried in the payload
func (m *Message) LedgerEvent() (*shared.LedgerEvent, error) {
	var event shared.LedgerEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
