package owner

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Recipient is a saved external payee
type Recipient struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	IBAN      string          `json:"iban"`
	Currency  shared.Currency `json:"currency,omitempty"` // Empty when unknown
	CreatedAt time.Time       `json:"created_at"`
}
