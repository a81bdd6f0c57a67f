package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEvent is published for every transaction committed to an owner's books
type LedgerEvent struct {
	TransactionID   uuid.UUID         `json:"transaction_id"`
	OwnerID         uuid.UUID         `json:"owner_id"`
	AccountID       uuid.UUID         `json:"account_id"`
	Kind            TransactionKind   `json:"kind"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        Currency          `json:"currency"`
	Counterparty    string            `json:"counterparty,omitempty"`
	ExchangeRate    *decimal.Decimal  `json:"exchange_rate,omitempty"`
	ConvertedAmount *decimal.Decimal  `json:"converted_amount,omitempty"`
	Category        Category          `json:"category"`
	Status          TransactionStatus `json:"status"`
	BalanceAfter    decimal.Decimal   `json:"balance_after"`
	Timestamp       time.Time         `json:"timestamp"`
}
