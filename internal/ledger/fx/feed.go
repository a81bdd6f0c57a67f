package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/platform/messaging/producers"
	"github.com/shopspring/decimal"
)

// RateUpdate is a single quote published on the rate feed topic
type RateUpdate struct {
	From      shared.Currency `json:"from"`
	To        shared.Currency `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

// RateFeedHandler applies rate updates consumed from Kafka to the converter
type RateFeedHandler struct {
	converter *Converter
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewRateFeedHandler(logger *slog.Logger, converter *Converter, producer producers.DeadLetterPublisher) *RateFeedHandler {
	return &RateFeedHandler{
		converter: converter,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage processes one feed message. Malformed updates go to the DLQ
// when one is configured so they do not block the partition.
func (h *RateFeedHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var update RateUpdate
	if err := json.Unmarshal(value, &update); err != nil {
		return h.reject(ctx, key, value, "Failed to unmarshal rate update", err)
	}

	at := update.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	pair := Pair{From: update.From, To: update.To}
	if err := h.converter.SetRate(pair, update.Rate, at); err != nil {
		return h.reject(ctx, key, value, "Invalid rate update", err)
	}

	h.logger.Debug("Applied exchange rate update", "pair", pair.String(), "rate", update.Rate.String())
	return nil
}

func (h *RateFeedHandler) reject(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish rate update to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", msg, cause)
}
