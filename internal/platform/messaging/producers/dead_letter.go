package producers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const headerDLQReason = "dlq-reason"

var ErrDLQDisabled = errors.New("DLQ producer not initialized")

// DeadLetter wraps a message that was parked on the DLQ topic. JSON payloads
// are embedded as is, anything else is carried as a string.
type DeadLetter struct {
	Key      string          `json:"key"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Raw      string          `json:"raw,omitempty"`
	Reason   string          `json:"reason"`
	FailedAt time.Time       `json:"failed_at"`
}

func newDeadLetter(key string, value []byte, reason string, at time.Time) DeadLetter {
	letter := DeadLetter{Key: key, Reason: reason, FailedAt: at.UTC()}
	if json.Valid(value) {
		letter.Payload = value
	} else {
		letter.Raw = string(value)
	}
	return letter
}

type DLQProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
	now    func() time.Time
}

var _ DeadLetterPublisher = (*DLQProducer)(nil)

// NewDLQProducer returns a nil producer when no DLQ topic is configured.
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, dead letters will be dropped")
		return nil, nil
	}

	writer, err := openWriter(cfg, cfg.DLQTopic, &kafka.LeastBytes{}, logger)
	if err != nil {
		return nil, err
	}
	return &DLQProducer{logger: logger, writer: writer, topic: cfg.DLQTopic, now: time.Now}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}
	value, err := json.Marshal(newDeadLetter(key, originalMessageValue, reason, now()))
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: headerDLQReason, Value: []byte(reason)}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish dead letter to %s: %w", p.topic, err)
	}

	p.logger.Warn("Message parked on DLQ", "topic", p.topic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ writer for %s: %w", p.topic, err)
	}
	return nil
}
