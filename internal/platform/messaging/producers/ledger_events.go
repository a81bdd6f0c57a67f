package producers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// LedgerEventProducer publishes committed ledger events. Writes are
// synchronous so the outbox poller only marks a message processed once the
// broker has acknowledged it.
type LedgerEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

var _ MessagePublisher = (*LedgerEventProducer)(nil)

// NewLedgerEventProducer ensures the ledger event topic exists and opens a writer.
// Messages are hashed by key so all events of one owner keep their order.
func NewLedgerEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*LedgerEventProducer, error) {
	if cfg.LedgerEventTopic == "" {
		return nil, fmt.Errorf("kafka ledger event topic is not configured")
	}

	writer, err := openWriter(cfg, cfg.LedgerEventTopic, &kafka.Hash{}, logger)
	if err != nil {
		return nil, err
	}

	return &LedgerEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.LedgerEventTopic,
	}, nil
}

func (p *LedgerEventProducer) Publish(ctx context.Context, key string, value []byte, headers map[string]string) error {
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: toKafkaHeaders(headers),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger event", "topic", p.topic, "key", key)
	return nil
}

func (p *LedgerEventProducer) Close() error {
	p.logger.Info("Closing ledger event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: []byte(headers[k])})
	}
	return out
}
