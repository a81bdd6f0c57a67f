package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes already encoded messages to a primary topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
	Close() error
}

// DeadLetterPublisher parks messages that could not be handled
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// openWriter ensures topic exists and returns a synchronous writer that waits
// for every in-sync replica.
func openWriter(cfg *config.KafkaConfig, topic string, balancer kafka.Balancer, logger *slog.Logger) (*kafka.Writer, error) {
	if err := dialAndEnsureTopic(cfg.Brokers, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}, nil
}
