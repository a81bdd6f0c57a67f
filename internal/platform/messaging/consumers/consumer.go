package consumers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// MessageReader wraps kafka.Reader methods for testing
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer feeds messages of one topic to a handler. Offsets are only
// committed after the handler succeeds.
type KafkaConsumer struct {
	reader       MessageReader
	topic        string
	logger       *slog.Logger
	fetchBackoff time.Duration

	wg sync.WaitGroup
}

// NewKafkaConsumer creates a group consumer for topic
func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, topic string) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}
	return &KafkaConsumer{
		logger:       logger,
		topic:        topic,
		fetchBackoff: time.Second,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
	}
}

// Start consumes in a background goroutine until ctx is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context, handler MessageHandler) {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, handler)
	}()
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.fetchBackoff):
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("Failed to process message, will not commit offset",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close waits for the consume loop to exit and closes the reader. The
// context passed to Start must be cancelled first.
func (c *KafkaConsumer) Close() error {
	c.wg.Wait()
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
