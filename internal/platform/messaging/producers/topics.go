package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// TopicAdmin is the subset of *kafka.Conn used to ensure topics exist
type TopicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// EnsureTopic creates topic unless its partitions can be read. Partition
// reads are retried because a freshly started broker reports errors for a while.
func EnsureTopic(admin TopicAdmin, topic string, numPartitions, replicationFactor int, backoff time.Duration, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)
	for i := 0; i < topicReadAttempts; i++ {
		partitions, err = admin.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topic, "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying...", "topic", topic, "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}

	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topic, "partitions", cfg.NumPartitions, "last_read_error", err)
	if err := admin.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}

func dialAndEnsureTopic(brokers, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	conn, err := kafka.Dial("tcp", brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return EnsureTopic(conn, topic, numPartitions, replicationFactor, topicReadBackoff, log)
}
