// Package outbox_poller relays committed ledger events from the outbox table
// to Kafka. Delivery is at least once; consumers dedupe on transaction_id.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/platform/messaging/producers"
)

const (
	ResultPublished    = "published"
	ResultRetried      = "retried"
	ResultDeadLettered = "dead_lettered"
)

// purgeInterval is how often processed messages past retention are deleted
const purgeInterval = time.Hour

// Metrics counts outbox messages by result
type Metrics interface {
	OutboxResult(result string)
}

type noopMetrics struct{}

func (noopMetrics) OutboxResult(string) {}

// Poller moves pending outbox messages onto the ledger event topic
type Poller struct {
	outboxRepo outbox.Repository
	publisher  producers.MessagePublisher
	dlq        producers.DeadLetterPublisher
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time

	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	retention    time.Duration

	wg sync.WaitGroup
}

// NewPoller creates a poller. dlq and metrics may be nil.
func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	dlq producers.DeadLetterPublisher,
	metrics Metrics,
	logger *slog.Logger,
) *Poller {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Poller{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		dlq:          dlq,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxRetryAttempts,
		retention:    cfg.Retention,
	}
}

// Start polls in a background goroutine until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_attempts", p.maxAttempts,
		"retention", p.retention.String(),
	)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		poll := time.NewTicker(p.pollInterval)
		defer poll.Stop()
		purge := time.NewTicker(purgeInterval)
		defer purge.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("Outbox poller stopping due to context cancellation")
				return
			case <-poll.C:
				if _, err := p.ProcessBatch(ctx); err != nil {
					p.logger.Error("Outbox batch failed", "error", err)
				}
			case <-purge.C:
				if _, err := p.Purge(ctx); err != nil {
					p.logger.Error("Outbox purge failed", "error", err)
				}
			}
		}
	}()
}

// Wait blocks until the polling goroutine has exited
func (p *Poller) Wait() {
	p.wg.Wait()
}

// ProcessBatch publishes one batch of pending messages and returns how many
// were published.
func (p *Poller) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.Pending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	published := 0
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if p.relay(ctx, msg) {
			published++
		}
	}
	if len(messages) > 0 {
		p.logger.Debug("Outbox batch relayed", "fetched", len(messages), "published", published)
	}
	return published, nil
}

// Purge deletes processed messages older than the retention window.
func (p *Poller) Purge(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	purged, err := p.outboxRepo.PurgeProcessed(ctx, p.now().Add(-p.retention))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		p.logger.Info("Purged processed outbox messages", "count", purged)
	}
	return purged, nil
}

func (p *Poller) relay(ctx context.Context, msg *outbox.Message) bool {
	logger := p.logger.With(
		"outbox_id", msg.ID,
		"transaction_id", msg.TransactionID.String(),
		"owner_id", msg.OwnerID.String(),
	)

	if err := p.publisher.Publish(ctx, msg.Key(), msg.Payload, msg.Headers()); err != nil {
		logger.Warn("Failed to publish outbox message", "attempts", msg.Attempts, "error", err)
		p.recordFailure(ctx, logger, msg, err)
		return false
	}

	if err := p.outboxRepo.MarkProcessed(ctx, msg.ID, p.now()); err != nil {
		// Already on the topic; the next tick publishes it again.
		logger.Error("Failed to mark outbox message processed", "error", err)
		return false
	}
	p.metrics.OutboxResult(ResultPublished)
	return true
}

func (p *Poller) recordFailure(ctx context.Context, logger *slog.Logger, msg *outbox.Message, cause error) {
	attempts, err := p.outboxRepo.RecordFailedAttempt(ctx, msg.ID, p.now())
	if err != nil {
		logger.Error("Failed to record outbox publish attempt", "error", err)
		return
	}
	if attempts < p.maxAttempts {
		p.metrics.OutboxResult(ResultRetried)
		return
	}

	logger.Warn("Outbox message exhausted its publish attempts", "attempts", attempts)
	if p.dlq != nil {
		reason := fmt.Sprintf("max publish attempts reached: %s", cause.Error())
		if err := p.dlq.PublishToDLQ(ctx, msg.Key(), msg.Payload, reason); err != nil {
			logger.Error("Failed to publish outbox message to DLQ", "error", err)
		}
	}
	if err := p.outboxRepo.MarkFailed(ctx, msg.ID, p.now()); err != nil {
		logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "error", err)
		return
	}
	p.metrics.OutboxResult(ResultDeadLettered)
}
