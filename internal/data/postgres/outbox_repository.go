package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

const outboxColumns = `id, transaction_id, owner_id, account_id, kind, payload, status, attempts, created_at, last_attempt_at`

// OutboxRepository implements outbox.Repository on the ledger_outbox table
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db persistence.Querier) *OutboxRepository {
	return &OutboxRepository{
		querier: db,
		logger:  logger,
	}
}

// WithTx binds the repository to tx so messages commit with the owner update
// that produced them.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO ledger_outbox (transaction_id, owner_id, account_id, kind, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.TransactionID,
		message.OwnerID,
		message.AccountID,
		message.Kind,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox message",
			"transaction_id", message.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// Pending returns up to limit pending messages, oldest first
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `SELECT ` + outboxColumns + `
		FROM ledger_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to query pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	messages, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		r.logger.Error("Failed to read pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func scanMessage(row pgx.CollectableRow) (*outbox.Message, error) {
	var m outbox.Message
	err := row.Scan(
		&m.ID,
		&m.TransactionID,
		&m.OwnerID,
		&m.AccountID,
		&m.Kind,
		&m.Payload,
		&m.Status,
		&m.Attempts,
		&m.CreatedAt,
		&m.LastAttemptAt,
	)
	return &m, err
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	return r.setStatus(ctx, id, shared.OutboxStatusProcessed, at)
}

// MarkFailed parks a message that exhausted its publish attempts
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, at time.Time) error {
	return r.setStatus(ctx, id, shared.OutboxStatusFailedToPublish, at)
}

func (r *OutboxRepository) setStatus(ctx context.Context, id int64, status shared.OutboxStatus, at time.Time) error {
	query := `UPDATE ledger_outbox SET status = $1, last_attempt_at = $2 WHERE id = $3`

	result, err := r.querier.Exec(ctx, query, status, at, id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to set outbox message %d to %s: %w", id, status, err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) RecordFailedAttempt(ctx context.Context, id int64, at time.Time) (int, error) {
	query := `
		UPDATE ledger_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
		RETURNING attempts
	`

	var attempts int
	if err := r.querier.QueryRow(ctx, query, at, id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, outbox.ErrMessageNotFound{ID: id}
		}
		r.logger.Error("Failed to record outbox publish attempt", "id", id, "error", err)
		return 0, fmt.Errorf("failed to record attempt for outbox message %d: %w", id, err)
	}
	return attempts, nil
}

func (r *OutboxRepository) PurgeProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM ledger_outbox WHERE status = $1 AND last_attempt_at < $2`

	result, err := r.querier.Exec(ctx, query, shared.OutboxStatusProcessed, cutoff)
	if err != nil {
		r.logger.Error("Failed to purge processed outbox messages", "error", err)
		return 0, fmt.Errorf("failed to purge processed outbox messages: %w", err)
	}
	return result.RowsAffected(), nil
}
