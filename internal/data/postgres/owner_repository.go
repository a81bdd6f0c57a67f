package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

const uniqueViolation = "23505"

// OwnerRepository stores each owner aggregate as one JSONB document guarded
// by a version column. Ledger events raised during an update are written to
// the outbox in the same transaction.
type OwnerRepository struct {
	pool   persistence.Pool
	outbox outbox.Repository
	logger *slog.Logger
}

var _ owner.Repository = (*OwnerRepository)(nil)

// NewOwnerRepository creates a new PostgreSQL owner repository
func NewOwnerRepository(logger *slog.Logger, db persistence.Pool, outboxRepo outbox.Repository) *OwnerRepository {
	return &OwnerRepository{
		pool:   db,
		outbox: outboxRepo,
		logger: logger,
	}
}

func (r *OwnerRepository) Create(ctx context.Context, o *owner.Owner) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode owner: %w", err)
	}

	query := `
		INSERT INTO owners (id, name, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query, o.ID, o.Name, doc, o.Version, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return owner.ErrDuplicateOwner{OwnerID: o.ID}
		}
		r.logger.Error("Failed to create owner", "owner_id", o.ID.String(), "error", err)
		return fmt.Errorf("failed to create owner: %w", err)
	}
	return nil
}

func (r *OwnerRepository) Get(ctx context.Context, id uuid.UUID) (*owner.Owner, error) {
	query := `SELECT document, version FROM owners WHERE id = $1`
	return r.load(ctx, r.pool, query, id)
}

// Update locks the owner row, applies fn and writes the new document only if
// the version read under the lock is still current.
func (r *OwnerRepository) Update(ctx context.Context, id uuid.UUID, fn func(o *owner.Owner) error) error {
	return persistence.RunInTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT document, version FROM owners WHERE id = $1 FOR UPDATE`
		o, err := r.load(ctx, tx, query, id)
		if err != nil {
			return err
		}

		prev := o.Version
		if err := fn(o); err != nil {
			return err
		}
		if err := o.Verify(); err != nil {
			return fmt.Errorf("owner %s failed verification: %w", id, err)
		}
		o.Version = prev + 1

		doc, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to encode owner: %w", err)
		}

		update := `
			UPDATE owners
			SET name = $1, document = $2, version = $3, updated_at = $4
			WHERE id = $5 AND version = $6
		`
		result, err := tx.Exec(ctx, update, o.Name, doc, o.Version, time.Now(), id, prev)
		if err != nil {
			r.logger.Error("Failed to update owner", "owner_id", id.String(), "error", err)
			return fmt.Errorf("failed to update owner: %w", err)
		}
		if result.RowsAffected() == 0 {
			return owner.ErrConcurrentModification{OwnerID: id}
		}

		txOutbox := r.outbox.WithTx(tx)
		for _, event := range o.PendingEvents() {
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return fmt.Errorf("failed to encode ledger event: %w", err)
			}
			if err := txOutbox.Create(ctx, msg); err != nil {
				return err
			}
		}
		o.ClearEvents()
		return nil
	})
}

// OwnerIDs returns every stored owner id in a stable order.
func (r *OwnerRepository) OwnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM owners ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over owners: %w", err)
	}
	return ids, nil
}

func (r *OwnerRepository) load(ctx context.Context, q persistence.Querier, query string, id uuid.UUID) (*owner.Owner, error) {
	var (
		doc     []byte
		version int
	)
	err := q.QueryRow(ctx, query, id).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, owner.ErrOwnerNotFound{OwnerID: id}
		}
		r.logger.Error("Failed to load owner", "owner_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}

	var o owner.Owner
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, fmt.Errorf("failed to decode owner %s: %w", id, err)
	}
	o.Version = version
	return &o, nil
}
