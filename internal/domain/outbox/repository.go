package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository holds ledger events until the poller has relayed them. Messages
// written through WithTx commit or roll back with the owner update that
// produced them.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	Pending(ctx context.Context, limit int) ([]*Message, error)
	MarkProcessed(ctx context.Context, id int64, at time.Time) error
	// RecordFailedAttempt returns the attempt count after the increment
	RecordFailedAttempt(ctx context.Context, id int64, at time.Time) (int, error)
	MarkFailed(ctx context.Context, id int64, at time.Time) error
	// PurgeProcessed deletes processed messages last touched before cutoff
	PurgeProcessed(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
