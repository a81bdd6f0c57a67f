package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores fraud alerts for later review
type Repository interface {
	Create(ctx context.Context, alert *Alert) error
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Alert, error)
	CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error)
}

// ErrDuplicateAlert indicates alert id uniqueness violation
type ErrDuplicateAlert struct {
	AlertID uuid.UUID
}

func (e ErrDuplicateAlert) Error() string {
	return "duplicate fraud alert: " + e.AlertID.String()
}

// Is implements the errors.Is interface for ErrDuplicateAlert
func (e ErrDuplicateAlert) Is(target error) bool {
	t, ok := target.(ErrDuplicateAlert)
	if !ok {
		return false
	}
	// If the target AlertID is empty, consider it a match for any ErrDuplicateAlert
	if t.AlertID == uuid.Nil {
		return true
	}
	return e.AlertID == t.AlertID
}
