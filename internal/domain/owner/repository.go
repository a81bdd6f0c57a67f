package owner

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists owner aggregates. Update serializes mutations of one
// owner and commits fn's changes atomically, or not at all if fn fails.
type Repository interface {
	Create(ctx context.Context, o *Owner) error
	Get(ctx context.Context, id uuid.UUID) (*Owner, error)
	Update(ctx context.Context, id uuid.UUID, fn func(o *Owner) error) error
	OwnerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ErrOwnerNotFound indicates missing owner
type ErrOwnerNotFound struct {
	OwnerID uuid.UUID
}

func (e ErrOwnerNotFound) Error() string {
	return "owner not found: " + e.OwnerID.String()
}

// Is implements the errors.Is interface for ErrOwnerNotFound
func (e ErrOwnerNotFound) Is(target error) bool {
	t, ok := target.(ErrOwnerNotFound)
	if !ok {
		return false
	}
	// If the target OwnerID is empty, consider it a match for any ErrOwnerNotFound
	if t.OwnerID == uuid.Nil {
		return true
	}
	return e.OwnerID == t.OwnerID
}

// ErrDuplicateOwner indicates owner id uniqueness violation
type ErrDuplicateOwner struct {
	OwnerID uuid.UUID
}

func (e ErrDuplicateOwner) Error() string {
	return "owner already exists: " + e.OwnerID.String()
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	OwnerID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for owner: " + e.OwnerID.String()
}
