// Package memory keeps owner aggregates in process memory. Mutations of one
// owner are serialized by a per-owner mutex; different owners never contend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
)

type entry struct {
	mu    sync.Mutex
	owner *owner.Owner
}

// OwnerRepository implements owner.Repository in memory
type OwnerRepository struct {
	mu     sync.RWMutex
	owners map[uuid.UUID]*entry
}

// NewOwnerRepository creates an empty repository
func NewOwnerRepository() *OwnerRepository {
	return &OwnerRepository{owners: make(map[uuid.UUID]*entry)}
}

func (r *OwnerRepository) Create(ctx context.Context, o *owner.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owners[o.ID]; ok {
		return owner.ErrDuplicateOwner{OwnerID: o.ID}
	}
	stored := o.Clone()
	stored.ClearEvents()
	r.owners[o.ID] = &entry{owner: stored}
	return nil
}

// Get returns a copy of the owner; changes to it are not persisted.
func (r *OwnerRepository) Get(ctx context.Context, id uuid.UUID) (*owner.Owner, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner.Clone(), nil
}

// Update runs fn on a working copy while holding the owner's lock and swaps
// the copy in only if fn succeeds and the aggregate still balances.
func (r *OwnerRepository) Update(ctx context.Context, id uuid.UUID, fn func(o *owner.Owner) error) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.owner.Clone()
	if err := fn(working); err != nil {
		return err
	}
	if err := working.Verify(); err != nil {
		return fmt.Errorf("owner %s failed verification: %w", id, err)
	}
	working.Version++
	working.ClearEvents()
	e.owner = working
	return nil
}

// OwnerIDs returns every stored owner id in a stable order.
func (r *OwnerRepository) OwnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.owners))
	for id := range r.owners {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *OwnerRepository) lookup(id uuid.UUID) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.owners[id]
	if !ok {
		return nil, owner.ErrOwnerNotFound{OwnerID: id}
	}
	return e, nil
}
