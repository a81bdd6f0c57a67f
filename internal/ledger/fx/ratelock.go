package fx

import (
	"context"
	"sync"
	"time"

	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultLockTTL bounds how long a reserved rate stays valid.
const DefaultLockTTL = 5 * time.Minute

// Lock reserves a currency pair, and once pinned its rate, for one operation
type Lock struct {
	OperationID string           `json:"operation_id"`
	Pair        Pair             `json:"pair"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// RateLocker reserves rates for the two legs of an exchange. Acquire and
// Release are idempotent per operation id; Pin keeps the first rate it sees.
type RateLocker interface {
	Acquire(ctx context.Context, operationID string, pair Pair) (*Lock, error)
	Pin(ctx context.Context, operationID string, rate decimal.Decimal) (decimal.Decimal, error)
	Release(ctx context.Context, operationID string) error
}

// MemoryRateLock keeps locks in process memory. Expired locks are reaped
// whenever the table is touched.
type MemoryRateLock struct {
	mu    sync.Mutex
	locks map[string]*Lock
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryRateLock(ttl time.Duration) *MemoryRateLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &MemoryRateLock{
		locks: make(map[string]*Lock),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryRateLock) Acquire(_ context.Context, operationID string, pair Pair) (*Lock, error) {
	if operationID == "" {
		return nil, shared.Errorf(shared.KindInvalidRequest, "operation id is required to lock a rate")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.reap(now)

	if l, ok := m.locks[operationID]; ok {
		if l.Pair != pair {
			return nil, shared.Errorf(shared.KindRateLockConflict,
				"operation %s already holds a lock on %s", operationID, l.Pair)
		}
		cp := *l
		return &cp, nil
	}
	l := &Lock{OperationID: operationID, Pair: pair, ExpiresAt: now.Add(m.ttl)}
	m.locks[operationID] = l
	cp := *l
	return &cp, nil
}

func (m *MemoryRateLock) Pin(_ context.Context, operationID string, rate decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.reap(now)

	l, ok := m.locks[operationID]
	if !ok {
		return decimal.Zero, shared.Errorf(shared.KindRateUnavailable, "rate lock for operation %s expired or was never acquired", operationID)
	}
	if l.Rate == nil {
		r := rate
		l.Rate = &r
	}
	return *l.Rate, nil
}

func (m *MemoryRateLock) Release(_ context.Context, operationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, operationID)
	m.reap(m.now())
	return nil
}

// Len returns the number of live locks.
func (m *MemoryRateLock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reap(m.now())
	return len(m.locks)
}

func (m *MemoryRateLock) reap(now time.Time) {
	for id, l := range m.locks {
		if !now.Before(l.ExpiresAt) {
			delete(m.locks, id)
		}
	}
}
