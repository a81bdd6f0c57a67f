package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/owner"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOwnerWithAccount(t *testing.T, repo *OwnerRepository, balance int64) (*owner.Owner, uuid.UUID) {
	t.Helper()
	o, err := owner.New("Ayse Yilmaz", time.Now())
	require.NoError(t, err)
	acc, err := o.OpenAccount(shared.CurrencyTRY, "main", decimal.NewFromInt(balance), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), o))
	return o, acc.ID
}

func TestOwnerRepository_CreateAndGet(t *testing.T) {
	repo := NewOwnerRepository()
	o, accID := newOwnerWithAccount(t, repo, 100)

	got, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Name, got.Name)
	assert.Empty(t, got.PendingEvents())

	acc, err := got.Account(accID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(100)))

	t.Run("duplicate", func(t *testing.T) {
		err := repo.Create(context.Background(), o)
		var dup owner.ErrDuplicateOwner
		assert.True(t, errors.As(err, &dup))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, owner.ErrOwnerNotFound{})
	})
}

func TestOwnerRepository_GetReturnsCopy(t *testing.T) {
	repo := NewOwnerRepository()
	o, accID := newOwnerWithAccount(t, repo, 100)

	got, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	acc, _ := got.Account(accID)
	acc.Balance = decimal.NewFromInt(999)

	again, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	stored, _ := again.Account(accID)
	assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100)))
}

func TestOwnerRepository_UpdateCommitsOrDiscards(t *testing.T) {
	repo := NewOwnerRepository()
	o, accID := newOwnerWithAccount(t, repo, 100)
	ctx := context.Background()

	err := repo.Update(ctx, o.ID, func(o *owner.Owner) error {
		_, err := o.Post(accID, owner.Posting{Kind: shared.TransactionKindWithdraw, Amount: decimal.NewFromInt(40)}, time.Now())
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.Update(ctx, o.ID, func(o *owner.Owner) error {
		_, err := o.Post(accID, owner.Posting{Kind: shared.TransactionKindWithdraw, Amount: decimal.NewFromInt(10)}, time.Now())
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	acc, _ := got.Account(accID)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(60)))
	assert.Len(t, acc.Transactions, 2)
	assert.Equal(t, 2, got.Version)
}

func TestOwnerRepository_UpdateRejectsUnbalancedAggregate(t *testing.T) {
	repo := NewOwnerRepository()
	o, accID := newOwnerWithAccount(t, repo, 100)

	err := repo.Update(context.Background(), o.ID, func(o *owner.Owner) error {
		acc, _ := o.Account(accID)
		acc.Balance = decimal.NewFromInt(500)
		return nil
	})
	require.Error(t, err)

	got, _ := repo.Get(context.Background(), o.ID)
	acc, _ := got.Account(accID)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(100)))
}

func TestOwnerRepository_ConcurrentUpdatesAreSerialized(t *testing.T) {
	repo := NewOwnerRepository()
	o, accID := newOwnerWithAccount(t, repo, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Update(context.Background(), o.ID, func(o *owner.Owner) error {
				_, err := o.Post(accID, owner.Posting{Kind: shared.TransactionKindDeposit, Amount: decimal.NewFromInt(1)}, time.Now())
				return err
			})
		}()
	}
	wg.Wait()

	got, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	acc, _ := got.Account(accID)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(50)))
	assert.Len(t, acc.Transactions, 50)
}

func TestOwnerRepository_OwnerIDs(t *testing.T) {
	repo := NewOwnerRepository()
	a, _ := newOwnerWithAccount(t, repo, 1)
	b, _ := newOwnerWithAccount(t, repo, 1)

	ids, err := repo.OwnerIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)
}
