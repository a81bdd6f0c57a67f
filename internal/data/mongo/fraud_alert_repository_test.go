package mongo

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/retail-banking-ledger/internal/domain/alert"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func toDocument(t *testing.T, a *alert.Alert) bson.D {
	t.Helper()
	raw, err := bson.Marshal(a)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestFraudAlertRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ownerID := uuid.New()

	mt.Run("success", func(mt *mtest.T) {
		repo := NewFraudAlertRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		a := &alert.Alert{OwnerID: ownerID, Rule: "RAPID_SUCCESSION", Severity: "LOW", DetectedAt: time.Now()}
		err := repo.Create(context.Background(), a)

		require.NoError(mt, err)
		assert.NotEqual(mt, uuid.Nil, a.ID)
		assert.False(mt, a.CreatedAt.IsZero())
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		repo := NewFraudAlertRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		a := &alert.Alert{ID: uuid.New(), OwnerID: ownerID, Rule: "UNUSUAL_AMOUNT"}
		err := repo.Create(context.Background(), a)

		assert.ErrorIs(mt, err, alert.ErrDuplicateAlert{AlertID: a.ID})
	})

	mt.Run("database error", func(mt *mtest.T) {
		repo := NewFraudAlertRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))

		err := repo.Create(context.Background(), &alert.Alert{OwnerID: ownerID})

		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to create fraud alert")
	})
}

func TestFraudAlertRepository_GetByOwnerID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ownerID := uuid.New()
	detected := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mt.Run("returns decoded alerts", func(mt *mtest.T) {
		repo := NewFraudAlertRepository(newTestLogger(), mt.DB)
		first := &alert.Alert{ID: uuid.New(), OwnerID: ownerID, Rule: "SAME_IBAN_MULTIPLE_TRANSFERS", Severity: "HIGH", DetectedAt: detected}
		second := &alert.Alert{ID: uuid.New(), OwnerID: ownerID, Rule: "RAPID_SUCCESSION", Severity: "LOW", DetectedAt: detected.Add(-time.Minute)}

		ns := mt.Coll.Database().Name() + "." + FraudAlertCollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, toDocument(mt.T, first), toDocument(mt.T, second)),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch),
		)

		alerts, err := repo.GetByOwnerID(context.Background(), ownerID, 10, 0)
		require.NoError(mt, err)
		require.Len(mt, alerts, 2)
		assert.Equal(mt, first.ID, alerts[0].ID)
		assert.Equal(mt, "SAME_IBAN_MULTIPLE_TRANSFERS", alerts[0].Rule)
		assert.True(mt, detected.Equal(alerts[0].DetectedAt))
	})

	mt.Run("query error", func(mt *mtest.T) {
		repo := NewFraudAlertRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "boom"}))

		_, err := repo.GetByOwnerID(context.Background(), ownerID, 10, 0)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to get fraud alerts")
	})
}

func TestFraudAlertRepository_CountSince(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		repo := NewFraudAlertRepository(newTestLogger(), mt.DB)
		ns := mt.Coll.Database().Name() + "." + FraudAlertCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		count, err := repo.CountSince(context.Background(), uuid.New(), time.Now().Add(-time.Hour))
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), count)
	})
}
