package fx

import (
	"context"
	"errors"
	"testing"

	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestRateFeedHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("AppliesUpdate", func(t *testing.T) {
		c := NewConverter(0)
		h := NewRateFeedHandler(newTestLogger(), c, nil)

		err := h.HandleMessage(ctx, []byte("USDTRY"), []byte(`{"from":"USD","to":"TRY","rate":"32.75"}`))
		require.NoError(t, err)

		rate, err := c.Quote(shared.CurrencyUSD, shared.CurrencyTRY)
		require.NoError(t, err)
		assert.True(t, d("32.75").Equal(rate))
	})

	t.Run("MalformedGoesToDLQ", func(t *testing.T) {
		dlq := new(MockDLQPublisher)
		h := NewRateFeedHandler(newTestLogger(), NewConverter(0), dlq)
		value := []byte(`{not json`)
		dlq.On("PublishToDLQ", ctx, "k", value, mock.AnythingOfType("string")).Return(nil).Once()

		assert.NoError(t, h.HandleMessage(ctx, []byte("k"), value))
		dlq.AssertExpectations(t)
	})

	t.Run("InvalidRateWithoutDLQ", func(t *testing.T) {
		h := NewRateFeedHandler(newTestLogger(), NewConverter(0), nil)
		err := h.HandleMessage(ctx, []byte("k"), []byte(`{"from":"USD","to":"TRY","rate":"-1"}`))
		assert.ErrorIs(t, err, shared.ErrInvalidRequest)
	})

	t.Run("DLQFailureReturnsOriginalError", func(t *testing.T) {
		dlq := new(MockDLQPublisher)
		h := NewRateFeedHandler(newTestLogger(), NewConverter(0), dlq)
		dlq.On("PublishToDLQ", ctx, "k", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

		err := h.HandleMessage(ctx, []byte("k"), []byte(`{"from":"USD","to":"JPY","rate":"150"}`))
		assert.ErrorIs(t, err, shared.ErrUnsupportedCurrencyPair)
		dlq.AssertExpectations(t)
	})
}
