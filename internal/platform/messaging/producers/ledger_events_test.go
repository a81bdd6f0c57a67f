package producers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLedgerEventProducer_Publish(t *testing.T) {
	ctx := context.Background()
	topic := "test-ledger-events"

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &LedgerEventProducer{logger: newTestLogger(), writer: mockWriter, topic: topic}

		key := "owner-1"
		value := []byte(`{"kind":"DEPOSIT","amount":"100"}`)
		headers := map[string]string{"event-kind": "DEPOSIT", "content-type": "application/json"}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			return string(msg.Key) == key &&
				string(msg.Value) == string(value) &&
				len(msg.Headers) == 2 &&
				msg.Headers[0].Key == "content-type" &&
				msg.Headers[1].Key == "event-kind" &&
				string(msg.Headers[1].Value) == "DEPOSIT"
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, key, value, headers))
		mockWriter.AssertExpectations(t)
	})

	t.Run("PublishReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &LedgerEventProducer{logger: newTestLogger(), writer: mockWriter, topic: topic}

		writerErr := errors.New("kafka write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := producer.Publish(ctx, "k", []byte("{}"), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, writerErr)
		mockWriter.AssertExpectations(t)
	})
}

func TestLedgerEventProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &LedgerEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "t"}

	closeErr := errors.New("close error")
	mockWriter.On("Close").Return(closeErr).Once()

	assert.ErrorIs(t, producer.Close(), closeErr)
	mockWriter.AssertExpectations(t)
}

func TestToKafkaHeaders(t *testing.T) {
	assert.Nil(t, toKafkaHeaders(nil))

	headers := toKafkaHeaders(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, []kafka.Header{{Key: "a", Value: []byte("1")}, {Key: "b", Value: []byte("2")}}, headers)
}
