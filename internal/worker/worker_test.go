package worker

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func TestHandleMessageWritesAuditEntry(t *testing.T) {
	store := new(mockAuditStore)
	store.On("InsertAuditLog", mock.Anything, mock.MatchedBy(func(entry *models.AuditLog) bool {
		return entry.EventID == "evt-1" &&
			entry.EventType == models.EventTypeOrderCreated &&
			entry.OrderID == 42 &&
			entry.UserID == "cust-1"
	})).Return(nil)

	w := NewAuditWorker(nil, store)

	payload := []byte(`{"event_id":"evt-1","event_type":"ORDER_CREATED","order_id":42,"user_id":"cust-1"}`)
	err := w.handleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestHandleMessageSkipsUnparseablePayload(t *testing.T) {
	store := new(mockAuditStore)
	w := NewAuditWorker(nil, store)

	err := w.handleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.NoError(t, err)
	store.AssertNotCalled(t, "InsertAuditLog", mock.Anything, mock.Anything)
}

func TestHandleMessageSkipsEventWithoutOrder(t *testing.T) {
	store := new(mockAuditStore)
	w := NewAuditWorker(nil, store)

	err := w.handleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_id":"evt-2","event_type":"ORDER_CREATED"}`)})
	assert.NoError(t, err)
	store.AssertNotCalled(t, "InsertAuditLog", mock.Anything, mock.Anything)
}
