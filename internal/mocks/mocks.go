package mocks

import (
	"context"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements service.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockStorage) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockStorage) GetCartItemsByIDs(ctx context.Context, customerID string, ids []int64) ([]models.CartItem, error) {
	args := m.Called(ctx, customerID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *MockStorage) DeleteCartItems(ctx context.Context, customerID string, ids []int64) (int64, error) {
	args := m.Called(ctx, customerID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreateOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStorage) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockStorage) ListOrders(ctx context.Context, userID string, f store.OrderFilter) ([]models.Order, int64, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockStorage) SetPaymentInitiated(ctx context.Context, orderID int64, provider, reference, authorizationURL string) error {
	args := m.Called(ctx, orderID, provider, reference, authorizationURL)
	return args.Error(0)
}

func (m *MockStorage) MarkOrderPaid(ctx context.Context, orderID int64, reference string) (bool, error) {
	args := m.Called(ctx, orderID, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) MarkOrderPaymentFailed(ctx context.Context, orderID int64, reference string) (bool, error) {
	args := m.Called(ctx, orderID, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) UpdateOrderFulfillment(ctx context.Context, orderID int64, status, shippingAddress, notes string) error {
	args := m.Called(ctx, orderID, status, shippingAddress, notes)
	return args.Error(0)
}

func (m *MockStorage) CurrentShippingCost(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreateShippingRate(ctx context.Context, rate *models.ShippingRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

// MockGateway implements service.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitializeResult), args.Error(1)
}

// MockPublisher implements service.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishFulfillmentUpdated(ctx context.Context, event *models.FulfillmentUpdatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockLocker implements service.Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, lockKey, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) ReleaseLock(ctx context.Context, lockKey string) error {
	args := m.Called(ctx, lockKey)
	return args.Error(0)
}
