package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout-service/config"
	"checkout-service/internal/apperr"
	"checkout-service/internal/mocks"
	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testOrderCfg = config.OrderConfig{NumberPrefix: "ORD", DefaultPageSize: 50}

func newTestOrderService(storage *mocks.MockStorage) *OrderService {
	shipping := NewShippingService(storage, storage, nil)
	return NewOrderService(storage, shipping, nil, nil, nil, testOrderCfg)
}

func testCustomer() *models.Customer {
	return &models.Customer{
		ID:      "cust-1",
		Email:   "jane@example.com",
		Name:    "Jane Doe",
		Address: "12 Harbor Road",
	}
}

func TestCreateOrderComputesExactTotal(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10, 11}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 2},
		{ID: 11, CustomerID: "cust-1", ProductID: 2, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000, Category: "home"}, nil)
	storage.On("GetProductByID", mock.Anything, int64(2)).Return(&models.Product{ID: 2, Name: "Vase", Price: 500, Category: "home"}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(300), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Order).ID = 77
	})
	storage.On("DeleteCartItems", mock.Anything, "cust-1", []int64{10, 11}).Return(int64(2), nil)

	svc := newTestOrderService(storage)

	order, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10, 11}})
	require.NoError(t, err)

	assert.Equal(t, int64(2*1000+1*500+300), order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "jane@example.com", order.ContactEmail)
	assert.Equal(t, "12 Harbor Road", order.ShippingAddress)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Lamp", order.Items[0].Name)
	assert.Equal(t, int64(1000), order.Items[0].UnitPrice)
	assert.Equal(t, 2, order.Items[0].Quantity)

	storage.AssertExpectations(t)
}

func TestCreateOrderClampsQuantityToOne(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 0},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	storage.On("DeleteCartItems", mock.Anything, "cust-1", []int64{10}).Return(int64(1), nil)

	svc := newTestOrderService(storage)

	order, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, int64(1000), order.TotalAmount)
}

func TestCreateOrderRejectsEmptySelection(t *testing.T) {
	storage := new(mocks.MockStorage)
	svc := newTestOrderService(storage)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: nil})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	storage.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCreateOrderNoResolvedCartLines(t *testing.T) {
	storage := new(mocks.MockStorage)
	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{99}).Return([]models.CartItem{}, nil)

	svc := newTestOrderService(storage)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{99}})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateOrderProceedsWithResolvedSubset(t *testing.T) {
	storage := new(mocks.MockStorage)

	// Three lines requested, only two still exist and belong to the customer
	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10, 11, 12}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 1},
		{ID: 12, CustomerID: "cust-1", ProductID: 2, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("GetProductByID", mock.Anything, int64(2)).Return(&models.Product{ID: 2, Name: "Vase", Price: 500}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	storage.On("DeleteCartItems", mock.Anything, "cust-1", []int64{10, 12}).Return(int64(2), nil)

	svc := newTestOrderService(storage)

	order, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10, 11, 12}})
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)

	// Only the converted lines are deleted, never the unresolved one
	storage.AssertCalled(t, "DeleteCartItems", mock.Anything, "cust-1", []int64{10, 12})
}

func TestCreateOrderMissingProductFailsBeforePersist(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 404, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(404)).Return(nil, store.ErrNotFound)

	svc := newTestOrderService(storage)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Contains(t, err.Error(), "404")
	storage.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	storage.AssertNotCalled(t, "DeleteCartItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderPersistFailureLeavesCartIntact(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(errors.New("disk full"))

	svc := newTestOrderService(storage)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.Error(t, err)
	storage.AssertNotCalled(t, "DeleteCartItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderNumberCollisionSurfacesConflict(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(store.ErrDuplicateOrderNumber)

	svc := newTestOrderService(storage)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.True(t, errors.Is(err, store.ErrDuplicateOrderNumber))
	storage.AssertNotCalled(t, "DeleteCartItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsecutiveOrderNumbersDiffer(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	storage.On("DeleteCartItems", mock.Anything, "cust-1", []int64{10}).Return(int64(1), nil)

	svc := newTestOrderService(storage)

	first, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Contains(t, first.OrderNumber, "ORD")
}

func TestCreateOrderBlockedByConcurrentCheckout(t *testing.T) {
	storage := new(mocks.MockStorage)
	locker := new(mocks.MockLocker)

	locker.On("AcquireLock", mock.Anything, "checkout:cust-1", mock.AnythingOfType("time.Duration")).Return(false, nil)

	shipping := NewShippingService(storage, storage, nil)
	svc := NewOrderService(storage, shipping, locker, nil, nil, testOrderCfg)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	storage.AssertNotCalled(t, "GetCartItemsByIDs", mock.Anything, mock.Anything, mock.Anything)
	locker.AssertNotCalled(t, "ReleaseLock", mock.Anything, mock.Anything)
}

func TestCreateOrderReleasesCheckoutLock(t *testing.T) {
	storage := new(mocks.MockStorage)
	locker := new(mocks.MockLocker)

	locker.On("AcquireLock", mock.Anything, "checkout:cust-1", mock.AnythingOfType("time.Duration")).Return(true, nil)
	locker.On("ReleaseLock", mock.Anything, "checkout:cust-1").Return(nil)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	storage.On("DeleteCartItems", mock.Anything, "cust-1", []int64{10}).Return(int64(1), nil)

	shipping := NewShippingService(storage, storage, nil)
	svc := NewOrderService(storage, shipping, locker, nil, nil, testOrderCfg)

	_, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.NoError(t, err)
	locker.AssertCalled(t, "ReleaseLock", mock.Anything, "checkout:cust-1")
}

func TestGetOrderEnforcesOwnership(t *testing.T) {
	storage := new(mocks.MockStorage)
	storage.On("GetOrderByID", mock.Anything, int64(7)).Return(&models.Order{ID: 7, UserID: "cust-2"}, nil)

	svc := newTestOrderService(storage)

	_, err := svc.GetOrder(context.Background(), "cust-1", 7)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestGetOrderNormalizesOwnerIdentity(t *testing.T) {
	storage := new(mocks.MockStorage)
	storage.On("GetOrderByID", mock.Anything, int64(7)).Return(&models.Order{ID: 7, UserID: " cust-1 "}, nil)

	svc := newTestOrderService(storage)

	order, err := svc.GetOrder(context.Background(), "cust-1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
}

func TestGetOrderNotFound(t *testing.T) {
	storage := new(mocks.MockStorage)
	storage.On("GetOrderByID", mock.Anything, int64(7)).Return(nil, store.ErrNotFound)

	svc := newTestOrderService(storage)

	_, err := svc.GetOrder(context.Background(), "cust-1", 7)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListOrdersDefaultsPagination(t *testing.T) {
	storage := new(mocks.MockStorage)
	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("ListOrders", mock.Anything, "cust-1", mock.MatchedBy(func(f store.OrderFilter) bool {
		return f.Page == 1 && f.Limit == 50
	})).Return([]models.Order{{ID: 1}}, int64(1), nil)

	svc := newTestOrderService(storage)

	result, err := svc.ListOrders(context.Background(), "cust-1", store.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 50, result.Limit)
}

func TestUpdateFulfillmentRejectsUnknownStatus(t *testing.T) {
	storage := new(mocks.MockStorage)
	svc := newTestOrderService(storage)

	_, err := svc.UpdateFulfillment(context.Background(), 7, &UpdateFulfillmentRequest{Status: "teleported"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	storage.AssertNotCalled(t, "UpdateOrderFulfillment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPlacedAtIsSet(t *testing.T) {
	storage := new(mocks.MockStorage)

	storage.On("GetCustomerByID", mock.Anything, "cust-1").Return(testCustomer(), nil)
	storage.On("GetCartItemsByIDs", mock.Anything, "cust-1", []int64{10}).Return([]models.CartItem{
		{ID: 10, CustomerID: "cust-1", ProductID: 1, Quantity: 1},
	}, nil)
	storage.On("GetProductByID", mock.Anything, int64(1)).Return(&models.Product{ID: 1, Name: "Lamp", Price: 1000}, nil)
	storage.On("CurrentShippingCost", mock.Anything).Return(int64(0), nil)
	storage.On("CreateOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	storage.On("DeleteCartItems", mock.Anything, "cust-1", []int64{10}).Return(int64(1), nil)

	svc := newTestOrderService(storage)

	order, err := svc.CreateOrder(context.Background(), "cust-1", &CreateOrderRequest{CartItemIDs: []int64{10}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), order.PlacedAt, time.Second)
}
