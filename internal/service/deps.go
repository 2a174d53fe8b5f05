package service

import (
	"context"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

// CustomerStore reads customer profiles (owned by the accounts system;
// this service only consumes the snapshot fields)
type CustomerStore interface {
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
}

// CatalogStore resolves current product prices and display metadata
type CatalogStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// CartStore reads and deletes customer-scoped cart lines
type CartStore interface {
	GetCartItemsByIDs(ctx context.Context, customerID string, ids []int64) ([]models.CartItem, error)
	DeleteCartItems(ctx context.Context, customerID string, ids []int64) (int64, error)
}

// OrderStore persists orders and applies payment state transitions
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, f store.OrderFilter) ([]models.Order, int64, error)
	SetPaymentInitiated(ctx context.Context, orderID int64, provider, reference, authorizationURL string) error
	MarkOrderPaid(ctx context.Context, orderID int64, reference string) (bool, error)
	MarkOrderPaymentFailed(ctx context.Context, orderID int64, reference string) (bool, error)
	UpdateOrderFulfillment(ctx context.Context, orderID int64, status, shippingAddress, notes string) error
}

// ShippingStore reads and writes the configured flat shipping cost
type ShippingStore interface {
	CurrentShippingCost(ctx context.Context) (int64, error)
	CreateShippingRate(ctx context.Context, rate *models.ShippingRate) error
}

// Storage is the full persistence surface, implemented by *store.Store
type Storage interface {
	CustomerStore
	CatalogStore
	CartStore
	OrderStore
	ShippingStore
}

// Locker provides short-lived advisory locks, implemented by the Redis
// client. Used as the claim step guarding concurrent materialization.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// SnapshotCache caches product snapshots and the current shipping cost
type SnapshotCache interface {
	GetCachedProduct(ctx context.Context, productID int64) (*models.Product, error)
	CacheProduct(ctx context.Context, product *models.Product, ttl time.Duration) error
	GetCachedShippingCost(ctx context.Context) (int64, bool, error)
	CacheShippingCost(ctx context.Context, cost int64, ttl time.Duration) error
	InvalidateShippingCost(ctx context.Context) error
}

// Publisher emits domain events to the order event stream
type Publisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishPaymentInitiated(ctx context.Context, event *models.PaymentInitiatedEvent) error
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
	PublishFulfillmentUpdated(ctx context.Context, event *models.FulfillmentUpdatedEvent) error
}

// PaymentGateway opens hosted payment transactions with the external provider
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error)
}
