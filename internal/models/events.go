package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypePaymentInitiated   = "PAYMENT_INITIATED"
	EventTypeOrderPaid          = "ORDER_PAID"
	EventTypePaymentFailed      = "PAYMENT_FAILED"
	EventTypeFulfillmentUpdated = "FULFILLMENT_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when cart lines are materialized into an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// PaymentInitiatedEvent published when a hosted payment transaction is opened
type PaymentInitiatedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	UserID    string `json:"user_id"`
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// OrderPaidEvent published when the reconciler confirms a payment
type OrderPaidEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
}

// PaymentFailedEvent published when the provider reports a failed charge
type PaymentFailedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
}

// FulfillmentUpdatedEvent published when order fulfillment status changes
type FulfillmentUpdatedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// OrderItemData represents line snapshot data in events
type OrderItemData struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
