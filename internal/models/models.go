package models

import "time"

// Product represents a product in the catalog
type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	ImageURL  string    `db:"image_url" json:"image_url,omitempty"`
	Category  string    `db:"category" json:"category,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Customer represents a storefront customer. Authentication happens
// upstream; this service only reads the profile snapshot fields.
type Customer struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CartItem is a customer-scoped line waiting to be converted into an order
type CartItem struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Order is the durable record of a purchase
type Order struct {
	ID                      int64       `db:"id" json:"id"`
	OrderNumber             string      `db:"order_number" json:"order_number"`
	UserID                  string      `db:"user_id" json:"user_id"`
	Items                   []OrderItem `db:"-" json:"items"`
	TotalAmount             int64       `db:"total_amount" json:"total_amount"`
	Status                  string      `db:"status" json:"status"`
	PaymentStatus           string      `db:"payment_status" json:"payment_status"`
	PaymentReference        string      `db:"payment_reference" json:"payment_reference,omitempty"`
	PaymentProvider         string      `db:"payment_provider" json:"payment_provider,omitempty"`
	PaymentAuthorizationURL string      `db:"payment_authorization_url" json:"payment_authorization_url,omitempty"`
	ShippingAddress         string      `db:"shipping_address" json:"shipping_address,omitempty"`
	ContactEmail            string      `db:"contact_email" json:"contact_email,omitempty"`
	ContactName             string      `db:"contact_name" json:"contact_name,omitempty"`
	Notes                   string      `db:"notes" json:"notes,omitempty"`
	PlacedAt                time.Time   `db:"placed_at" json:"placed_at"`
	CreatedAt               time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem is a line snapshot frozen at order-creation time.
// Price, name and category never change after the order is created,
// even if the source product does.
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Quantity  int    `db:"quantity" json:"quantity"`
	ImageURL  string `db:"image_url" json:"image_url,omitempty"`
	Category  string `db:"category" json:"category,omitempty"`
}

// ShippingRate is a configured flat shipping cost; the newest row wins
type ShippingRate struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Cost      int64     `db:"cost" json:"cost"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditLog is an append-only record of an order lifecycle event
type AuditLog struct {
	EventID   string    `db:"event_id" json:"event_id"`
	EventType string    `db:"event_type" json:"event_type"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	UserID    string    `db:"user_id" json:"user_id,omitempty"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Fulfillment statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment statuses. Paid is terminal: the reconciler never moves an
// order out of it.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusInitiated = "initiated"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
)

// ValidOrderStatus reports whether s is a known fulfillment status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
