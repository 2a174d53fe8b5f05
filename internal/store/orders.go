package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOrderNumber is returned when the order_number unique
	// constraint rejects an insert. The caller retries with a fresh suffix.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
)

const pqUniqueViolation = "23505"

// OrderFilter narrows a customer-scoped order listing
type OrderFilter struct {
	Status    string
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// CreateOrder persists the order and its line snapshots in one
// transaction. The order ID and timestamps are filled in on success.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			order_number, user_id, total_amount, status, payment_status,
			shipping_address, contact_email, contact_name, notes, placed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.OrderNumber, order.UserID, order.TotalAmount, order.Status, order.PaymentStatus,
		order.ShippingAddress, order.ContactEmail, order.ContactName, order.Notes, order.PlacedAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, image_url, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.OrderID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, item.ImageURL, item.Category,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order and its line snapshots
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the customer's orders matching the filter plus the
// total count before pagination
func (s *Store) ListOrders(ctx context.Context, userID string, f OrderFilter) ([]models.Order, int64, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+strings.TrimSpace(f.Search)+"%")
		where = append(where, fmt.Sprintf("order_number ILIKE $%d", len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		where = append(where, fmt.Sprintf("placed_at >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		where = append(where, fmt.Sprintf("placed_at <= $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM orders WHERE " + whereClause
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	listQuery := fmt.Sprintf(
		"SELECT * FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, len(args)-1, len(args))

	var orders []models.Order
	if err := s.db.SelectContext(ctx, &orders, listQuery, args...); err != nil {
		return nil, 0, err
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return err
	}

	for _, item := range items {
		if o := byID[item.OrderID]; o != nil {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

// SetPaymentInitiated records the provider correlation data for a
// freshly opened hosted-payment transaction
func (s *Store) SetPaymentInitiated(ctx context.Context, orderID int64, provider, reference, authorizationURL string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, payment_provider = $2, payment_reference = $3,
		    payment_authorization_url = $4, updated_at = NOW()
		WHERE id = $5`,
		models.PaymentStatusInitiated, provider, reference, authorizationURL, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOrderPaid applies the paid transition to the order matching both
// the id and the stored payment reference. It reports whether a row
// actually changed: an already-paid order or a reference from a
// superseded initialization attempt yields (false, nil), which callers
// treat as a no-op.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID int64, reference string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2 AND payment_reference = $3 AND payment_status <> $1`,
		models.PaymentStatusPaid, orderID, reference)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkOrderPaymentFailed records a failed charge. Paid stays terminal:
// the guard never moves a paid order back.
func (s *Store) MarkOrderPaymentFailed(ctx context.Context, orderID int64, reference string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2 AND payment_reference = $3
		  AND payment_status NOT IN ($1, $4)`,
		models.PaymentStatusFailed, orderID, reference, models.PaymentStatusPaid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateOrderFulfillment updates fulfillment-side fields only. Payment
// fields are never touched here.
func (s *Store) UpdateOrderFulfillment(ctx context.Context, orderID int64, status, shippingAddress, notes string) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	if status != "" {
		args = append(args, status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if shippingAddress != "" {
		args = append(args, shippingAddress)
		sets = append(sets, fmt.Sprintf("shipping_address = $%d", len(args)))
	}
	if notes != "" {
		args = append(args, notes)
		sets = append(sets, fmt.Sprintf("notes = $%d", len(args)))
	}

	args = append(args, orderID)
	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
