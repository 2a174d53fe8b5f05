package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCartItemsByIDs retrieves the requested cart lines that are owned by
// the given customer. Lines owned by someone else, or that no longer
// exist, are simply absent from the result.
func (s *Store) GetCartItemsByIDs(ctx context.Context, customerID string, ids []int64) ([]models.CartItem, error) {
	if len(ids) == 0 {
		return []models.CartItem{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM cart_items WHERE customer_id = ? AND id IN (?) ORDER BY id", customerID, ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.CartItem
	err = s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

// DeleteCartItems deletes the given cart lines, scoped to the customer,
// and returns how many rows were removed
func (s *Store) DeleteCartItems(ctx context.Context, customerID string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"DELETE FROM cart_items WHERE customer_id = ? AND id IN (?)", customerID, ids)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CurrentShippingCost returns the most recently configured flat shipping
// cost, or 0 when none has been configured yet
func (s *Store) CurrentShippingCost(ctx context.Context) (int64, error) {
	var cost int64
	err := s.db.GetContext(ctx, &cost,
		"SELECT cost FROM shipping_rates ORDER BY created_at DESC, id DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cost, nil
}

// CreateShippingRate stores a new flat shipping cost
func (s *Store) CreateShippingRate(ctx context.Context, rate *models.ShippingRate) error {
	query := `
		INSERT INTO shipping_rates (name, cost)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, rate, query, rate.Name, rate.Cost)
}

// InsertAuditLog appends an audit record. Replays of the same event are
// dropped on the event_id primary key.
func (s *Store) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (event_id, event_type, order_id, user_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		entry.EventID, entry.EventType, entry.OrderID, entry.UserID, entry.Detail)
	return err
}
