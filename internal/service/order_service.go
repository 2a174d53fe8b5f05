package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/config"
	"checkout-service/internal/apperr"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	checkoutLockTTL  = 30 * time.Second
	productCacheTTL  = time.Minute
	defaultPageLimit = 50
)

// OrderService materializes cart lines into immutable orders and serves
// customer-scoped order queries
type OrderService struct {
	storage   Storage
	shipping  *ShippingService
	locker    Locker
	cache     SnapshotCache
	publisher Publisher
	cfg       config.OrderConfig
	logger    *zap.Logger
}

// NewOrderService creates a new order service. locker, cache and
// publisher may be nil, in which case the claim step, the snapshot
// cache and event publishing are skipped.
func NewOrderService(
	storage Storage,
	shipping *ShippingService,
	locker Locker,
	cache SnapshotCache,
	publisher Publisher,
	cfg config.OrderConfig,
) *OrderService {
	return &OrderService{
		storage:   storage,
		shipping:  shipping,
		locker:    locker,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to materialize cart lines
type CreateOrderRequest struct {
	CartItemIDs []int64 `json:"cart_item_ids" binding:"required,min=1"`
	Notes       string  `json:"notes,omitempty"`
	// ShippingCost is accepted for wire compatibility with older
	// clients but ignored: the cost is always derived server-side.
	ShippingCost int64 `json:"shipping_cost,omitempty"`
}

// CreateOrder converts the customer's selected cart lines into an
// immutable order. Line snapshots are frozen from the live catalog, the
// total is the exact sum of line totals plus the current shipping cost,
// and the consumed cart lines are deleted only after the order has been
// durably persisted.
func (s *OrderService) CreateOrder(ctx context.Context, customerID string, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.CartItemIDs) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart_selection").Inc()
		return nil, apperr.Validation("order requires at least one cart item")
	}

	if s.locker != nil {
		lockKey := fmt.Sprintf("checkout:%s", customerID)
		acquired, err := s.locker.AcquireLock(ctx, lockKey, checkoutLockTTL)
		if err != nil {
			s.logger.Warn("Checkout lock unavailable, proceeding without claim",
				zap.String("customer_id", customerID), zap.Error(err))
		} else if !acquired {
			util.OrdersFailedTotal.WithLabelValues("concurrent_checkout").Inc()
			return nil, apperr.Conflict("another checkout is already in progress")
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(context.Background(), lockKey); err != nil {
					s.logger.Warn("Failed to release checkout lock", zap.Error(err))
				}
			}()
		}
	}

	customer, err := s.storage.GetCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("customer not found")
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}

	cartItems, err := s.storage.GetCartItemsByIDs(ctx, customerID, req.CartItemIDs)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	if len(cartItems) == 0 {
		util.OrdersFailedTotal.WithLabelValues("no_cart_items").Inc()
		return nil, apperr.NotFound("no cart items found for this order")
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	convertedIDs := make([]int64, 0, len(cartItems))
	var itemsTotal int64

	for _, line := range cartItems {
		product, err := s.resolveProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("product %d not found", line.ProductID)
			}
			return nil, fmt.Errorf("resolve product %d: %w", line.ProductID, err)
		}

		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		itemsTotal += product.Price * int64(quantity)

		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
			ImageURL:  product.ImageURL,
			Category:  product.Category,
		})
		convertedIDs = append(convertedIDs, line.ID)
	}

	shippingCost, err := s.shipping.CurrentCost(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve shipping cost: %w", err)
	}

	order := &models.Order{
		OrderNumber:     s.newOrderNumber(),
		UserID:          customer.ID,
		Items:           items,
		TotalAmount:     itemsTotal + shippingCost,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		ShippingAddress: customer.Address,
		ContactEmail:    customer.Email,
		ContactName:     customer.Name,
		Notes:           req.Notes,
		PlacedAt:        time.Now(),
	}

	if err := s.storage.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrDuplicateOrderNumber) {
			util.OrderNumberConflictsTotal.Inc()
			return nil, apperr.Wrap(apperr.KindConflict, "order number collision", store.ErrDuplicateOrderNumber)
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("persist order: %w", err)
	}

	// The order is durable from here on. Cart cleanup failures are
	// logged, never surfaced as an order-creation failure.
	deleted, err := s.storage.DeleteCartItems(ctx, customerID, convertedIDs)
	if err != nil {
		s.logger.Error("Failed to delete converted cart items",
			zap.Int64("order_id", order.ID),
			zap.Int64s("cart_item_ids", convertedIDs),
			zap.Error(err))
	} else {
		util.CartLinesConvertedTotal.Add(float64(deleted))
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_amount", order.TotalAmount))

	s.publishOrderCreated(ctx, order)

	return order, nil
}

// resolveProduct reads a product snapshot through the short-TTL cache
func (s *OrderService) resolveProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCachedProduct(ctx, productID); err == nil && cached != nil {
			return cached, nil
		}
	}

	product, err := s.storage.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheProduct(ctx, product, productCacheTTL); err != nil {
			s.logger.Warn("Failed to cache product snapshot",
				zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	return product, nil
}

func (s *OrderService) newOrderNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return s.cfg.NumberPrefix + suffix
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}

	itemData := make([]models.OrderItemData, len(order.Items))
	for i, item := range order.Items {
		itemData[i] = models.OrderItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       itemData,
	}

	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

// GetOrder retrieves an order, enforcing ownership. The owner identity
// may arrive in different representations, so the comparison is
// normalized on both sides.
func (s *OrderService) GetOrder(ctx context.Context, customerID string, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.storage.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	if !sameOwner(order.UserID, customerID) {
		return nil, apperr.Forbidden("you are not authorized to access this order")
	}
	return order, nil
}

// OrderListResult is a page of a customer's orders
type OrderListResult struct {
	Orders     []models.Order `json:"orders"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

// ListOrders returns the customer's orders matching the filter
func (s *OrderService) ListOrders(ctx context.Context, customerID string, f store.OrderFilter) (*OrderListResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	if _, err := s.storage.GetCustomerByID(ctx, customerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("customer not found")
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = s.cfg.DefaultPageSize
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	orders, total, err := s.storage.ListOrders(ctx, customerID, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return &OrderListResult{
		Orders:     orders,
		TotalCount: total,
		Page:       f.Page,
		Limit:      f.Limit,
	}, nil
}

// UpdateFulfillmentRequest updates fulfillment-side fields of an order
type UpdateFulfillmentRequest struct {
	Status          string `json:"status,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// UpdateFulfillment mutates order status, shipping address or notes.
// Payment state is never touched here; fulfillment and payment advance
// independently.
func (s *OrderService) UpdateFulfillment(ctx context.Context, orderID int64, req *UpdateFulfillmentRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateFulfillment")
	defer span.End()

	if req.Status != "" && !models.ValidOrderStatus(req.Status) {
		return nil, apperr.Validation("unknown order status: %s", req.Status)
	}

	if err := s.storage.UpdateOrderFulfillment(ctx, orderID, req.Status, req.ShippingAddress, req.Notes); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	order, err := s.storage.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	if s.publisher != nil && req.Status != "" {
		event := &models.FulfillmentUpdatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeFulfillmentUpdated,
				Timestamp: time.Now(),
			},
			OrderID: orderID,
			Status:  req.Status,
		}
		if err := s.publisher.PublishFulfillmentUpdated(ctx, event); err != nil {
			s.logger.Error("Failed to publish FulfillmentUpdated event", zap.Error(err))
		}
	}

	return order, nil
}

func sameOwner(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
