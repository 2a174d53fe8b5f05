package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/apperr"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

const shippingCostCacheTTL = 5 * time.Minute

// ShippingService supplies the current flat shipping cost, used both by
// the pre-checkout estimate path and by order materialization
type ShippingService struct {
	rates  ShippingStore
	cart   CartStore
	cache  SnapshotCache
	logger *zap.Logger
}

// NewShippingService creates a new shipping service. cache may be nil.
func NewShippingService(rates ShippingStore, cart CartStore, cache SnapshotCache) *ShippingService {
	return &ShippingService{
		rates:  rates,
		cart:   cart,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// CurrentCost returns the most recently configured flat shipping cost,
// or 0 when none has been configured
func (ss *ShippingService) CurrentCost(ctx context.Context) (int64, error) {
	if ss.cache != nil {
		if cost, ok, err := ss.cache.GetCachedShippingCost(ctx); err == nil && ok {
			return cost, nil
		}
	}

	cost, err := ss.rates.CurrentShippingCost(ctx)
	if err != nil {
		return 0, fmt.Errorf("load shipping cost: %w", err)
	}

	if ss.cache != nil {
		if err := ss.cache.CacheShippingCost(ctx, cost, shippingCostCacheTTL); err != nil {
			ss.logger.Warn("Failed to cache shipping cost", zap.Error(err))
		}
	}
	return cost, nil
}

// Estimate returns the shipping cost for a pre-checkout selection.
// An empty selection estimates to 0; the selected lines must belong to
// the requesting customer.
func (ss *ShippingService) Estimate(ctx context.Context, customerID string, cartItemIDs []int64) (int64, error) {
	ctx, span := util.StartSpan(ctx, "ShippingService.Estimate")
	defer span.End()

	if len(cartItemIDs) == 0 {
		return 0, nil
	}

	items, err := ss.cart.GetCartItemsByIDs(ctx, customerID, cartItemIDs)
	if err != nil {
		return 0, fmt.Errorf("load cart items: %w", err)
	}
	if len(items) == 0 {
		return 0, apperr.NotFound("no cart items found")
	}

	return ss.CurrentCost(ctx)
}

// SetRate stores a new flat shipping cost and drops the cached value
func (ss *ShippingService) SetRate(ctx context.Context, name string, cost int64) (*models.ShippingRate, error) {
	if cost <= 0 {
		return nil, apperr.Validation("shipping cost must be greater than zero")
	}

	rate := &models.ShippingRate{Name: name, Cost: cost}
	if err := ss.rates.CreateShippingRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("save shipping rate: %w", err)
	}

	if ss.cache != nil {
		if err := ss.cache.InvalidateShippingCost(ctx); err != nil {
			ss.logger.Warn("Failed to invalidate shipping cost cache", zap.Error(err))
		}
	}
	return rate, nil
}
