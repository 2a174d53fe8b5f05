package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireLock acquires a short-lived advisory lock. Used as the
// per-customer claim step so two concurrent checkouts cannot
// materialize the same cart lines twice.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases an advisory lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// GetCachedProduct returns a cached product snapshot, or (nil, nil) on a miss
func (c *Client) GetCachedProduct(ctx context.Context, productID int64) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, productKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, nil
	}
	return &product, nil
}

// CacheProduct stores a product snapshot with a short TTL
func (c *Client) CacheProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(product.ID), data, ttl).Err()
}

// GetCachedShippingCost returns the cached flat shipping cost.
// The bool reports whether the cache held a value.
func (c *Client) GetCachedShippingCost(ctx context.Context) (int64, bool, error) {
	cost, err := c.rdb.Get(ctx, "shipping:current_cost").Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cost, true, nil
}

// CacheShippingCost stores the current flat shipping cost
func (c *Client) CacheShippingCost(ctx context.Context, cost int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, "shipping:current_cost", cost, ttl).Err()
}

// InvalidateShippingCost drops the cached shipping cost after a rate change
func (c *Client) InvalidateShippingCost(ctx context.Context) error {
	return c.rdb.Del(ctx, "shipping:current_cost").Err()
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}
