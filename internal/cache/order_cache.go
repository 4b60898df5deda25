package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrderCache keeps fetched orders. Prices and quantities never change once placed, so
// entries only expire; product names, descriptions and categories on a cached order
// may lag the catalog by up to the TTL.
type OrderCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.OrderResult, bool)
	Set(ctx context.Context, order *domain.OrderResult)
}

type redisOrderCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewOrderCache returns a Redis backed cache. A nil client yields a cache that never hits.
func NewOrderCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) OrderCache {
	if client == nil {
		return noopOrderCache{}
	}
	return &redisOrderCache{client: client, ttl: ttl, logger: logger}
}

func orderKey(id uuid.UUID) string {
	return fmt.Sprintf("order:%s", id)
}

func (c *redisOrderCache) Get(ctx context.Context, id uuid.UUID) (*domain.OrderResult, bool) {
	data, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read order from cache", zap.Error(err), zap.String("order_id", id.String()))
		}
		return nil, false
	}

	var order domain.OrderResult
	if err := json.Unmarshal(data, &order); err != nil {
		c.logger.Warn("Discarding malformed cached order", zap.Error(err), zap.String("order_id", id.String()))
		return nil, false
	}
	return &order, true
}

func (c *redisOrderCache) Set(ctx context.Context, order *domain.OrderResult) {
	data, err := json.Marshal(order)
	if err != nil {
		c.logger.Warn("Failed to encode order for cache", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, orderKey(order.Order.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write order to cache", zap.Error(err), zap.String("order_id", order.Order.ID.String()))
	}
}

type noopOrderCache struct{}

func (noopOrderCache) Get(context.Context, uuid.UUID) (*domain.OrderResult, bool) { return nil, false }
func (noopOrderCache) Set(context.Context, *domain.OrderResult)                   {}
