package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"dataservices/internal/cache"
	"dataservices/internal/model"
	"dataservices/internal/service"
	"dataservices/internal/worker"
)

const invalidateTimeout = 5 * time.Second

// Invalidator drops cache entries. cache.ReadThrough implements it and also
// discards loads that were running when the entries were dropped.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

var _ Invalidator = cache.Invalidators{}

// InvalidationHandler drops the cache entries made stale by a change event
// published by any instance of the service.
func InvalidationHandler(inv Invalidator, logger *zap.Logger) worker.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(msg amqp.Delivery) error {
		var ev model.ChangeEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("decode change event: %w", err)
		}

		keys := service.InvalidationKeys(ev)
		if len(keys) == 0 {
			logger.Debug("Ignoring change event", zap.String("routing_key", msg.RoutingKey))
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()
		if err := inv.Invalidate(ctx, keys...); err != nil {
			return fmt.Errorf("invalidate %v: %w", keys, err)
		}

		logger.Debug("Invalidated cache entries",
			zap.String("tenant_id", ev.TenantID),
			zap.Strings("keys", keys))
		return nil
	}
}
