// Package service holds the tenant-scoped business operations. The tenant
// is always taken from the request context, never from a caller argument.
package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"dataservices/internal/cache"
	"dataservices/internal/model"
)

// Cache operation names used in list keys.
const (
	OpGetAllProducts = "getAllProducts"
	OpGetAllUsers    = "getAllUsers"
)

// Publisher announces committed writes to other instances.
type Publisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.ChangeEvent) error { return nil }

// ProductKeys returns every cache key a write to the tenant's product id
// makes stale: the entity entry and the tenant's list entry.
func ProductKeys(tenantID, id string) []string {
	return []string{
		cache.EntityKey(model.EntityProduct, tenantID, id),
		cache.ListKey(OpGetAllProducts, tenantID),
	}
}

// UserKeys is the user counterpart of ProductKeys.
func UserKeys(tenantID string, id int64) []string {
	return []string{
		cache.EntityKey(model.EntityUser, tenantID, strconv.FormatInt(id, 10)),
		cache.ListKey(OpGetAllUsers, tenantID),
	}
}

// InvalidationKeys maps a change event to the cache keys it makes stale.
// Unknown entities map to nothing.
func InvalidationKeys(ev model.ChangeEvent) []string {
	switch ev.Entity {
	case model.EntityProduct:
		return ProductKeys(ev.TenantID, ev.ID)
	case model.EntityUser:
		id, err := strconv.ParseInt(ev.ID, 10, 64)
		if err != nil {
			return nil
		}
		return UserKeys(ev.TenantID, id)
	}
	return nil
}

// writeHooks runs after a write has been committed: it drops the stale
// cache entries and publishes the change.
type writeHooks struct {
	cache  *cache.ReadThrough
	events Publisher
	logger *zap.Logger
	now    func() time.Time
}

func newWriteHooks(rt *cache.ReadThrough, events Publisher, logger *zap.Logger) writeHooks {
	if events == nil {
		events = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return writeHooks{cache: rt, events: events, logger: logger, now: time.Now}
}

func (h writeHooks) committed(ctx context.Context, entity, op, tenantID, id string, keys []string) {
	// the write is durable; finish even if the caller went away
	ctx = context.WithoutCancel(ctx)

	if err := h.cache.Invalidate(ctx, keys...); err != nil {
		h.logger.Error("Failed to invalidate cache entries",
			zap.String("tenant_id", tenantID),
			zap.Strings("keys", keys),
			zap.Error(err))
	}

	ev := model.ChangeEvent{
		Entity:     entity,
		Op:         op,
		TenantID:   tenantID,
		ID:         id,
		OccurredAt: h.now().UTC(),
	}
	if err := h.events.Publish(ctx, ev); err != nil {
		h.logger.Warn("Failed to publish change event",
			zap.String("routing_key", ev.RoutingKey()),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}
