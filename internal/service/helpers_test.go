package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dataservices/internal/cache"
	"dataservices/internal/model"
	"dataservices/internal/tenant"
)

func inTenant(t *testing.T, id string) context.Context {
	t.Helper()
	ctx, release := tenant.Enter(context.Background(), id)
	t.Cleanup(release)
	return ctx
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []model.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ChangeEvent(nil), p.events...)
}

// spyCache records every key written and deleted on top of a Memory cache.
type spyCache struct {
	*cache.Memory
	mu      sync.Mutex
	set     []string
	deleted []string
}

func newSpyCache() *spyCache {
	return &spyCache{Memory: cache.NewMemory(100)}
}

func (c *spyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.set = append(c.set, key)
	c.mu.Unlock()
	return c.Memory.Set(ctx, key, value, ttl)
}

func (c *spyCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	c.deleted = append(c.deleted, keys...)
	c.mu.Unlock()
	return c.Memory.Delete(ctx, keys...)
}

func (c *spyCache) SetKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.set...)
}

func (c *spyCache) DeletedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

var errDatastoreDown = errors.New("datastore down")
