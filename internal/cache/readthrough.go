package cache

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"dataservices/internal/metrics"
)

// ReadThrough serves values from a Cache and falls back to a loader on miss.
// Concurrent misses for the same key share one load. Cache failures are
// logged and treated as misses so that the datastore remains the source of
// truth.
type ReadThrough struct {
	name        string
	cache       Cache
	ttl         time.Duration
	loadTimeout time.Duration
	logger      *zap.Logger
	group       singleflight.Group

	// generations are bumped by Invalidate. A load only stores its result
	// when the generation of its key did not move while it ran.
	generations [generationStripes]atomic.Uint64
}

const (
	generationStripes  = 256
	defaultLoadTimeout = 30 * time.Second
)

// NewReadThrough creates a read-through cache. name labels metrics and logs.
func NewReadThrough(name string, c Cache, ttl time.Duration, logger *zap.Logger) *ReadThrough {
	if c == nil {
		c = Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadThrough{name: name, cache: c, ttl: ttl, loadTimeout: defaultLoadTimeout, logger: logger}
}

// SetLoadTimeout bounds a shared load, which no longer follows the
// cancellation of the request that started it.
func (rt *ReadThrough) SetLoadTimeout(d time.Duration) {
	if d > 0 {
		rt.loadTimeout = d
	}
}

func (rt *ReadThrough) generation(key string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &rt.generations[h.Sum32()%generationStripes]
}

// Invalidate removes keys from the underlying cache. Loads already running
// for these keys neither store their result nor serve later callers.
func (rt *ReadThrough) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		rt.generation(key).Add(1)
		rt.group.Forget(key)
	}
	return rt.cache.Delete(ctx, keys...)
}

// Invalidators fans an invalidation out to several read-through caches.
type Invalidators []*ReadThrough

func (s Invalidators) Invalidate(ctx context.Context, keys ...string) error {
	var errs []error
	for _, rt := range s {
		if err := rt.Invalidate(ctx, keys...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type loadResult[T any] struct {
	value T
	found bool
}

// Fetch returns the cached value for key, or calls load and caches what it
// returns. Results with found == false are not cached. The load is shared by
// every caller of the same key and survives the cancellation of any one of
// them; each caller still returns as soon as its own ctx is done.
func Fetch[T any](ctx context.Context, rt *ReadThrough, key string, load func(context.Context) (T, bool, error)) (T, bool, error) {
	var zero T

	data, err := rt.cache.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		uerr := json.Unmarshal(data, &v)
		if uerr == nil {
			metrics.CacheRequests.WithLabelValues(rt.name, "hit").Inc()
			return v, true, nil
		}
		rt.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(uerr))
		_ = rt.cache.Delete(ctx, key)
		metrics.CacheRequests.WithLabelValues(rt.name, "error").Inc()
	case errors.Is(err, ErrMiss):
		metrics.CacheRequests.WithLabelValues(rt.name, "miss").Inc()
	default:
		rt.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		metrics.CacheRequests.WithLabelValues(rt.name, "error").Inc()
	}

	ch := rt.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.loadTimeout)
		defer cancel()

		gen := rt.generation(key)
		before := gen.Load()
		v, found, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if found && gen.Load() == before {
			rt.store(loadCtx, key, v)
			// an Invalidate that raced with the store must win
			if gen.Load() != before {
				_ = rt.cache.Delete(loadCtx, key)
			}
		}
		return loadResult[T]{value: v, found: found}, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		r := res.Val.(loadResult[T])
		return r.value, r.found, nil
	}
}

func (rt *ReadThrough) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		rt.logger.Warn("Cannot encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := rt.cache.Set(ctx, key, data, rt.ttl); err != nil {
		rt.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
