package cache

import (
	"context"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Memory is an in-process Cache bounded by entry count.
type Memory struct {
	items *lru[string, memoryItem]
	now   func() time.Time
}

// NewMemory creates an in-process cache holding at most size entries.
func NewMemory(size int) *Memory {
	return &Memory{
		items: newLRU[string, memoryItem](size),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	item, ok := m.items.get(key)
	if !ok {
		return nil, ErrMiss
	}
	now := m.now()
	if item.expired(now) {
		// a Set may have replaced the entry since it was read
		m.items.removeIf(key, func(cur memoryItem) bool { return cur.expired(now) })
		return nil, ErrMiss
	}
	return item.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.items.put(key, item)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.items.remove(key)
	}
	return nil
}

// Len reports the number of cached entries, expired ones included.
func (m *Memory) Len() int {
	return m.items.len()
}
