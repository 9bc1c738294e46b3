package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"dataservices/internal/model"
)

type recordKey[ID comparable] struct {
	tenantID string
	id       ID
}

// memoryTable is a tenant-scoped in-memory table used when no datastore is
// configured. It follows the same (tenant, id) addressing as the real stores.
type memoryTable[ID cmp.Ordered, T any] struct {
	mu   sync.RWMutex
	rows map[recordKey[ID]]T
	id   func(T) ID
}

func newMemoryTable[ID cmp.Ordered, T any](id func(T) ID) *memoryTable[ID, T] {
	return &memoryTable[ID, T]{rows: make(map[recordKey[ID]]T), id: id}
}

func (t *memoryTable[ID, T]) list(tenantID string) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := []T{}
	for k, v := range t.rows {
		if k.tenantID == tenantID {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(t.id(a), t.id(b)) })
	return out
}

func (t *memoryTable[ID, T]) get(tenantID string, id ID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[recordKey[ID]{tenantID, id}]
	return v, ok
}

func (t *memoryTable[ID, T]) put(tenantID string, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[recordKey[ID]{tenantID, t.id(v)}] = v
}

func (t *memoryTable[ID, T]) remove(tenantID string, id ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := recordKey[ID]{tenantID, id}
	if _, ok := t.rows[k]; !ok {
		return false
	}
	delete(t.rows, k)
	return true
}

// MemoryProductStore is an in-process product store.
type MemoryProductStore struct {
	table *memoryTable[string, model.Product]
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{table: newMemoryTable(func(p model.Product) string { return p.ID })}
}

func (s *MemoryProductStore) FindByTenant(ctx context.Context, tenantID string) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.table.list(tenantID), nil
}

func (s *MemoryProductStore) FindByTenantAndID(ctx context.Context, tenantID, id string) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.table.get(tenantID, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryProductStore) Save(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	saved := *p
	s.table.put(p.TenantID, saved)
	return &saved, nil
}

func (s *MemoryProductStore) DeleteByTenantAndID(ctx context.Context, tenantID, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.table.remove(tenantID, id), nil
}

// MemoryUserStore is an in-process user store.
type MemoryUserStore struct {
	table *memoryTable[int64, model.User]
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{table: newMemoryTable(func(u model.User) int64 { return u.ID })}
}

func (s *MemoryUserStore) FindByTenant(ctx context.Context, tenantID string) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.table.list(tenantID), nil
}

func (s *MemoryUserStore) FindByTenantAndID(ctx context.Context, tenantID string, id int64) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, ok := s.table.get(tenantID, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) Save(ctx context.Context, u *model.User) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	saved := *u
	s.table.put(u.TenantID, saved)
	return &saved, nil
}

func (s *MemoryUserStore) DeleteByTenantAndID(ctx context.Context, tenantID string, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.table.remove(tenantID, id), nil
}
