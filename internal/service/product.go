package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dataservices/internal/cache"
	"dataservices/internal/model"
	"dataservices/internal/storage"
	"dataservices/internal/tenant"
)

// ProductRepository is a tenant-scoped product store. It has
// no lookup by id alone.
type ProductRepository interface {
	FindByTenant(ctx context.Context, tenantID string) ([]model.Product, error)
	FindByTenantAndID(ctx context.Context, tenantID, id string) (*model.Product, error)
	Save(ctx context.Context, p *model.Product) (*model.Product, error)
	DeleteByTenantAndID(ctx context.Context, tenantID, id string) (bool, error)
}

type ProductService struct {
	repo  ProductRepository
	cache *cache.ReadThrough
	hooks writeHooks
}

func NewProductService(repo ProductRepository, rt *cache.ReadThrough, events Publisher, logger *zap.Logger) *ProductService {
	if rt == nil {
		rt = cache.NewReadThrough("products", nil, 0, logger)
	}
	return &ProductService{
		repo:  repo,
		cache: rt,
		hooks: newWriteHooks(rt, events, logger),
	}
}

// GetAllProducts lists the current tenant's products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	products, _, err := cache.Fetch(ctx, s.cache, cache.ListKey(OpGetAllProducts, tenantID),
		func(ctx context.Context) ([]model.Product, bool, error) {
			products, err := s.repo.FindByTenant(ctx, tenantID)
			if err != nil {
				return nil, false, err
			}
			return products, true, nil
		})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProductByID returns the product with id if the current tenant owns it.
// A product owned by another tenant is reported as not found.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*model.Product, bool, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return nil, false, err
	}

	p, found, err := cache.Fetch(ctx, s.cache, cache.EntityKey(model.EntityProduct, tenantID, id),
		func(ctx context.Context) (model.Product, bool, error) {
			p, err := s.repo.FindByTenantAndID(ctx, tenantID, id)
			if errors.Is(err, storage.ErrNotFound) {
				return model.Product{}, false, nil
			}
			if err != nil {
				return model.Product{}, false, err
			}
			return *p, true, nil
		})
	if err != nil {
		return nil, false, fmt.Errorf("get product %s: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &p, true, nil
}

// UpsertProduct stores details under id for the current tenant. Any tenant
// named in details is ignored.
func (s *ProductService) UpsertProduct(ctx context.Context, id string, details model.Product) (*model.Product, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, &model.Product{
		ID:          id,
		TenantID:    tenantID,
		Name:        details.Name,
		Description: details.Description,
		Price:       details.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert product %s: %w", id, err)
	}

	s.hooks.committed(ctx, model.EntityProduct, model.OpUpserted, tenantID, id, ProductKeys(tenantID, id))
	return saved, nil
}

// DeleteProduct removes the current tenant's product. It reports false when
// the tenant owns no product with id.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (bool, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return false, err
	}

	deleted, err := s.repo.DeleteByTenantAndID(ctx, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete product %s: %w", id, err)
	}
	if deleted {
		s.hooks.committed(ctx, model.EntityProduct, model.OpDeleted, tenantID, id, ProductKeys(tenantID, id))
	}
	return deleted, nil
}
