package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataservices/internal/cache"
	"dataservices/internal/model"
	"dataservices/internal/service"
	"dataservices/internal/storage"
	"dataservices/internal/tenant"
)

func newProductService(t *testing.T) (*service.ProductService, *storage.MemoryProductStore, *spyCache, *recordingPublisher) {
	t.Helper()
	store := storage.NewMemoryProductStore()
	c := newSpyCache()
	pub := &recordingPublisher{}
	svc := service.NewProductService(store, cache.NewReadThrough("products", c, time.Minute, nil), pub, nil)
	return svc, store, c, pub
}

func widget() model.Product {
	return model.Product{Name: "Widget", Price: decimal.RequireFromString("9.99")}
}

func TestProductServiceRequiresTenant(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newProductService(t)
	ctx := context.Background()

	_, err := svc.GetAllProducts(ctx)
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
	_, _, err = svc.GetProductByID(ctx, "42")
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
	_, err = svc.UpsertProduct(ctx, "42", widget())
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
	_, err = svc.DeleteProduct(ctx, "42")
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestProductServiceUpsertUsesAmbientTenant(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newProductService(t)
	acme := inTenant(t, "acme")

	details := widget()
	details.ID = "ignored"
	details.TenantID = "other"

	saved, err := svc.UpsertProduct(acme, "42", details)
	require.NoError(t, err)
	assert.Equal(t, "42", saved.ID)
	assert.Equal(t, "acme", saved.TenantID)

	stored, err := store.FindByTenantAndID(context.Background(), "acme", "42")
	require.NoError(t, err)
	assert.Equal(t, "Widget", stored.Name)

	_, err = store.FindByTenantAndID(context.Background(), "other", "42")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProductServiceTenantIsolation(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newProductService(t)
	acme := inTenant(t, "acme")
	other := inTenant(t, "other")

	_, err := svc.UpsertProduct(acme, "42", widget())
	require.NoError(t, err)

	p, found, err := svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Widget", p.Name)

	p, found, err = svc.GetProductByID(other, "42")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, p)

	list, err := svc.GetAllProducts(other)
	require.NoError(t, err)
	assert.Empty(t, list)

	deleted, err := svc.DeleteProduct(other, "42")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, found, err = svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	assert.True(t, found, "a cross-tenant delete must not remove the record")
}

func TestProductServiceCacheKeysAreTenantScoped(t *testing.T) {
	t.Parallel()

	svc, _, c, _ := newProductService(t)

	_, err := svc.GetAllProducts(inTenant(t, "acme"))
	require.NoError(t, err)
	_, err = svc.GetAllProducts(inTenant(t, "beta"))
	require.NoError(t, err)

	assert.Equal(t, []string{"getAllProducts:acme", "getAllProducts:beta"}, c.SetKeys())
}

func TestProductServiceServesFromCache(t *testing.T) {
	t.Parallel()

	svc, store, _, _ := newProductService(t)
	acme := inTenant(t, "acme")

	_, err := svc.UpsertProduct(acme, "42", widget())
	require.NoError(t, err)
	_, found, err := svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	require.True(t, found)

	// a write that bypasses the service is not seen until the entry is dropped
	changed := widget()
	changed.ID, changed.TenantID, changed.Name = "42", "acme", "Changed"
	_, err = store.Save(context.Background(), &changed)
	require.NoError(t, err)

	p, _, err := svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
}

func TestProductServiceWritesInvalidateCache(t *testing.T) {
	t.Parallel()

	svc, _, c, _ := newProductService(t)
	acme := inTenant(t, "acme")

	_, err := svc.UpsertProduct(acme, "42", widget())
	require.NoError(t, err)

	list, err := svc.GetAllProducts(acme)
	require.NoError(t, err)
	require.Len(t, list, 1)
	p, _, err := svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	require.Equal(t, "Widget", p.Name)

	renamed := widget()
	renamed.Name = "Gadget"
	_, err = svc.UpsertProduct(acme, "42", renamed)
	require.NoError(t, err)

	p, _, err = svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	assert.Equal(t, "Gadget", p.Name)
	list, err = svc.GetAllProducts(acme)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Gadget", list[0].Name)

	deleted, err := svc.DeleteProduct(acme, "42")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, found, err := svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	assert.False(t, found)
	list, err = svc.GetAllProducts(acme)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Contains(t, c.DeletedKeys(), "product:acme:42")
	assert.Contains(t, c.DeletedKeys(), "getAllProducts:acme")
}

func TestProductServicePublishesChanges(t *testing.T) {
	t.Parallel()

	svc, _, _, pub := newProductService(t)
	acme := inTenant(t, "acme")

	_, err := svc.UpsertProduct(acme, "42", widget())
	require.NoError(t, err)
	_, err = svc.DeleteProduct(acme, "42")
	require.NoError(t, err)
	_, err = svc.DeleteProduct(acme, "42")
	require.NoError(t, err)

	events := pub.Events()
	require.Len(t, events, 2, "a delete that removed nothing publishes nothing")
	assert.Equal(t, "product.upserted", events[0].RoutingKey())
	assert.Equal(t, "product.deleted", events[1].RoutingKey())
	assert.Equal(t, "acme", events[1].TenantID)
	assert.Equal(t, "42", events[1].ID)
}

func TestProductServicePublishFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()

	svc, _, _, pub := newProductService(t)
	pub.err = errors.New("broker unavailable")

	saved, err := svc.UpsertProduct(inTenant(t, "acme"), "42", widget())
	require.NoError(t, err)
	assert.Equal(t, "42", saved.ID)
}

type brokenProductRepo struct{ service.ProductRepository }

func (brokenProductRepo) FindByTenant(context.Context, string) ([]model.Product, error) {
	return nil, errDatastoreDown
}

func (brokenProductRepo) FindByTenantAndID(context.Context, string, string) (*model.Product, error) {
	return nil, errDatastoreDown
}

func (brokenProductRepo) Save(context.Context, *model.Product) (*model.Product, error) {
	return nil, errDatastoreDown
}

func (brokenProductRepo) DeleteByTenantAndID(context.Context, string, string) (bool, error) {
	return false, errDatastoreDown
}

func TestProductServicePropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	svc := service.NewProductService(brokenProductRepo{}, nil, pub, nil)
	acme := inTenant(t, "acme")

	_, err := svc.GetAllProducts(acme)
	assert.ErrorIs(t, err, errDatastoreDown)
	_, _, err = svc.GetProductByID(acme, "42")
	assert.ErrorIs(t, err, errDatastoreDown)
	_, err = svc.UpsertProduct(acme, "42", widget())
	assert.ErrorIs(t, err, errDatastoreDown)
	_, err = svc.DeleteProduct(acme, "42")
	assert.ErrorIs(t, err, errDatastoreDown)
	assert.Empty(t, pub.Events())
}

func TestProductServiceLastWriteWins(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newProductService(t)
	acme := inTenant(t, "acme")

	first := widget()
	first.Name = "first"
	second := widget()
	second.Name = "second"

	_, err := svc.UpsertProduct(acme, "42", first)
	require.NoError(t, err)
	_, err = svc.UpsertProduct(acme, "42", second)
	require.NoError(t, err)

	p, _, err := svc.GetProductByID(acme, "42")
	require.NoError(t, err)
	assert.Equal(t, "second", p.Name)
}
