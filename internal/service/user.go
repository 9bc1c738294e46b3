package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"dataservices/internal/cache"
	"dataservices/internal/model"
	"dataservices/internal/storage"
	"dataservices/internal/tenant"
)

// UserRepository is a tenant-scoped user store.
type UserRepository interface {
	FindByTenant(ctx context.Context, tenantID string) ([]model.User, error)
	FindByTenantAndID(ctx context.Context, tenantID string, id int64) (*model.User, error)
	Save(ctx context.Context, u *model.User) (*model.User, error)
	DeleteByTenantAndID(ctx context.Context, tenantID string, id int64) (bool, error)
}

type UserService struct {
	repo  UserRepository
	cache *cache.ReadThrough
	hooks writeHooks
}

func NewUserService(repo UserRepository, rt *cache.ReadThrough, events Publisher, logger *zap.Logger) *UserService {
	if rt == nil {
		rt = cache.NewReadThrough("users", nil, 0, logger)
	}
	return &UserService{
		repo:  repo,
		cache: rt,
		hooks: newWriteHooks(rt, events, logger),
	}
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]model.User, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	users, _, err := cache.Fetch(ctx, s.cache, cache.ListKey(OpGetAllUsers, tenantID),
		func(ctx context.Context) ([]model.User, bool, error) {
			users, err := s.repo.FindByTenant(ctx, tenantID)
			if err != nil {
				return nil, false, err
			}
			return users, true, nil
		})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*model.User, bool, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return nil, false, err
	}

	key := cache.EntityKey(model.EntityUser, tenantID, strconv.FormatInt(id, 10))
	u, found, err := cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (model.User, bool, error) {
		u, err := s.repo.FindByTenantAndID(ctx, tenantID, id)
		if errors.Is(err, storage.ErrNotFound) {
			return model.User{}, false, nil
		}
		if err != nil {
			return model.User{}, false, err
		}
		return *u, true, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get user %d: %w", id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &u, true, nil
}

func (s *UserService) UpsertUser(ctx context.Context, id int64, details model.User) (*model.User, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, &model.User{
		ID:       id,
		TenantID: tenantID,
		Name:     details.Name,
		Email:    details.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", id, err)
	}

	s.hooks.committed(ctx, model.EntityUser, model.OpUpserted, tenantID, strconv.FormatInt(id, 10), UserKeys(tenantID, id))
	return saved, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) (bool, error) {
	tenantID, err := tenant.IDFromContext(ctx)
	if err != nil {
		return false, err
	}

	deleted, err := s.repo.DeleteByTenantAndID(ctx, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}
	if deleted {
		s.hooks.committed(ctx, model.EntityUser, model.OpDeleted, tenantID, strconv.FormatInt(id, 10), UserKeys(tenantID, id))
	}
	return deleted, nil
}
