// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"dataservices/internal/model"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	tenant_id TEXT   NOT NULL,
	id        BIGINT NOT NULL,
	name      TEXT   NOT NULL,
	email     TEXT   NOT NULL,
	PRIMARY KEY (tenant_id, id)
)`

// UserStore keeps users in PostgreSQL. Every query is scoped by tenant_id;
// the table key is (tenant_id, id) so one tenant can never overwrite
// another tenant's row.
type UserStore struct {
	DB *sql.DB
}

func NewUserStore(dsn string) (*UserStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &UserStore{DB: db}, nil
}

// Migrate creates the users table if it does not exist yet.
func (s *UserStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, usersSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// FindByTenant lists the tenant's users ordered by id.
func (s *UserStore) FindByTenant(ctx context.Context, tenantID string) ([]model.User, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, tenant_id, name, email
		FROM users
		WHERE tenant_id = $1
		ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStore) FindByTenantAndID(ctx context.Context, tenantID string, id int64) (*model.User, error) {
	var u model.User
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, email
		FROM users
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&u.ID, &u.TenantID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return &u, nil
}

// Save inserts the user or replaces the tenant's row with the same id.
func (s *UserStore) Save(ctx context.Context, u *model.User) (*model.User, error) {
	var saved model.User
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (tenant_id, id, name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, id)
		DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
		RETURNING id, tenant_id, name, email
	`, u.TenantID, u.ID, u.Name, u.Email).Scan(&saved.ID, &saved.TenantID, &saved.Name, &saved.Email)
	if err != nil {
		return nil, fmt.Errorf("save user %d: %w", u.ID, err)
	}
	return &saved, nil
}

// DeleteByTenantAndID reports whether a row owned by the tenant was removed.
func (s *UserStore) DeleteByTenantAndID(ctx context.Context, tenantID string, id int64) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *UserStore) Close() error {
	return s.DB.Close()
}
