// internal/model/user.go
package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// User is stored in the relational store, one row per (tenant, id).
type User struct {
	ID       int64  `json:"id" db:"id"`
	TenantID string `json:"tenantId" db:"tenant_id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
}

// Validate checks the caller-controlled fields of a user payload.
func (u *User) Validate() error {
	var errs FieldErrors
	if strings.TrimSpace(u.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "must not be blank"})
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid address"})
	}
	return errs.OrNil()
}

func (u *User) String() string {
	return fmt.Sprintf("user %s/%d", u.TenantID, u.ID)
}
