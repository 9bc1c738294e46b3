package storage

import "errors"

// ErrNotFound is returned when no record matches both the tenant and the id.
// A record owned by another tenant is reported the same way.
var ErrNotFound = errors.New("storage: record not found")
