// internal/model/event.go
package model

import "time"

const (
	EntityProduct = "product"
	EntityUser    = "user"

	OpUpserted = "upserted"
	OpDeleted  = "deleted"
)

// ChangeEvent announces a committed write to one tenant's record.
type ChangeEvent struct {
	Entity     string    `json:"entity"`
	Op         string    `json:"op"`
	TenantID   string    `json:"tenantId"`
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RoutingKey is the topic the event is published under: "{entity}.{op}".
func (e ChangeEvent) RoutingKey() string {
	return e.Entity + "." + e.Op
}
