package cache

import "strings"

// Segments are escaped so that a tenant or id containing the separator can
// never produce another tenant's key. Plain identifiers are left unchanged.
var segment = strings.NewReplacer("%", "%25", ":", "%3A")

// ListKey is the key of a tenant's list result: "{operation}:{tenant}".
func ListKey(operation, tenantID string) string {
	return operation + ":" + segment.Replace(tenantID)
}

// EntityKey is the key of a single entity: "{entity}:{tenant}:{id}".
func EntityKey(entity, tenantID, id string) string {
	return entity + ":" + segment.Replace(tenantID) + ":" + segment.Replace(id)
}
