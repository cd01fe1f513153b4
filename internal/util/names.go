package util

import "strings"

// ShortTypeName extracts the short logical-type name from a namespaced type
// or returns the original name. Handler types may be registered under a
// namespace, e.g. "agents/investigate" or "entities/incident".
func ShortTypeName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		return name[idx+1:]
	}
	return name
}

// NormalizeTypeName lowercases and trims a logical-type name so lookups are
// insensitive to the casing and padding job files tend to carry.
func NormalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
