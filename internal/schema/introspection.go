package schema

import "strings"

// IsIntrospectionType reports whether name belongs to the reserved
// introspection namespace (__Schema, __Type, ...).
func IsIntrospectionType(name string) bool {
	return strings.HasPrefix(name, "__")
}
