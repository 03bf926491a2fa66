package model

import (
	"fmt"

	"gorm.io/datatypes"
)

type Permission string

const (
	PermView   Permission = "view"
	PermCreate Permission = "create"
	PermAdmin  Permission = "admin"
)

// permissionOrder lists levels from weakest to strongest. Holding a level
// implies every level before it.
var permissionOrder = []Permission{PermView, PermCreate, PermAdmin}

// NormalizePermissions validates a requested flag set and closes it
// downwards: admin grants create, create grants view.
func NormalizePermissions(requested map[string]bool) (datatypes.JSONMap, error) {
	highest := -1
	for key, on := range requested {
		idx := permissionIndex(Permission(key))
		if idx < 0 {
			return nil, fmt.Errorf("unknown permission %q", key)
		}
		if on && idx > highest {
			highest = idx
		}
	}

	out := datatypes.JSONMap{}
	for i, p := range permissionOrder {
		out[string(p)] = i <= highest
	}
	return out, nil
}

// DefaultStaffPermissions is the flag set given to newly created staff.
func DefaultStaffPermissions() datatypes.JSONMap {
	perms, _ := NormalizePermissions(map[string]bool{string(PermView): true})
	return perms
}

// FullPermissions is the flag set held by tenant administrators.
func FullPermissions() datatypes.JSONMap {
	perms, _ := NormalizePermissions(map[string]bool{string(PermAdmin): true})
	return perms
}

// PermissionFlags converts a stored JSON map to plain flags, ignoring
// anything that is not a boolean.
func PermissionFlags(m datatypes.JSONMap) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if b, ok := v.(bool); ok {
			out[k] = b
		}
	}
	return out
}

func permissionIndex(p Permission) int {
	for i, q := range permissionOrder {
		if q == p {
			return i
		}
	}
	return -1
}
