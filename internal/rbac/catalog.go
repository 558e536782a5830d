package rbac

import (
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

var (
	// ErrUnknownRole is returned for role names absent from the catalog.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownPermission is returned when a role table grants a key outside
	// the permission catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
)

// Catalog resolves role names to permission sets. The table is published as an
// immutable snapshot: readers never lock, and Replace swaps in a whole new
// table.
type Catalog struct {
	snapshot atomic.Pointer[catalogSnapshot]
}

type catalogSnapshot struct {
	roles map[string]PermissionSet
}

// NewCatalog validates table and returns a catalog serving it.
func NewCatalog(table RoleTable) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(table); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDefaultCatalog returns a catalog for the compiled-in role table.
//
// Panics if the built-in table grants an unknown permission (code bug).
func NewDefaultCatalog() *Catalog {
	c, err := NewCatalog(RoleTable(shared.DefaultRoleTable()))
	if err != nil {
		panic("invalid default role table: " + err.Error())
	}
	return c
}

// Replace validates table and publishes it. On validation failure the current
// snapshot stays in place.
func (c *Catalog) Replace(table RoleTable) error {
	snap, err := compileTable(table)
	if err != nil {
		return err
	}
	c.snapshot.Store(snap)
	return nil
}

// PermissionsOf returns the permissions granted by role.
func (c *Catalog) PermissionsOf(role string) (PermissionSet, error) {
	key := normalizeRole(role)
	snap := c.snapshot.Load()
	if snap != nil {
		if perms, ok := snap.roles[key]; ok {
			return perms, nil
		}
	}
	return PermissionSet{}, oops.In("rbac").
		Code("UNKNOWN_ROLE").
		With("role", role).
		Wrapf(ErrUnknownRole, "role %q", role)
}

// HasRole reports whether role is defined.
func (c *Catalog) HasRole(role string) bool {
	_, err := c.PermissionsOf(role)
	return err == nil
}

// Roles returns the defined role names sorted.
func (c *Catalog) Roles() []string {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil
	}
	names := make([]string, 0, len(snap.roles))
	for name := range snap.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns a copy of the current table with sorted permission lists.
func (c *Catalog) Table() RoleTable {
	snap := c.snapshot.Load()
	if snap == nil {
		return RoleTable{}
	}
	out := make(RoleTable, len(snap.roles))
	for name, perms := range snap.roles {
		out[name] = perms.Slice()
	}
	return out
}

func compileTable(table RoleTable) (*catalogSnapshot, error) {
	roles := make(map[string]PermissionSet, len(table))
	for role, perms := range table {
		name := normalizeRole(role)
		if name == "" {
			return nil, oops.In("rbac").Code("INVALID_ROLE").New("role name cannot be empty")
		}
		for _, p := range perms {
			if !shared.IsKnownScope(p) {
				return nil, oops.In("rbac").
					Code("UNKNOWN_PERMISSION").
					With("role", name).
					With("permission", p).
					Wrapf(ErrUnknownPermission, "role %q grants %q", name, p)
			}
		}
		roles[name] = NewPermissionSet(perms...)
	}
	return &catalogSnapshot{roles: roles}, nil
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
