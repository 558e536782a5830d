package rbac

import (
	"context"
	"slices"
	"sort"
)

// RoleTable maps a role name to the permission keys it grants.
type RoleTable map[string][]string

// PermissionSet is an immutable set of permission keys.
type PermissionSet struct {
	keys map[string]struct{}
}

// NewPermissionSet builds a set from keys, collapsing duplicates.
func NewPermissionSet(keys ...string) PermissionSet {
	set := PermissionSet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		set.keys[k] = struct{}{}
	}
	return set
}

// Has reports whether key is in the set.
func (s PermissionSet) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// HasAny reports whether the set intersects required.
func (s PermissionSet) HasAny(required ...string) bool {
	for _, r := range required {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Union returns a new set holding the keys of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := PermissionSet{keys: make(map[string]struct{}, len(s.keys)+len(other.keys))}
	for k := range s.keys {
		out.keys[k] = struct{}{}
	}
	for k := range other.keys {
		out.keys[k] = struct{}{}
	}
	return out
}

// Len returns the number of keys.
func (s PermissionSet) Len() int {
	return len(s.keys)
}

// Slice returns the keys sorted.
func (s PermissionSet) Slice() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same keys.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s.keys) != len(other.keys) {
		return false
	}
	for k := range s.keys {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Credentials are the opaque inbound credentials of a request. Subject is the
// authenticated user id as asserted by the session layer.
type Credentials struct {
	Subject string
}

// Empty reports whether no credentials were presented.
func (c Credentials) Empty() bool {
	return c.Subject == ""
}

// Identity is what credential verification yields for a known user.
type Identity struct {
	ID              string
	Name            string
	PrimaryRole     string
	AdditionalRoles []string
}

// CredentialVerifier turns credentials into an identity. A nil identity with a
// nil error means the credentials do not belong to an active user.
type CredentialVerifier interface {
	Verify(ctx context.Context, creds Credentials) (*Identity, error)
}

// VerifierFunc adapts a function to CredentialVerifier.
type VerifierFunc func(ctx context.Context, creds Credentials) (*Identity, error)

// Verify implements CredentialVerifier.
func (f VerifierFunc) Verify(ctx context.Context, creds Credentials) (*Identity, error) {
	return f(ctx, creds)
}

// Actor is the resolved identity of the user performing a request. It is built
// once per request and never mutated.
type Actor struct {
	id              string
	name            string
	primaryRole     string
	additionalRoles []string
	permissions     PermissionSet
}

// ID returns the actor's user id.
func (a *Actor) ID() string { return a.id }

// Name returns the display name.
func (a *Actor) Name() string { return a.name }

// PrimaryRole returns the primary role name.
func (a *Actor) PrimaryRole() string { return a.primaryRole }

// AdditionalRoles returns a copy of the additional role names.
func (a *Actor) AdditionalRoles() []string { return slices.Clone(a.additionalRoles) }

// Permissions returns the effective permission set.
func (a *Actor) Permissions() PermissionSet { return a.permissions }

// Can reports whether the actor holds at least one of perms.
func (a *Actor) Can(perms ...string) bool {
	if a == nil {
		return false
	}
	return a.permissions.HasAny(perms...)
}
