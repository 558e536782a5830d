package rbac

import (
	"context"
	"errors"
	"slices"
	"strings"
)

// Resolver turns request credentials into an Actor.
type Resolver struct {
	catalog  *Catalog
	verifier CredentialVerifier
}

// NewResolver constructs a Resolver.
func NewResolver(catalog *Catalog, verifier CredentialVerifier) *Resolver {
	return &Resolver{catalog: catalog, verifier: verifier}
}

// Resolve returns the actor for creds. Missing or invalid credentials yield
// (nil, nil); an error means verification or role resolution broke.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*Actor, error) {
	if r == nil || r.verifier == nil || r.catalog == nil {
		return nil, errors.New("rbac: resolver not configured")
	}
	if creds.Empty() {
		return nil, nil
	}
	identity, err := r.verifier.Verify(ctx, creds)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, nil
	}
	return NewActor(r.catalog, *identity)
}

// NewActor derives the effective permissions of identity and freezes the result.
func NewActor(catalog *Catalog, identity Identity) (*Actor, error) {
	perms, err := EffectivePermissions(catalog, identity.PrimaryRole, identity.AdditionalRoles...)
	if err != nil {
		return nil, err
	}
	additional := make([]string, 0, len(identity.AdditionalRoles))
	for _, role := range identity.AdditionalRoles {
		role = strings.TrimSpace(role)
		if role == "" || slices.Contains(additional, role) {
			continue
		}
		additional = append(additional, role)
	}
	return &Actor{
		id:              identity.ID,
		name:            identity.Name,
		primaryRole:     identity.PrimaryRole,
		additionalRoles: additional,
		permissions:     perms,
	}, nil
}

// EffectivePermissions is the union of the permissions of primary and every
// additional role. Any unknown role fails the whole derivation.
func EffectivePermissions(catalog *Catalog, primary string, additional ...string) (PermissionSet, error) {
	perms, err := catalog.PermissionsOf(primary)
	if err != nil {
		return PermissionSet{}, err
	}
	for _, role := range additional {
		if strings.TrimSpace(role) == "" {
			continue
		}
		extra, err := catalog.PermissionsOf(role)
		if err != nil {
			return PermissionSet{}, err
		}
		perms = perms.Union(extra)
	}
	return perms, nil
}
