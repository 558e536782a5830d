package users

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

var _ rbac.CredentialVerifier = (*Verifier)(nil)

// Verifier resolves session subjects to identities. Unknown and inactive users
// are reported as unauthenticated.
type Verifier struct {
	directory *Directory
}

// NewVerifier constructs a Verifier.
func NewVerifier(directory *Directory) *Verifier {
	return &Verifier{directory: directory}
}

// Verify implements rbac.CredentialVerifier.
func (v *Verifier) Verify(ctx context.Context, creds rbac.Credentials) (*rbac.Identity, error) {
	u, err := v.directory.FindByID(ctx, creds.Subject)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}
	return &rbac.Identity{
		ID:              u.ID,
		Name:            u.Name,
		PrimaryRole:     u.PrimaryRole,
		AdditionalRoles: u.AdditionalRoles,
	}, nil
}
