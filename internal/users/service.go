package users

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Service handles user business logic.
type Service struct {
	db        store.Executor
	directory *Directory
	catalog   *rbac.Catalog
	validate  *validator.Validate
}

// NewService builds Service instance.
func NewService(db store.Executor, catalog *rbac.Catalog) *Service {
	return &Service{
		db:        db,
		directory: NewDirectory(db),
		catalog:   catalog,
		validate:  validator.New(),
	}
}

// Directory exposes the read side.
func (s *Service) Directory() *Directory {
	return s.directory
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	page, perPage = shared.NormalizePage(page, perPage)
	p := shared.Pagination{Page: page, PerPage: perPage}
	users, err := s.directory.ListUsers(ctx, p)
	if err != nil {
		return nil, p, err
	}
	res, err := s.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbCount})
	if err != nil {
		return nil, p, err
	}
	return users, shared.NewPagination(page, perPage, int(res.Count)), nil
}

// AssignRoles replaces the roles of a user. Every role must exist in the
// catalog.
func (s *Service) AssignRoles(ctx context.Context, userID string, in RoleAssignment) (*User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	primary := strings.ToUpper(strings.TrimSpace(in.PrimaryRole))
	additional := make([]string, 0, len(in.AdditionalRoles))
	for _, role := range append([]string{primary}, in.AdditionalRoles...) {
		if !s.catalog.HasRole(role) {
			return nil, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, role)
		}
	}
	for _, role := range in.AdditionalRoles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == primary || slices.Contains(additional, role) {
			continue
		}
		additional = append(additional, role)
	}

	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbUpdate,
		Where:  store.Filter{"id": userID},
		Data: store.Row{
			"primary_role":     primary,
			"additional_roles": additional,
			"updated_at":       time.Now().UTC(),
		},
	})
	if err != nil {
		return nil, translate(err)
	}
	u := userFromRow(res.Row)
	return &u, nil
}
