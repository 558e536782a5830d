package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Directory reads user accounts through the store.
type Directory struct {
	db store.Executor
}

// NewDirectory constructs a Directory.
func NewDirectory(db store.Executor) *Directory {
	return &Directory{db: db}
}

// FindByID returns the user with id or shared.ErrNotFound.
func (d *Directory) FindByID(ctx context.Context, id string) (*User, error) {
	return d.findOne(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbFindUnique,
		Where:  store.Filter{"id": id},
	})
}

// FindByEmail returns the user registered under email or shared.ErrNotFound.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return d.findOne(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbFindFirst,
		Where:  store.Filter{"email": strings.ToLower(strings.TrimSpace(email))},
	})
}

// ListUsers returns a page of users ordered by email.
func (d *Directory) ListUsers(ctx context.Context, p shared.Pagination) ([]User, error) {
	res, err := d.db.Exec(ctx, store.Operation{
		Entity:  Entity,
		Verb:    store.VerbFindMany,
		OrderBy: []store.Order{{Field: "email"}},
		Take:    p.PerPage,
		Skip:    p.Offset(),
	})
	if err != nil {
		return nil, err
	}
	users := make([]User, len(res.Rows))
	for i, row := range res.Rows {
		users[i] = userFromRow(row)
	}
	return users, nil
}

// Create stores a new user account.
func (d *Directory) Create(ctx context.Context, u User) (*User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	res, err := d.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbCreate, Data: u.toRow()})
	if err != nil {
		return nil, err
	}
	created := userFromRow(res.Row)
	return &created, nil
}

func (d *Directory) findOne(ctx context.Context, op store.Operation) (*User, error) {
	res, err := d.db.Exec(ctx, op)
	if err != nil {
		return nil, err
	}
	if res.Row == nil {
		return nil, shared.ErrNotFound
	}
	u := userFromRow(res.Row)
	return &u, nil
}
