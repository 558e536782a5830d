package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Entity is the store entity for user accounts.
const Entity = "User"

// Schema maps users onto the users table.
var Schema = store.Schema{
	Entity: Entity,
	Table:  "users",
	Columns: []string{
		"id", "email", "name", "password_hash", "primary_role",
		"additional_roles", "is_active", "created_at", "updated_at",
	},
}

// User represents a user account for management.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	PrimaryRole     string    `json:"primary_role"`
	AdditionalRoles []string  `json:"additional_roles"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RoleAssignment is the input of Service.AssignRoles.
type RoleAssignment struct {
	PrimaryRole     string   `json:"primary_role" validate:"required"`
	AdditionalRoles []string `json:"additional_roles" validate:"dive,required"`
}

func userFromRow(row store.Row) User {
	u := User{
		ID:              row.String("id"),
		Email:           row.String("email"),
		Name:            row.String("name"),
		PasswordHash:    row.String("password_hash"),
		PrimaryRole:     row.String("primary_role"),
		AdditionalRoles: stringList(row["additional_roles"]),
	}
	u.IsActive, _ = row["is_active"].(bool)
	u.CreatedAt, _ = row["created_at"].(time.Time)
	u.UpdatedAt, _ = row["updated_at"].(time.Time)
	return u
}

func (u User) toRow() store.Row {
	roles := u.AdditionalRoles
	if roles == nil {
		roles = []string{}
	}
	return store.Row{
		"id":               u.ID,
		"email":            u.Email,
		"name":             u.Name,
		"password_hash":    u.PasswordHash,
		"primary_role":     u.PrimaryRole,
		"additional_roles": roles,
		"is_active":        u.IsActive,
		"created_at":       u.CreatedAt,
		"updated_at":       u.UpdatedAt,
	}
}

// stringList accepts text[] as decoded by pgx ([]any) or as stored in memory.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
