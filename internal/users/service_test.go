package users

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/audit"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

type env struct {
	mem      *store.Memory
	service  *Service
	verifier *Verifier
	catalog  *rbac.Catalog
}

func newEnv(t *testing.T) env {
	t.Helper()
	mem := store.NewMemory()
	exec := audit.NewInterceptor(mem, audit.NewStoreWriter(mem), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
	catalog := rbac.NewDefaultCatalog()
	svc := NewService(exec, catalog)

	for _, u := range []User{
		{ID: "u-admin", Email: "Admin@Desk.test", Name: "Ada", PrimaryRole: shared.RoleAdmin, IsActive: true},
		{ID: "u-staff", Email: "staff@desk.test", Name: "Sol", PrimaryRole: shared.RoleStaff, IsActive: true},
		{ID: "u-gone", Email: "gone@desk.test", Name: "Old", PrimaryRole: shared.RoleStaff},
	} {
		_, err := svc.Directory().Create(context.Background(), u)
		require.NoError(t, err)
	}
	return env{mem: mem, service: svc, verifier: NewVerifier(svc.Directory()), catalog: catalog}
}

func TestDirectoryLookups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.service.Directory().FindByEmail(ctx, " ADMIN@desk.test ")
	require.NoError(t, err)
	assert.Equal(t, "u-admin", u.ID)
	assert.Equal(t, []string{}, u.AdditionalRoles)

	_, err = e.service.Directory().FindByID(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	list, page, err := e.service.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "admin@desk.test", list[0].Email)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestVerifier(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.verifier.Verify(ctx, rbac.Credentials{Subject: "u-staff"})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, shared.RoleStaff, id.PrimaryRole)

	id, err = e.verifier.Verify(ctx, rbac.Credentials{Subject: "u-gone"})
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = e.verifier.Verify(ctx, rbac.Credentials{Subject: "ghost"})
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestAssignRolesIsAudited(t *testing.T) {
	e := newEnv(t)
	admin, err := rbac.NewActor(e.catalog, rbac.Identity{ID: "u-admin", PrimaryRole: shared.RoleAdmin})
	require.NoError(t, err)

	u, err := rbac.RunWithActor(context.Background(), admin, func(ctx context.Context) (*User, error) {
		return e.service.AssignRoles(ctx, "u-staff", RoleAssignment{
			PrimaryRole:     "staff",
			AdditionalRoles: []string{"report_reviewer", "REPORT_REVIEWER", "STAFF"},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, shared.RoleStaff, u.PrimaryRole)
	assert.Equal(t, []string{shared.RoleReportReviewer}, u.AdditionalRoles)

	res, err := e.mem.ExecRaw(context.Background(), store.Operation{Entity: audit.Entity, Verb: store.VerbFindMany})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "UPDATE_USER", res.Rows[0].String("action"))
	assert.Equal(t, "u-staff", res.Rows[0].String("target_id"))
	assert.Equal(t, "u-admin", res.Rows[0].String("actor_id"))
}

func TestAssignRolesValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.service.AssignRoles(ctx, "u-staff", RoleAssignment{PrimaryRole: "OVERLORD"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = e.service.AssignRoles(ctx, "u-staff", RoleAssignment{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = e.service.AssignRoles(ctx, "missing", RoleAssignment{PrimaryRole: shared.RoleViewer})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	e := newEnv(t)
	gate := rbac.NewGate(rbac.NewResolver(e.catalog, e.verifier), nil)
	h := NewHandler(nil, e.service, rbac.Middleware{Gate: gate})
	r := chi.NewRouter()
	r.Route("/users", h.MountRoutes)

	call := func(method, target, subject, body string) int {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req = req.WithContext(rbac.WithCredentials(req.Context(), rbac.Credentials{Subject: subject}))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/users", "", ""))
	assert.Equal(t, http.StatusForbidden, call(http.MethodGet, "/users", "u-staff", ""))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/users", "u-admin", ""))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPut, "/users/u-staff/roles", "u-staff", `{"primary_role":"ADMIN"}`))
	assert.Equal(t, http.StatusOK, call(http.MethodPut, "/users/u-staff/roles", "u-admin", `{"primary_role":"MANAGER"}`))
	assert.Equal(t, http.StatusBadRequest, call(http.MethodPut, "/users/u-staff/roles", "u-admin", `{"primary_role":"MANAGER","x":1}`))
}
