package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

type stubReloader struct {
	table RoleTable
	err   error
}

func (s stubReloader) Reload(context.Context) (RoleTable, error) {
	return s.table, s.err
}

func newRolesRouter(reloader Reloader) http.Handler {
	catalog := NewDefaultCatalog()
	h := NewHandler(nil, catalog, reloader, Middleware{Gate: newTestGate()})
	r := chi.NewRouter()
	r.Route("/roles", h.MountRoutes)
	return r
}

func request(h http.Handler, method, target, subject string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil).WithContext(as(subject))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestListRoles(t *testing.T) {
	router := newRolesRouter(nil)

	assert.Equal(t, http.StatusForbidden, request(router, http.MethodGet, "/roles", "staff").Code)

	rr := request(router, http.MethodGet, "/roles", "admin")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Roles       []roleResponse `json:"roles"`
		Permissions []string       `json:"permissions"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Len(t, body.Roles, 5)
	assert.ElementsMatch(t, shared.AllScopes(), body.Permissions)
}

func TestReloadRoles(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, request(newRolesRouter(nil), http.MethodPost, "/roles/reload", "admin").Code)

	failing := newRolesRouter(stubReloader{err: errors.New("bad table")})
	assert.Equal(t, http.StatusUnprocessableEntity, request(failing, http.MethodPost, "/roles/reload", "admin").Code)

	ok := newRolesRouter(stubReloader{table: RoleTable{"ADMIN": shared.AllScopes()}})
	assert.Equal(t, http.StatusOK, request(ok, http.MethodPost, "/roles/reload", "admin").Code)
	assert.Equal(t, http.StatusForbidden, request(ok, http.MethodPost, "/roles/reload", "manager").Code)
}
