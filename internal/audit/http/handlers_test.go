package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-desk/internal/audit"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.Record
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.Record, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

var users = map[string]rbac.Identity{
	"admin":   {ID: "admin", PrimaryRole: "ADMIN"},
	"manager": {ID: "manager", PrimaryRole: "MANAGER"},
	"staff":   {ID: "staff", PrimaryRole: "STAFF"},
}

func newRouter(service *stubTimelineService) http.Handler {
	verifier := rbac.VerifierFunc(func(_ context.Context, creds rbac.Credentials) (*rbac.Identity, error) {
		id, ok := users[creds.Subject]
		if !ok {
			return nil, nil
		}
		return &id, nil
	})
	gate := rbac.NewGate(rbac.NewResolver(rbac.NewDefaultCatalog(), verifier), nil)
	handler := NewHandler(nil, service, rbac.Middleware{Gate: gate})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := rbac.WithCredentials(r.Context(), rbac.Credentials{Subject: r.Header.Get("X-User")})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/audit", handler.MountRoutes)
	return r
}

func do(h http.Handler, user, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestTimelineRequiresPermission(t *testing.T) {
	router := newRouter(&stubTimelineService{})

	assert.Equal(t, http.StatusUnauthorized, do(router, "", "/audit").Code)
	assert.Equal(t, http.StatusForbidden, do(router, "staff", "/audit").Code)
	assert.Equal(t, http.StatusForbidden, do(router, "staff", "/audit/export").Code)
}

func TestTimelineReturnsRows(t *testing.T) {
	service := &stubTimelineService{result: audit.Result{
		Rows:   []audit.Record{{ID: "a1", ActorID: "u1", Action: "UPDATE_TICKET", TargetID: "T1", TargetType: "Ticket"}},
		Paging: audit.PagingInfo{Page: 2, PageSize: 10, Total: 11},
	}}
	router := newRouter(service)

	rr := do(router, "manager", "/audit?actor=u1&action=update_ticket&target_type=Ticket&page=2&page_size=10")
	require.Equal(t, http.StatusOK, rr.Code)

	var body audit.Result
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "T1", body.Rows[0].TargetID)
	assert.Equal(t, audit.TimelineFilters{
		ActorID:    "u1",
		Action:     "update_ticket",
		TargetType: "Ticket",
		Page:       2,
		PageSize:   10,
	}, service.lastFilters)
}

func TestExportCSV(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.Record{{
		ActorID:    "u1",
		Action:     "DELETE_TICKET",
		TargetID:   "T7",
		TargetType: "Ticket",
		Details:    []byte(`{"where":{"id":"T7"}}`),
		Timestamp:  time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
	}}}
	router := newRouter(service)

	rr := do(router, "admin", "/audit/export?target_id=T7")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rr.Body.String(), "DELETE_TICKET"))
	assert.Equal(t, "T7", service.lastFilters.TargetID)
}
