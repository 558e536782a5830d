package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-desk/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-desk/internal/audit/http"
	"github.com/odyssey-erp/odyssey-desk/internal/auth"
	"github.com/odyssey-erp/odyssey-desk/internal/observability"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/reports"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
	"github.com/odyssey-erp/odyssey-desk/internal/tickets"
	"github.com/odyssey-erp/odyssey-desk/internal/users"
	"github.com/odyssey-erp/odyssey-desk/jobs"
)

type desk struct {
	router http.Handler
	core   *Core
	mem    *store.Memory
}

func newDesk(t *testing.T) desk {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := &Config{
		AppEnv:                 "test",
		AppRequestTimeout:      5 * time.Second,
		StoreDriver:            StoreDriverMemory,
		BootstrapAdminEmail:    "root@desk.test",
		BootstrapAdminPassword: "open-sesame",
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "desk_session", time.Hour, false)

	storage, err := OpenStorage(context.Background(), cfg)
	require.NoError(t, err)
	catalog, reloader, err := LoadCatalog(context.Background(), cfg, nil, logger)
	require.NoError(t, err)
	assert.Nil(t, reloader)

	metrics := observability.NewMetrics()
	core := NewCore(storage.Backend, catalog, logger, metrics)
	require.NoError(t, EnsureAdmin(context.Background(), cfg, core.Users.Directory(), logger))
	require.NoError(t, EnsureAdmin(context.Background(), cfg, core.Users.Directory(), logger))

	hash, err := bcrypt.GenerateFromPassword([]byte("staff-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = core.Users.Directory().Create(context.Background(), users.User{
		ID: "u-staff", Email: "staff@desk.test", Name: "Sol", PasswordHash: string(hash),
		PrimaryRole: shared.RoleStaff, IsActive: true,
	})
	require.NoError(t, err)

	mw := core.Middleware(logger)
	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		AuthHandler:    auth.NewHandler(logger, auth.NewService(core.Users.Directory()), sessions, mw),
		TicketsHandler: tickets.NewHandler(logger, core.Tickets, mw),
		ReportsHandler: reports.NewHandler(logger, core.Reports, mw),
		UsersHandler:   users.NewHandler(logger, core.Users, mw),
		RolesHandler:   rbac.NewHandler(logger, catalog, reloader, mw),
		AuditHandler:   audithttp.NewHandler(logger, core.Audit, mw),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        metrics,
	})
	return desk{router: router, core: core, mem: storage.Backend.(*store.Memory)}
}

func (d desk) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(shared.SessionHeader, token)
	}
	rr := httptest.NewRecorder()
	d.router.ServeHTTP(rr, req)
	return rr
}

func (d desk) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := d.do(t, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	token := rr.Header().Get(shared.SessionHeader)
	require.NotEmpty(t, token)
	return token
}

func (d desk) adminID(t *testing.T) string {
	t.Helper()
	u, err := d.core.Users.Directory().FindByEmail(context.Background(), "root@desk.test")
	require.NoError(t, err)
	return u.ID
}

func TestDeskEndToEnd(t *testing.T) {
	d := newDesk(t)

	assert.Equal(t, http.StatusUnauthorized, d.do(t, http.MethodGet, "/tickets", "", "").Code)

	staff := d.login(t, "staff@desk.test", "staff-pass")
	rr := d.do(t, http.MethodPost, "/tickets", staff, `{"title":"Laptop will not boot"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var ticket tickets.Ticket
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&ticket))

	assert.Equal(t, http.StatusForbidden, d.do(t, http.MethodDelete, "/tickets/"+ticket.ID, staff, "").Code)
	assert.Equal(t, http.StatusForbidden, d.do(t, http.MethodGet, "/audit", staff, "").Code)

	admin := d.login(t, "root@desk.test", "open-sesame")
	assert.Equal(t, http.StatusNoContent, d.do(t, http.MethodDelete, "/tickets/"+ticket.ID, admin, "").Code)

	rr = d.do(t, http.MethodGet, "/audit?target_type=Ticket", admin, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var timeline audit.Result
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&timeline))
	trail := make([]string, 0, len(timeline.Rows))
	for _, rec := range timeline.Rows {
		trail = append(trail, rec.Action+":"+rec.ActorID+":"+rec.TargetID)
	}
	adminID := d.adminID(t)
	assert.ElementsMatch(t, []string{
		"CREATE_TICKET:u-staff:" + ticket.ID,
		"DELETE_TICKET:" + adminID + ":" + ticket.ID,
	}, trail)
	assert.Equal(t, 0, int(d.mem.OpenHandles()))

	assert.Equal(t, http.StatusNoContent, d.do(t, http.MethodPost, "/auth/logout", staff, "").Code)
	assert.Equal(t, http.StatusUnauthorized, d.do(t, http.MethodGet, "/tickets", staff, "").Code)
}

func TestDeskOperationalEndpoints(t *testing.T) {
	d := newDesk(t)

	rr := d.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, d.do(t, http.MethodGet, "/jobs/health", "", "").Code)

	admin := d.login(t, "root@desk.test", "open-sesame")
	assert.Equal(t, http.StatusServiceUnavailable, d.do(t, http.MethodPost, "/roles/reload", admin, "").Code)

	rr = d.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "desk_http_requests_total")
	assert.Contains(t, rr.Body.String(), "desk_audit_records_total")
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  VIEWER: [view_tickets]\n"), 0o600))

	catalog, reloader, err := LoadCatalog(context.Background(), &Config{RoleTablePath: path}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, reloader)
	assert.Equal(t, []string{"VIEWER"}, catalog.Roles())

	require.NoError(t, os.WriteFile(path, []byte("roles:\n  VIEWER: [fly]\n"), 0o600))
	_, _, err = LoadCatalog(context.Background(), &Config{RoleTablePath: path}, nil, nil)
	assert.ErrorIs(t, err, rbac.ErrUnknownPermission)
}
