package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

// Reloader republishes the role table from its backing store.
type Reloader interface {
	Reload(ctx context.Context) (RoleTable, error)
}

// Handler exposes the live role table.
type Handler struct {
	logger   *slog.Logger
	catalog  *Catalog
	reloader Reloader
	rbac     Middleware
}

// NewHandler builds Handler instance. reloader may be nil when the table is
// not backed by the database.
func NewHandler(logger *slog.Logger, catalog *Catalog, reloader Reloader, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, catalog: catalog, reloader: reloader, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesManage))
		r.Get("/", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesManage))
		r.Post("/reload", h.reload)
	})
}

type roleResponse struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"roles":       toRoleResponses(h.catalog.Roles(), h.catalog.Table()),
		"permissions": shared.AllScopes(),
	})
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "role table is not database backed")
		return
	}
	table, err := h.reloader.Reload(r.Context())
	if err != nil {
		h.logger.Error("reload role table", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Reload Failed", "role table rejected, previous table kept")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": toRoleResponses(h.catalog.Roles(), table)})
}

func toRoleResponses(names []string, table RoleTable) []roleResponse {
	out := make([]roleResponse, 0, len(names))
	for _, name := range names {
		perms := table[name]
		if perms == nil {
			perms = []string{}
		}
		out = append(out, roleResponse{Name: name, Permissions: perms})
	}
	return out
}
