package tickets

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

// Handler exposes ticket endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers ticket routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermTicketsView)).Get("/", h.list)
	r.With(h.rbac.RequireAny(shared.PermTicketsView)).Get("/{id}", h.get)
	r.With(h.rbac.RequireAny(shared.PermTicketsCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAny(shared.PermTicketsUpdate)).Patch("/{id}", h.update)
	r.With(h.rbac.RequireAny(shared.PermTicketsUpdate)).Post("/bulk-status", h.bulkStatus)
	r.With(h.rbac.RequireAny(shared.PermTicketsDelete)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, page, err := h.service.List(r.Context(), ListFilter{
		Status:     Status(q.Get("status")),
		AssigneeID: q.Get("assignee_id"),
		Page:       httpx.QueryInt(r, "page", 1),
		PerPage:    httpx.QueryInt(r, "per_page", 0),
	})
	if err != nil {
		h.fail(w, "list tickets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tickets": items, "pagination": page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create ticket", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var in BulkStatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.BulkSetStatus(r.Context(), in)
	if err != nil {
		h.fail(w, "bulk ticket status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete ticket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
