package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

// Handler exposes report endpoints.
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

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.With(h.rbac.RequireAny(shared.PermReportsCreate)).Post("/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsUpdate, shared.PermReportsCreate))
		r.Patch("/{id}", h.update)
		r.Post("/{id}/submit", h.submit)
	})
	r.With(h.rbac.RequireAny(shared.PermReportsReview)).Post("/{id}/review", h.review)
	r.With(h.rbac.RequireAny(shared.PermReportsDelete)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, page, err := h.service.List(r.Context(), ListFilter{
		Status:   Status(q.Get("status")),
		AuthorID: q.Get("author_id"),
		Page:     httpx.QueryInt(r, "page", 1),
		PerPage:  httpx.QueryInt(r, "per_page", 0),
	})
	if err != nil {
		h.fail(w, "list reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reports": items, "pagination": page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rep, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rep)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rep, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "submit report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	var in ReviewInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rep, err := h.service.Review(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "review report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
