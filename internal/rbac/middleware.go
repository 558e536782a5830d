package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

// Middleware wires RBAC gates into HTTP handler chains.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequireAuthentication rejects requests without a resolvable actor with 401
// and runs the rest of the chain inside the actor's request scope.
func (m Middleware) RequireAuthentication() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.wrap(next, func(h HandlerFunc) HandlerFunc {
			return m.Gate.RequireAuthentication(h)
		})
	}
}

// RequireAny ensures the current actor has at least one of the required
// permissions; 401 without an actor, 403 without a matching permission.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.wrap(next, func(h HandlerFunc) HandlerFunc {
			return m.Gate.RequirePermission(perms, h)
		})
	}
}

func (m Middleware) wrap(next http.Handler, guard func(HandlerFunc) HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler := guard(func(ctx context.Context) error {
			next.ServeHTTP(w, r.WithContext(ctx))
			return nil
		})
		if err := handler(r.Context()); err != nil {
			m.reject(w, r, err)
		}
	})
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	rejected := errors.Is(err, shared.ErrUnauthenticated) || errors.Is(err, shared.ErrForbidden)
	if !rejected && m.Logger != nil {
		m.Logger.Error("rbac gate", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
