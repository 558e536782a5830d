package rbac

import (
	"context"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-desk/internal/shared"
)

// HandlerFunc is a unit of request work. It is independent of any transport:
// the HTTP adapter in Middleware wraps http.Handlers into it.
type HandlerFunc func(ctx context.Context) error

// Gate builds authentication and permission guards around handlers.
type Gate struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(resolver *Resolver, logger *slog.Logger) *Gate {
	return &Gate{Resolver: resolver, Logger: logger}
}

// RequireAuthentication resolves the actor from the credentials in ctx and
// runs next inside a request scope for it. Without an actor next is never
// invoked and shared.ErrUnauthenticated is returned.
func (g *Gate) RequireAuthentication(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context) error {
		actor, err := g.Resolver.Resolve(ctx, CredentialsFromContext(ctx))
		if err != nil {
			return err
		}
		if actor == nil {
			return shared.ErrUnauthenticated
		}
		return Run(ctx, actor, next)
	}
}

// RequirePermission layers an any-of permission check over
// RequireAuthentication. An empty list only requires authentication.
func (g *Gate) RequirePermission(perms []string, next HandlerFunc) HandlerFunc {
	required := normalizePermissions(perms)
	return g.RequireAuthentication(func(ctx context.Context) error {
		if len(required) == 0 {
			return next(ctx)
		}
		actor, _ := CurrentActor(ctx)
		if !actor.Can(required...) {
			g.logger().Debug("rbac permission denied",
				slog.String("actor", actor.ID()),
				slog.Any("required", required))
			return shared.ErrForbidden
		}
		return next(ctx)
	})
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
