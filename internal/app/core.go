package app

import (
	"log/slog"

	"github.com/odyssey-erp/odyssey-desk/internal/audit"
	"github.com/odyssey-erp/odyssey-desk/internal/observability"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/reports"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
	"github.com/odyssey-erp/odyssey-desk/internal/tickets"
	"github.com/odyssey-erp/odyssey-desk/internal/users"
)

// Core bundles the authorization and audit core with the domain services that
// run through it. Every service shares the same audited executor.
type Core struct {
	Catalog  *rbac.Catalog
	Executor *audit.Interceptor
	Gate     *rbac.Gate
	Users    *users.Service
	Tickets  *tickets.Service
	Reports  *reports.Service
	Audit    *audit.Service
}

// Schemas lists every entity the desk persists.
func Schemas() []store.Schema {
	return []store.Schema{users.Schema, tickets.Schema, reports.Schema, audit.Schema}
}

// NewCore wires the core on top of backend. The audit writer gets its own raw
// handle from the same backend.
func NewCore(backend store.Backend, catalog *rbac.Catalog, logger *slog.Logger, metrics *observability.Metrics) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	var auditMetrics *audit.Metrics
	if metrics != nil {
		auditMetrics = audit.NewMetrics(metrics.Registerer())
	}
	executor := audit.NewInterceptor(backend, audit.NewStoreWriter(backend), logger, auditMetrics)
	userService := users.NewService(executor, catalog)
	resolver := rbac.NewResolver(catalog, users.NewVerifier(userService.Directory()))
	return &Core{
		Catalog:  catalog,
		Executor: executor,
		Gate:     rbac.NewGate(resolver, logger),
		Users:    userService,
		Tickets:  tickets.NewService(executor),
		Reports:  reports.NewService(executor),
		Audit:    audit.NewService(executor),
	}
}

// Middleware returns the HTTP adapter of the core gate.
func (c *Core) Middleware(logger *slog.Logger) rbac.Middleware {
	return rbac.Middleware{Gate: c.Gate, Logger: logger}
}
