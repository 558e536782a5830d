package rbac

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
)

// Querier is the subset of pgxpool.Pool used by Service.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service loads the role table from PostgreSQL and republishes it into a
// Catalog. It is the maintenance path for role edits; request handling only
// ever reads the published snapshot.
type Service struct {
	db      Querier
	catalog *Catalog
	logger  *slog.Logger
}

// NewService constructs a Service backed by the provided pool.
func NewService(db Querier, catalog *Catalog, logger *slog.Logger) *Service {
	return &Service{db: db, catalog: catalog, logger: logger}
}

const roleTableQuery = `SELECT r.name, COALESCE(p.name, '')
FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
ORDER BY r.name, p.name`

// LoadRoleTable reads every role with its granted permissions.
func (s *Service) LoadRoleTable(ctx context.Context) (RoleTable, error) {
	rows, err := s.db.Query(ctx, roleTableQuery)
	if err != nil {
		return nil, oops.In("rbac").Code("ROLE_TABLE_QUERY").Wrap(err)
	}
	defer rows.Close()

	table := make(RoleTable)
	for rows.Next() {
		var role, perm string
		if err := rows.Scan(&role, &perm); err != nil {
			return nil, oops.In("rbac").Code("ROLE_TABLE_SCAN").Wrap(err)
		}
		if _, ok := table[role]; !ok {
			table[role] = []string{}
		}
		if perm != "" {
			table[role] = append(table[role], perm)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("rbac").Code("ROLE_TABLE_SCAN").Wrap(err)
	}
	return table, nil
}

// Reload loads the role table and publishes it. The previous snapshot stays
// active when loading or validation fails.
func (s *Service) Reload(ctx context.Context) (RoleTable, error) {
	table, err := s.LoadRoleTable(ctx)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, oops.In("rbac").Code("ROLE_TABLE_EMPTY").New("role table is empty")
	}
	if err := s.catalog.Replace(table); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("rbac role table reloaded", slog.Int("roles", len(table)))
	}
	return s.catalog.Table(), nil
}
