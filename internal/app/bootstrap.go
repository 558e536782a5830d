package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-desk/internal/platform/db"
	"github.com/odyssey-erp/odyssey-desk/internal/platform/errutil"
	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
	"github.com/odyssey-erp/odyssey-desk/internal/users"
)

// Storage is the opened persistence backend.
type Storage struct {
	Backend store.Backend
	Pool    *pgxpool.Pool
}

// OpenStorage opens the backend selected by STORE_DRIVER.
func OpenStorage(ctx context.Context, cfg *Config) (*Storage, error) {
	if !cfg.UsesPostgres() {
		return &Storage{Backend: store.NewMemory()}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	return &Storage{Backend: store.NewPostgres(pool, Schemas()...), Pool: pool}, nil
}

// Close releases the pool, if any.
func (s *Storage) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// LoadCatalog builds the permission catalog. A role table file wins over the
// database; the built-in table is used when neither is available. The returned
// reloader is nil unless the table is database backed.
func LoadCatalog(ctx context.Context, cfg *Config, querier rbac.Querier, logger *slog.Logger) (*rbac.Catalog, rbac.Reloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := rbac.NewDefaultCatalog()
	if cfg.RoleTablePath != "" {
		table, err := rbac.LoadRoleTableFile(cfg.RoleTablePath)
		if err != nil {
			return nil, nil, err
		}
		if err := catalog.Replace(table); err != nil {
			return nil, nil, err
		}
		logger.Info("role table loaded from file", slog.String("path", cfg.RoleTablePath), slog.Int("roles", len(table)))
		return catalog, nil, nil
	}
	if querier == nil {
		logger.Info("using built-in role table")
		return catalog, nil, nil
	}
	svc := rbac.NewService(querier, catalog, logger)
	if _, err := svc.Reload(ctx); err != nil {
		errutil.LogError(logger, "role table not loaded from database, using built-in table", err)
	}
	return catalog, svc, nil
}

// EnsureAdmin creates the bootstrap administrator when configured and absent.
func EnsureAdmin(ctx context.Context, cfg *Config, directory *users.Directory, logger *slog.Logger) error {
	if cfg.BootstrapAdminEmail == "" {
		return nil
	}
	_, err := directory.FindByEmail(ctx, cfg.BootstrapAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("bootstrap admin lookup: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("bootstrap admin hash: %w", err)
	}
	created, err := directory.Create(ctx, users.User{
		Email:        cfg.BootstrapAdminEmail,
		Name:         "Administrator",
		PasswordHash: string(hash),
		PrimaryRole:  shared.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin create: %w", err)
	}
	if logger != nil {
		logger.Info("bootstrap admin created", slog.String("user_id", created.ID))
	}
	return nil
}
