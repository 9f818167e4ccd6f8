// Package migrations wires golang-migrate execution for the persistence
// layer.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migrations loader
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	dbmigrations "github.com/rparrett/jornet/db/migrations"
	"github.com/rparrett/jornet/pkg/logger"
)

var errNotDirectory = errors.New("migrations path must be a directory")

// Apply ensures the schema is up to date on the Postgres instance reachable
// via dsn. Migrations are loaded from migrationsDir when set, otherwise
// from the SQL files embedded in the binary.
func Apply(ctx context.Context, dsn, migrationsDir string, log logger.Logger) error {
	return withMigrate(ctx, dsn, migrationsDir, log, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				if log != nil {
					log.Info(ctx, "database migrations up-to-date")
				}
				return nil
			}
			return fmt.Errorf("apply migrations: %w", err)
		}
		if log != nil {
			log.Info(ctx, "database migrations applied")
		}
		return nil
	})
}

// Rollback undoes the most recent steps migrations.
func Rollback(ctx context.Context, dsn, migrationsDir string, steps int, log logger.Logger) error {
	if steps < 1 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	return withMigrate(ctx, dsn, migrationsDir, log, func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				if log != nil {
					log.Info(ctx, "no migrations to roll back")
				}
				return nil
			}
			return fmt.Errorf("roll back migrations: %w", err)
		}
		if log != nil {
			log.Info(ctx, "database migrations rolled back", logger.Int("steps", steps))
		}
		return nil
	})
}

func withMigrate(ctx context.Context, dsn, migrationsDir string, log logger.Logger, fn func(*migrate.Migrate) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && log != nil {
			log.Warn(ctx, "database migrations close", logger.Error(cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migrations database: %w", err)
	}

	var driverConfig pgxv5.Config
	driver, err := pgxv5.WithInstance(db, &driverConfig)
	if err != nil {
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}

	m, err := newMigrate(migrationsDir, driver)
	if err != nil {
		return err
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if log == nil {
			return
		}
		if sourceErr != nil {
			log.Warn(ctx, "database migrations source close", logger.Error(sourceErr))
		}
		if dbErr != nil {
			log.Warn(ctx, "database migrations db close", logger.Error(dbErr))
		}
	}()

	return fn(m)
}

func newMigrate(migrationsDir string, driver database.Driver) (*migrate.Migrate, error) {
	if strings.TrimSpace(migrationsDir) == "" {
		source, err := iofs.New(dbmigrations.Files, ".")
		if err != nil {
			return nil, fmt.Errorf("open embedded migrations: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
		if err != nil {
			return nil, fmt.Errorf("initialise migrate instance: %w", err)
		}
		return m, nil
	}

	resolvedDir, err := resolveDir(migrationsDir)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(fileURL(resolvedDir), "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("initialise migrate instance: %w", err)
	}
	return m, nil
}

func resolveDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)

	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("migrations directory: %w", err)
		}
		return "", fmt.Errorf("stat migrations directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("migrations directory: %w", errNotDirectory)
	}
	return abs, nil
}

func fileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := new(url.URL)
	u.Scheme = "file"
	u.Path = slashed
	return u.String()
}
