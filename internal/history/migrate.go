package history

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrate applies every pending schema migration under migrationsPath
// (a "file://" source URL) against dsn. Safe to call on every startup: a
// fully up-to-date schema is reported as migrate.ErrNoChange and swallowed.
func Migrate(dsn, migrationsPath string, logger *zap.Logger) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("history schema up to date", zap.String("migrations_path", migrationsPath))
	return nil
}
