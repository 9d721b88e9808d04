// Command plbd-migrate applies or inspects the history store's schema
// independently of the daemon, for operators who want migrations as a
// separate deploy step rather than run implicitly on every "plbd run".
package main

import (
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/config"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Fatal("usage: [PLBD_CONFIG=path] plbd-migrate <up|down|down-all|version|force N>")
	}
	command := os.Args[1]

	configPath := os.Getenv("PLBD_CONFIG")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if !cfg.History.Enabled {
		logger.Fatal("history.enabled is false; nothing to migrate")
	}

	m, err := migrate.New(cfg.History.MigrationsPath, cfg.History.DSN)
	if err != nil {
		logger.Fatal("failed to initialize migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		logger.Info("running migrations up")
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("migrations completed successfully")

	case "down":
		logger.Info("rolling back last migration")
		if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("rollback failed", zap.Error(err))
		}
		logger.Info("rollback completed successfully")

	case "down-all":
		logger.Info("rolling back all migrations")
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			logger.Fatal("rollback failed", zap.Error(err))
		}
		logger.Info("all migrations rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			logger.Fatal("failed to get version", zap.Error(err))
		}
		logger.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	case "force":
		if len(os.Args) < 3 {
			logger.Fatal("usage: plbd-migrate force <version>")
		}
		var version int
		if _, err := fmt.Sscanf(os.Args[2], "%d", &version); err != nil {
			logger.Fatal("invalid version number", zap.Error(err))
		}
		logger.Info("forcing version", zap.Int("version", version))
		if err := m.Force(version); err != nil {
			logger.Fatal("force failed", zap.Error(err))
		}
		logger.Info("version forced successfully")

	default:
		logger.Fatal("unknown command, use: up, down, down-all, version, force")
	}
}
