// Package history provides the PostgreSQL-backed cycle audit log. It is an
// append-only record for operators; the planner never reads it back.
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/formorer/ProxLB/internal/domain"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB opens a connection pool against dsn and verifies connectivity.
func NewDB(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, domain.NewError(domain.ErrAPIUnreachable, fmt.Errorf("parse postgres config: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.NewError(domain.ErrAPIUnreachable, fmt.Errorf("ping postgres: %w", err))
	}

	logger.Info("connected to history database")
	return &DB{pool: pool, logger: logger.With(zap.String("component", "history"))}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
