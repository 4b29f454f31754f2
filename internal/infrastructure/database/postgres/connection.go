// Package postgres holds the pgx-backed repositories for loans, customers, interest policies and
// loan applications, plus pool setup and schema migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-servicing/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns     = 10
	poolMaxConnIdleTime = 5 * time.Minute
	poolHealthCheck     = time.Minute
	pingTimeout         = 5 * time.Second
)

var errMissingDatabaseURL = errors.New("database.url is not configured")

// NewConnectionPool opens the loan store pool and fails fast when the server cannot be reached.
func NewConnectionPool(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errMissingDatabaseURL
	}
	logger = logger.With("component", "postgres")

	poolConfig, err := configurePool(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Opening loan store connection pool",
		"host", poolConfig.ConnConfig.Host,
		"db", poolConfig.ConnConfig.Database,
		"max_conns", poolConfig.MaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("open loan store pool: %w", err)
	}

	if err := pingPool(ctx, pool); err != nil {
		logger.Error("Loan store is unreachable", "error", err)
		pool.Close()
		return nil, err
	}

	logger.Info("Loan store connection pool ready")
	return pool, nil
}

func configurePool(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnIdleTime = poolMaxConnIdleTime
	poolConfig.HealthCheckPeriod = poolHealthCheck

	return poolConfig, nil
}

func pingPool(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("ping loan store: %w", err)
	}
	return nil
}
