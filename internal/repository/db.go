package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DefaultConfig is sized for a session table: a handful of tiny rows.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:              dsn,
		MaxConns:         4,
		MinConns:         0,
		MaxConnLifetime:  30 * time.Minute,
		MaxConnIdleTime:  5 * time.Minute,
		DialTimeout:      5 * time.Second,
		StatementTimeout: 5 * time.Second,
	}
}

// Open creates a pgx pool and wraps it as an ent SQL driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*entsql.Driver, *pgxpool.Pool, error) {
	logger.Info("db.open", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("db.open.error", "error", err)
		return nil, nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "zero-paper-user"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("db.open.error", "error", err)
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("db.open.ok", "dialect", dialect.Postgres)
	return entsql.OpenDB(dialect.Postgres, db), pool, nil
}

// OpenSQLite opens (and creates) a SQLite file with the pure-Go modernc
// driver. Use ":memory:" for a throwaway database.
func OpenSQLite(path string, logger *slog.Logger) (*entsql.Driver, error) {
	dsn := withPragma(path, "busy_timeout(5000)")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	logger.Debug("db.open.ok", "dialect", dialect.SQLite, "path", path)
	return entsql.OpenDB(dialect.SQLite, db), nil
}

func withPragma(dsn, pragma string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=" + pragma
	}
	return dsn + "?_pragma=" + pragma
}

// Close closes the driver and, when given, the pool behind it.
func Close(drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) {
	if drv != nil {
		if err := drv.Close(); err != nil {
			logger.Error("db.close.error", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Debug("db.close.ok")
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("db.ping.error", "error", err)
		return fmt.Errorf("ping: %w", err)
	}
	logger.Debug("db.ping.ok")
	return nil
}
