package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// KVTable holds session entries. scope separates the durable and the
// ephemeral tier when both live in one database.
const KVTable = "zpu_session"

const kvSchema = `CREATE TABLE IF NOT EXISTS zpu_session (
	scope      TEXT   NOT NULL,
	name       TEXT   NOT NULL,
	value      TEXT   NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (scope, name)
)`

type KVRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type kvRepository struct {
	drv    *entsql.Driver
	scope  string
	logger *slog.Logger
}

// NewKVRepository creates the session table when missing and returns a
// repository bound to scope.
func NewKVRepository(ctx context.Context, drv *entsql.Driver, scope string, logger *slog.Logger) (KVRepository, error) {
	if err := drv.Exec(ctx, kvSchema, []any{}, nil); err != nil {
		logger.Error("kv.migrate.error", "dialect", drv.Dialect(), "error", err)
		return nil, fmt.Errorf("create %s: %w", KVTable, err)
	}
	return &kvRepository{drv: drv, scope: scope, logger: logger}, nil
}

func (r *kvRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *kvRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query, args := r.builder().
		Select("value").
		From(entsql.Table(KVTable)).
		Where(entsql.And(entsql.EQ("scope", r.scope), entsql.EQ("name", key))).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", false, rows.Err()
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", false, fmt.Errorf("scan %s: %w", key, err)
	}
	return value, true, nil
}

func (r *kvRepository) Set(ctx context.Context, key, value string) error {
	query, args := r.builder().
		Insert(KVTable).
		Columns("scope", "name", "value", "updated_at").
		Values(r.scope, key, value, time.Now().UTC().UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("scope", "name"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("kv.set.error", "scope", r.scope, "key", key, "error", err)
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *kvRepository) Delete(ctx context.Context, key string) error {
	query, args := r.builder().
		Delete(KVTable).
		Where(entsql.And(entsql.EQ("scope", r.scope), entsql.EQ("name", key))).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (r *kvRepository) Clear(ctx context.Context) error {
	query, args := r.builder().
		Delete(KVTable).
		Where(entsql.EQ("scope", r.scope)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("clear %s: %w", r.scope, err)
	}
	return nil
}
