// Package session keeps the caller's auth state between commands: the
// access token, the refresh token and the cached user profile.
package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/zero-paper-user/internal/repository"
)

// Store is a string key/value tier.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// MemoryStore lives as long as the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.data)
	return nil
}

// SQLStore persists entries in a SQL table through the kv repository.
type SQLStore struct {
	repository.KVRepository
	drv  *entsql.Driver
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	repository.Close(s.drv, s.pool, s.log)
	return nil
}

// Ping checks the database is reachable.
func (s *SQLStore) Ping(ctx context.Context, timeout time.Duration) error {
	if s.pool != nil {
		return repository.HealthCheck(ctx, s.pool, timeout, s.log)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.drv.DB().PingContext(ctx)
}

// OpenSQLite opens a store backed by a SQLite file.
func OpenSQLite(ctx context.Context, path, scope string, logger *slog.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	drv, err := repository.OpenSQLite(path, logger)
	if err != nil {
		return nil, err
	}
	repo, err := repository.NewKVRepository(ctx, drv, scope, logger)
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	return &SQLStore{KVRepository: repo, drv: drv, log: logger}, nil
}

// OpenPostgres opens a store in a Postgres database.
func OpenPostgres(ctx context.Context, dsn, scope string, logger *slog.Logger) (*SQLStore, error) {
	drv, pool, err := repository.Open(ctx, repository.DefaultConfig(dsn), logger)
	if err != nil {
		return nil, err
	}
	if err := repository.HealthCheck(ctx, pool, 2*time.Second, logger); err != nil {
		repository.Close(drv, pool, logger)
		return nil, err
	}
	repo, err := repository.NewKVRepository(ctx, drv, scope, logger)
	if err != nil {
		repository.Close(drv, pool, logger)
		return nil, err
	}
	return &SQLStore{KVRepository: repo, drv: drv, pool: pool, log: logger}, nil
}
