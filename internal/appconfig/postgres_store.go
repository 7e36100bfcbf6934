// internal/appconfig/postgres_store.go
package appconfig

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"go.uber.org/zap"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

const defaultTable = "app_launch_configs"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore keeps app configs in a single postgres table keyed by name.
type PostgresStore struct {
	pool  DBPool
	table string
	log   *zap.Logger
}

// OpenPostgres connects a pool to cfg.URL and returns a ready store.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := NewPostgresStore(ctx, pool, cfg.Table, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore verifies the connection and makes sure the table exists.
func NewPostgresStore(ctx context.Context, pool DBPool, table string, logger *zap.Logger) (*PostgresStore, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, table: table, log: logger.Named("appconfig_pg")}
	if _, err := pool.Exec(ctx, s.sql(createTableSQL)); err != nil {
		return nil, fmt.Errorf("failed to ensure table %s: %w", table, err)
	}
	return s, nil
}

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		package TEXT NOT NULL DEFAULT '',
		component TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	selectOneSQL = `SELECT package, component FROM %s WHERE name = $1`
	selectAllSQL = `SELECT name, package, component FROM %s ORDER BY name`
	upsertSQL    = `INSERT INTO %s (name, package, component, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE SET
			package = EXCLUDED.package,
			component = EXCLUDED.component,
			updated_at = now()`
)

func (s *PostgresStore) sql(format string) string {
	return fmt.Sprintf(format, s.table)
}

// Get returns the config stored under name.
func (s *PostgresStore) Get(ctx context.Context, name string) (AppConfig, error) {
	name, err := normalize(name)
	if err != nil {
		return AppConfig{}, err
	}
	var cfg AppConfig
	err = s.pool.QueryRow(ctx, s.sql(selectOneSQL), name).Scan(&cfg.Package, &cfg.Component)
	if errors.Is(err, pgx.ErrNoRows) {
		return AppConfig{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("failed to query app config %s: %w", name, err)
	}
	return cfg, nil
}

// Put upserts cfg under name.
func (s *PostgresStore) Put(ctx context.Context, name string, cfg AppConfig) error {
	name, err := normalize(name)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, s.sql(upsertSQL), name, cfg.Package, cfg.Component)
	if err != nil {
		return fmt.Errorf("failed to upsert app config %s: %w", name, err)
	}
	s.log.Info("App config saved", zap.String("app", name), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

// List returns every stored config.
func (s *PostgresStore) List(ctx context.Context) (map[string]AppConfig, error) {
	rows, err := s.pool.Query(ctx, s.sql(selectAllSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to list app configs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]AppConfig)
	for rows.Next() {
		var name string
		var cfg AppConfig
		if err := rows.Scan(&name, &cfg.Package, &cfg.Component); err != nil {
			return nil, fmt.Errorf("failed to scan app config row: %w", err)
		}
		out[name] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating app config rows: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
