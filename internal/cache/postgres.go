package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCache implements sdk.Cache on a PostgreSQL table. Expired rows are
// treated as missing and deleted when read; PurgeExpired removes the rest.
type PostgresCache struct {
	pool  *pgxpool.Pool
	cfg   PostgresConfig
	table string
}

// NewPostgresCache creates the connection pool, checks it and makes sure the
// cache table exists.
func NewPostgresCache(ctx context.Context, cfg PostgresConfig) (*PostgresCache, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = 30 * time.Second

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &PostgresCache{
		pool:  pool,
		cfg:   cfg,
		table: pgx.Identifier{cfg.tableOrDefault()}.Sanitize(),
	}

	if err := c.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// EnsureSchema creates the cache table and its expiry index if missing
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key        TEXT PRIMARY KEY,
				value      BYTEA NOT NULL,
				expires_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, c.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (expires_at) WHERE expires_at IS NOT NULL`,
			pgx.Identifier{c.cfg.tableOrDefault() + "_expires_at_idx"}.Sanitize(), c.table),
	}

	for _, stmt := range statements {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create cache schema: %w", err)
		}
	}
	return nil
}

// Get retrieves a value. Missing and expired rows report found == false.
func (c *PostgresCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`
		SELECT value, (expires_at IS NOT NULL AND expires_at <= CURRENT_TIMESTAMP)
		FROM %s
		WHERE key = $1
	`, c.table)

	var (
		value   []byte
		expired bool
	)
	err := c.pool.QueryRow(ctx, query, key).Scan(&value, &expired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, NewCacheError("failed to get key", true).WithError(err)
	}

	if expired {
		_ = c.Delete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

// Set upserts a value with the given TTL, or DefaultTTL when ttl is zero. A
// zero DefaultTTL stores the row without expiry.
func (c *PostgresCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.cfg.DefaultTTL
	}

	var ttlMillis *int64
	if ttl > 0 {
		ms := ttl.Milliseconds()
		ttlMillis = &ms
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP + ($3::bigint * INTERVAL '1 millisecond'))
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, c.table)

	if _, err := c.pool.Exec(ctx, query, key, value, ttlMillis); err != nil {
		return NewCacheError("failed to set key", true).WithError(err)
	}
	return nil
}

// Delete removes a value. Deleting a missing key succeeds.
func (c *PostgresCache) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, c.table)
	if _, err := c.pool.Exec(ctx, query, key); err != nil {
		return NewCacheError("failed to delete key", true).WithError(err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed
func (c *PostgresCache) PurgeExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= CURRENT_TIMESTAMP`, c.table)
	tag, err := c.pool.Exec(ctx, query)
	if err != nil {
		return 0, NewCacheError("failed to purge expired keys", true).WithError(err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database health
func (c *PostgresCache) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return NewCacheError("ping failed", false).WithError(err)
	}
	return nil
}

// Close closes the connection pool
func (c *PostgresCache) Close() error {
	c.pool.Close()
	return nil
}

// Stats returns pool statistics
func (c *PostgresCache) Stats() *pgxpool.Stat {
	return c.pool.Stat()
}
