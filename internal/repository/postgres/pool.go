package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgBouncerPort is Supabase's transaction pooler
const pgBouncerPort = 6543

// PoolOptions sizes the connection pool. Zero fields keep pgxpool defaults.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// DefaultPoolOptions is what the server runs with
var DefaultPoolOptions = PoolOptions{MaxConns: 25, MinConns: 5}

// CreateConnectionPool opens and pings a pool. Connections through the
// transaction pooler cannot hold prepared statements, so they fall back to
// cache_describe unless the URL already chose an exec mode.
func CreateConnectionPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	conn := cfg.ConnConfig
	if conn.Port == pgBouncerPort && conn.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		conn.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("using cache_describe exec mode behind pgbouncer", "port", conn.Port)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
