// Package postgres wraps a pgx pool with the helpers the stores share.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig tunes the connection pool of one component.
type PoolConfig struct {
	MinConns  int32
	MaxConns  int32
	Component string
}

// DefaultPoolConfig mirrors the indexer's historical pool sizing.
func DefaultPoolConfig(component string) PoolConfig {
	return PoolConfig{MinConns: 2, MaxConns: 20, Component: component}
}

// Client is a thin wrapper over pgxpool with logging.
type Client struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
}

// New opens a pool for url and pings it.
func New(ctx context.Context, logger *zap.Logger, url string, poolConfig *PoolConfig) (Client, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return Client{}, fmt.Errorf("parse config: %w", err)
	}
	if poolConfig != nil {
		if poolConfig.MinConns > 0 {
			config.MinConns = poolConfig.MinConns
		}
		if poolConfig.MaxConns > 0 {
			config.MaxConns = poolConfig.MaxConns
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Client{}, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return Client{}, fmt.Errorf("ping: %w", err)
	}

	logger.Debug("postgres pool ready",
		zap.Int32("min_conns", config.MinConns),
		zap.Int32("max_conns", config.MaxConns))

	return Client{Pool: pool, Logger: logger}, nil
}

// Exec runs a statement and discards the command tag.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.Pool.Exec(ctx, query, args...)
	return err
}

func (c *Client) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return c.Pool.Query(ctx, query, args...)
}

func (c *Client) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return c.Pool.QueryRow(ctx, query, args...)
}

// BeginFunc runs fn in a transaction, committing on nil and rolling back otherwise.
func (c *Client) BeginFunc(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, c.Pool, fn)
}

// CreateSchemaIfNotExists creates a schema by (sanitized) name.
func (c *Client) CreateSchemaIfNotExists(ctx context.Context, schema string) error {
	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{SanitizeName(schema)}.Sanitize())
	return c.Exec(ctx, query)
}

// Close releases the pool.
func (c *Client) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// IsNoRows reports whether err means a query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeName lower-cases a name and replaces anything outside [a-z0-9_].
func SanitizeName(name string) string {
	return unsafeName.ReplaceAllString(strings.ToLower(name), "_")
}
