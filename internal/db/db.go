// Package db persists the tag cache and the play log in PostgreSQL.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

const (
	applicationName = "stagehand"
	maxConns        = 4
	// connectAttempts bounds how long startup waits for a database that is
	// still coming up.
	connectAttempts = 5
)

// DB is a handle on the stagehand schema.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and waits for the server to answer a ping.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(pool.Ping(ctx))
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases every connection.
func (db *DB) Close() { db.pool.Close() }

// Tags is the tag cache table.
func (db *DB) Tags() *TagRepository { return &TagRepository{pool: db.pool} }

// Plays is the play log table.
func (db *DB) Plays() *PlayRepository { return &PlayRepository{pool: db.pool} }
