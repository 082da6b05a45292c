// Package db provides database connection handling for the score store.
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Pool sizing for a single API instance. The leaderboard workload is
// short point queries, so a small pool is enough.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// Open opens a Postgres connection pool with the standard settings.
// The caller is responsible for closing it.
func Open(databaseURL string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)
	pool.SetConnMaxLifetime(connMaxLifetime)
	return pool, nil
}
