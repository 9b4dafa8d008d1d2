/**
 * Database Pool Management for dbscope
 *
 * Features:
 * - database/sql pool wrapped with sqlx
 * - SQLite by default, any registered database/sql driver by name
 * - Pool sizing and idle time configuration
 * - Health check and pool statistics
 *
 * Author: dbscope Team
 * Update History:
 * - 2025-02-04: Pool wrapper split from connection handles
 */

package sqlxconn

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// DB represents the pool that Conn handles are checked out from.
type DB struct {
	*sqlx.DB
	driver         string
	connectTimeout time.Duration
}

// DBConfig holds database configuration.
type DBConfig struct {
	Driver         string
	DSN            string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
}

// DefaultConfig returns default database configuration.
func DefaultConfig() DBConfig {
	return DBConfig{
		Driver:         "sqlite3",
		DSN:            "dbscope.db",
		MaxOpenConns:   25,
		MaxIdleConns:   5,
		MaxIdleTime:    5 * time.Minute,
		ConnectTimeout: 5 * time.Second,
	}
}

// Open creates the pool and verifies it with a ping.
func Open(cfg DBConfig) (*DB, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite3"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	dsn := cfg.DSN
	if cfg.Driver == "sqlite3" && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errors.FromDriver("open pool", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.FromDriver("ping", err), "failed to ping database")
	}

	return &DB{
		DB:             db,
		driver:         cfg.Driver,
		connectTimeout: cfg.ConnectTimeout,
	}, nil
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// NewConnection returns a closed connection handle backed by this pool.
func (db *DB) NewConnection() *Conn {
	return &Conn{db: db}
}

// HealthCheck performs a database health check.
func (db *DB) HealthCheck(ctx context.Context) error {
	// Check connection
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(errors.FromDriver("ping", err), "ping failed")
	}

	// Check basic query
	var result int
	if err := db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return errors.Wrap(errors.FromDriver("query", err), "test query failed")
	}

	return nil
}
