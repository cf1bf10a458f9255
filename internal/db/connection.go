package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// dbPool is the singleton database connection pool
	dbPool *sql.DB
	// dbPath is the file the singleton pool opens
	dbPath string
	// dbOnce ensures the pool is created only once
	dbOnce sync.Once
	// dbErr stores any error from pool creation
	dbErr error
	mu    sync.Mutex
)

// SetPath sets the database file GetDB opens. It must be called before the
// first GetDB; later calls have no effect until CloseDB.
func SetPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	dbPath = path
}

// GetDB returns the singleton database connection pool.
// It creates the pool on first call and reuses it for all subsequent calls.
func GetDB() (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()
	dbOnce.Do(func() {
		if dbPath == "" {
			dbErr = fmt.Errorf("database path not set")
			return
		}
		dbPool, dbErr = Open(dbPath)
	})

	if dbErr != nil {
		return nil, dbErr
	}
	return dbPool, nil
}

// Open opens a connection pool on the SQLite file at path with WAL mode and
// a busy timeout, and verifies it is reachable
func Open(path string) (*sql.DB, error) {
	// Open connection pool (doesn't actually connect yet)
	pool, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool settings
	pool.SetMaxOpenConns(8)
	pool.SetMaxIdleConns(2)
	pool.SetConnMaxLifetime(0) // Connections don't expire (SQLite is local)

	if _, err := pool.Exec("PRAGMA journal_mode=WAL"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Test the connection to ensure database is accessible
	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// CloseDB closes the singleton database connection pool.
// This should only be called when the application is shutting down.
func CloseDB() error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	if dbPool != nil {
		err = dbPool.Close()
	}
	dbPool = nil
	dbErr = nil
	// Reset the once so a new pool can be created
	dbOnce = sync.Once{}
	return err
}
