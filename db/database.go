package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Database owns the application's connection after migrations ran.
//
//	database, err := db.Open(cfg.DBPath)
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	repo := db.NewRepository(database)
type Database struct {
	mu     sync.RWMutex
	conn   *sql.DB
	path   string
	closed bool
}

// Open creates parent directories, migrates and connects.
func Open(path string) (*Database, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	if err := MigrateUp(path); err != nil {
		return nil, err
	}

	conn, err := NewSQLiteConnection(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, path: path}, nil
}

// DB exposes the connection for queries.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn
}

// Path is the database file.
func (d *Database) Path() string {
	return d.path
}

// Close is idempotent.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}
