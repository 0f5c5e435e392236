package db

import (
	"path/filepath"
	"testing"
)

func TestMigrateUpIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := MigrateUp(path); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(path); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}

	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 1 || dirty {
		t.Errorf("SchemaVersion() = %d dirty=%v, want 1 clean", v, dirty)
	}
}

func TestMigrateDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := MigrateUp(path); err != nil {
		t.Fatal(err)
	}
	if err := MigrateDown(path); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	v, _, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 0 {
		t.Errorf("SchemaVersion() = %d, want 0", v)
	}
}

func TestNewSQLiteConnectionWAL(t *testing.T) {
	conn, err := NewSQLiteConnection(DefaultConnectionConfig(filepath.Join(t.TempDir(), "w.db")))
	if err != nil {
		t.Fatalf("NewSQLiteConnection() error = %v", err)
	}
	defer conn.Close()

	var mode string
	if err := conn.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %s, want wal", mode)
	}
}

func TestNewSQLiteConnectionRequiresPath(t *testing.T) {
	if _, err := NewSQLiteConnection(ConnectionConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDatabaseCloseIdempotent(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "c.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
