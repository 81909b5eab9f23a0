package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// migrations are applied in order; PRAGMA user_version records how many ran
var migrations = []string{
	"schema.sql",
}

// Database wraps the SQLite file that stands in for per-browser storage
type Database struct {
	db *sql.DB
}

// NewDatabase opens the visitor store at dbPath and brings its schema up to date
func NewDatabase(dbPath string) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "1")
	params.Set("_busy_timeout", "5000")
	params.Set("_synchronous", "NORMAL")

	db, err := sql.Open("sqlite3", dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks that the database is reachable
func (d *Database) Ping() error {
	return d.db.Ping()
}

// Version reports the number of applied migrations
func (d *Database) Version() (int, error) {
	var v int
	if err := d.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (d *Database) migrate() error {
	current, err := d.Version()
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		script, err := schemaFS.ReadFile(migrations[i])
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", migrations[i], err)
		}

		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(script)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", migrations[i], err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", migrations[i], err)
		}
	}
	return nil
}
