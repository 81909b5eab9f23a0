package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/piligrim/bookshelf/internal/wishlist"
)

// Repository handles visitor records and their stored values
type Repository struct {
	db *Database
}

// NewRepository creates a new repository
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// Touch registers a visitor or refreshes its last-seen time
func (r *Repository) Touch(visitorID string) error {
	_, err := r.db.db.Exec(`
		INSERT INTO visitors (id, created_at, last_seen_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		visitorID, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to touch visitor %s: %w", visitorID, err)
	}
	return nil
}

// Get returns the value stored under key, or nil when there is none
func (r *Repository) Get(visitorID, key string) ([]byte, error) {
	var value []byte
	err := r.db.db.QueryRow(
		"SELECT value FROM kv WHERE visitor_id = ? AND key = ?", visitorID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for visitor %s: %w", key, visitorID, err)
	}
	return value, nil
}

// Put stores value under key, registering the visitor if needed
func (r *Repository) Put(visitorID, key string, value []byte) error {
	tx, err := r.db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.Exec(`
		INSERT INTO visitors (id, created_at, last_seen_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		visitorID, now, now); err != nil {
		return fmt.Errorf("failed to register visitor %s: %w", visitorID, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO kv (visitor_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(visitor_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		visitorID, key, value, now); err != nil {
		return fmt.Errorf("failed to write %s for visitor %s: %w", key, visitorID, err)
	}

	return tx.Commit()
}

// Delete removes key for a visitor
func (r *Repository) Delete(visitorID, key string) error {
	if _, err := r.db.db.Exec("DELETE FROM kv WHERE visitor_id = ? AND key = ?", visitorID, key); err != nil {
		return fmt.Errorf("failed to delete %s for visitor %s: %w", key, visitorID, err)
	}
	return nil
}

// PurgeIdle deletes visitors not seen since before, with their values
func (r *Repository) PurgeIdle(before time.Time) (int64, error) {
	res, err := r.db.db.Exec("DELETE FROM visitors WHERE last_seen_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle visitors: %w", err)
	}
	return res.RowsAffected()
}

// visitorKV exposes one key of one visitor as wishlist persistence
type visitorKV struct {
	repo      *Repository
	visitorID string
	key       string
}

// VisitorKV adapts a visitor key to the wishlist persistence port
func VisitorKV(repo *Repository, visitorID, key string) wishlist.Persistence {
	return visitorKV{repo: repo, visitorID: visitorID, key: key}
}

func (kv visitorKV) Load() ([]byte, error) {
	return kv.repo.Get(kv.visitorID, kv.key)
}

func (kv visitorKV) Save(data []byte) error {
	return kv.repo.Put(kv.visitorID, kv.key, data)
}
