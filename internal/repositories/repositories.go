// package repositories provides the SQLite persistence for client-local state.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/aerox/internal/shared"
)

// KeyValueRepository stores string values under string keys in the kv_store table.
type KeyValueRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewKeyValueRepository creates a new [KeyValueRepository] with the given database connection
func NewKeyValueRepository(db *sql.DB) *KeyValueRepository {
	return &KeyValueRepository{db: db, now: time.Now}
}

// Get returns the value stored under key, or [shared.ErrNotFound].
func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query key %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, key, value, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to store key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *KeyValueRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (r *KeyValueRepository) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, "SELECT updated_at FROM kv_store WHERE key = ?", key).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query key %s: %w", key, err)
	}
	return updatedAt, nil
}
