package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/doh/internal/prefs"
)

const (
	getPreferenceSQL = `SELECT value FROM preferences WHERE key = $1`

	setPreferenceSQL = `INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	// An empty stored value counts as absent, matching prefs.MemoryStore.
	// Otherwise the update is a no-op so RETURNING yields the existing row.
	setPreferenceIfAbsentSQL = `INSERT INTO preferences (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = CASE WHEN preferences.value = '' THEN EXCLUDED.value ELSE preferences.value END,
			updated_at = CASE WHEN preferences.value = '' THEN now() ELSE preferences.updated_at END
		RETURNING value`

	deletePreferenceSQL = `DELETE FROM preferences WHERE key = $1`
)

var _ prefs.Store = (*PreferenceStore)(nil)

// PreferenceStore implements prefs.Store backed by PostgreSQL.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPreferenceStore returns a PreferenceStore that uses the given pool.
func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

// Get returns the value stored under key.
func (s *PreferenceStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, getPreferenceSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, setPreferenceSQL, key, value); err != nil {
		return fmt.Errorf("setting preference %q: %w", key, err)
	}
	return nil
}

// SetIfAbsent inserts value under key unless a non-empty value already
// exists, and returns the value that ends up stored. It is atomic across
// connections.
func (s *PreferenceStore) SetIfAbsent(ctx context.Context, key, value string) (string, error) {
	var stored string
	if err := s.pool.QueryRow(ctx, setPreferenceIfAbsentSQL, key, value).Scan(&stored); err != nil {
		return "", fmt.Errorf("setting preference %q if absent: %w", key, err)
	}
	return stored, nil
}

// Delete removes key.
func (s *PreferenceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deletePreferenceSQL, key); err != nil {
		return fmt.Errorf("deleting preference %q: %w", key, err)
	}
	return nil
}
