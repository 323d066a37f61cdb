// Package store handles SQLite persistence of dashboard preferences.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/snakestats/internal/selection"
	"github.com/verte-zerg/snakestats/internal/theme"

	_ "modernc.org/sqlite" // SQLite driver.
)

const (
	routeKey = "route"
	themeKey = "theme"
)

// Store wraps SQLite access for persisted preferences.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the stored value for key. The boolean is false when the key
// has never been set.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write preference %q: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM preferences WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid updated_at for %q: %w", key, err)
	}
	return ts, true, nil
}

// RouteStore persists the selection as its route path.
type RouteStore struct {
	store       *Store
	maxPackages int
}

// NewRouteStore returns a selection.Store backed by s. Loaded routes are
// capped at maxPackages.
func NewRouteStore(s *Store, maxPackages int) *RouteStore {
	return &RouteStore{store: s, maxPackages: maxPackages}
}

var _ selection.Store = (*RouteStore)(nil)

// Load decodes the saved route. No saved route is the empty selection.
func (r *RouteStore) Load(ctx context.Context) (selection.Set, error) {
	path, ok, err := r.store.Get(ctx, routeKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return selection.Set{}, nil
	}
	return selection.ParsePath(path, r.maxPackages), nil
}

// Save encodes the selection as a route and stores it.
func (r *RouteStore) Save(ctx context.Context, set selection.Set) error {
	return r.store.Set(ctx, routeKey, selection.Path(set))
}

// ThemeStore persists the theme preference.
type ThemeStore struct {
	store *Store
}

// NewThemeStore returns a theme.Store backed by s.
func NewThemeStore(s *Store) *ThemeStore {
	return &ThemeStore{store: s}
}

var _ theme.Store = (*ThemeStore)(nil)

func (t *ThemeStore) Load(ctx context.Context) (theme.Preference, error) {
	value, _, err := t.store.Get(ctx, themeKey)
	if err != nil {
		return "", err
	}
	return theme.Preference(value), nil
}

func (t *ThemeStore) Save(ctx context.Context, p theme.Preference) error {
	return t.store.Set(ctx, themeKey, string(p))
}

// UpdatedAt returns when the preference was last saved. The boolean is false
// when none has been saved.
func (t *ThemeStore) UpdatedAt(ctx context.Context) (time.Time, bool, error) {
	return t.store.UpdatedAt(ctx, themeKey)
}
