// Package store persists shortcut bindings in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"keycap/internal/domain"
	"keycap/internal/keys"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	ErrUnknownSlot    = errors.New("unknown binding slot")
	ErrInvalidBinding = errors.New("invalid binding")
)

// Store keeps one canonical binding per slot. Slots without a row resolve to
// their default.
type Store struct {
	db       *sql.DB
	defaults map[domain.Slot]string
	now      func() time.Time
}

// Open opens or creates the database at path. Every default must parse as a
// chord; it is stored in canonical form.
func Open(path string, defaults map[domain.Slot]string) (*Store, error) {
	canonical := make(map[domain.Slot]string, len(defaults))
	for slot, binding := range defaults {
		value, err := keys.Canonical(binding)
		if err != nil {
			return nil, fmt.Errorf("%w: default for %s %q: %v", ErrInvalidBinding, slot, binding, err)
		}
		canonical[slot] = value
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, defaults: canonical, now: time.Now}
	if err := store.migrate(); err != nil {
		err = fmt.Errorf("failed to migrate %s: %w", path, err)
		if cerr := db.Close(); cerr != nil {
			return nil, errors.Join(err, fmt.Errorf("close database: %w", cerr))
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
		`CREATE TABLE IF NOT EXISTS bindings (
			slot TEXT PRIMARY KEY,
			binding TEXT NOT NULL,
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

// Get returns the stored binding of slot, or its default.
func (s *Store) Get(ctx context.Context, slot domain.Slot) (string, error) {
	fallback, ok := s.defaults[slot]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}

	var binding string
	err := s.db.QueryRowContext(ctx, `SELECT binding FROM bindings WHERE slot = ?`, string(slot)).Scan(&binding)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fallback, nil
	case err != nil:
		return "", err
	}
	return binding, nil
}

// Set stores binding for slot in canonical form.
func (s *Store) Set(ctx context.Context, slot domain.Slot, binding string) error {
	if _, ok := s.defaults[slot]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	canonical, err := keys.Canonical(binding)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidBinding, binding, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bindings (slot, binding, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET binding = excluded.binding, updated_at = excluded.updated_at`,
		string(slot),
		canonical,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Reset removes the stored binding of slot and returns its default.
func (s *Store) Reset(ctx context.Context, slot domain.Slot) (string, error) {
	fallback, ok := s.defaults[slot]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bindings WHERE slot = ?`, string(slot)); err != nil {
		return "", err
	}
	return fallback, nil
}
