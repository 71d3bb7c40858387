// Package hint persists the per-requester approval hint: a pointer to the
// requester's most recent pending approval, so a bare "approve" needs no
// token. One row per owner; writing overwrites, last writer wins.
package hint

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Hint points a requester at their most recent pending request.
type Hint struct {
	OwnerKey   string
	RequestID  string
	Capability string
	Action     string
	UpdatedAt  time.Time
}

// Store is a small durable owner→hint map backed by sqlite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS hints (
	owner_key  TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	capability TEXT NOT NULL DEFAULT '',
	action     TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);`

// DefaultPath returns the default hint database location under stateDir.
func DefaultPath(stateDir string) string {
	return filepath.Join(stateDir, "hints.db")
}

// Open opens (or creates) the hint database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("hint: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("hint: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("hint: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Read returns the owner's hint, or nil when none exists.
func (s *Store) Read(ownerKey string) (*Hint, error) {
	row := s.db.QueryRow(
		`SELECT owner_key, request_id, capability, action, updated_at FROM hints WHERE owner_key = ?`,
		ownerKey)

	var h Hint
	var updated string
	err := row.Scan(&h.OwnerKey, &h.RequestID, &h.Capability, &h.Action, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hint: read %s: %w", ownerKey, err)
	}
	if t, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
		h.UpdatedAt = t
	}
	return &h, nil
}

// Write stores the owner's hint, replacing any prior one.
func (s *Store) Write(h Hint) error {
	if h.OwnerKey == "" {
		return fmt.Errorf("hint: owner key must not be empty")
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO hints (owner_key, request_id, capability, action, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_key) DO UPDATE SET
			request_id = excluded.request_id,
			capability = excluded.capability,
			action     = excluded.action,
			updated_at = excluded.updated_at`,
		h.OwnerKey, h.RequestID, h.Capability, h.Action,
		h.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("hint: write %s: %w", h.OwnerKey, err)
	}
	return nil
}

// Clear removes the owner's hint. Clearing a missing hint is a no-op.
func (s *Store) Clear(ownerKey string) error {
	if _, err := s.db.Exec(`DELETE FROM hints WHERE owner_key = ?`, ownerKey); err != nil {
		return fmt.Errorf("hint: clear %s: %w", ownerKey, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
