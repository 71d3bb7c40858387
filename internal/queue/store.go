package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store appends records to the inbox and manages the pending set.
type Store struct {
	dirs DirConfig
	mu   sync.Mutex
}

// NewStore creates a Store and its directory layout.
func NewStore(dirs DirConfig) (*Store, error) {
	if err := EnsureDirs(dirs); err != nil {
		return nil, fmt.Errorf("cannot create queue directories: %w", err)
	}
	return &Store{dirs: dirs}, nil
}

// Dirs returns the store's directory layout.
func (s *Store) Dirs() DirConfig { return s.dirs }

// NewRequestID mints a phase-prefixed short request id.
func NewRequestID(phase Phase) string {
	prefix := "plan"
	if phase == PhaseExecute {
		prefix = "exec"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// Enqueue appends a record to the inbox and returns its request id.
// Fire-and-forget: the store never waits for the record to be consumed.
func (s *Store) Enqueue(rec Record) (string, error) {
	if rec.RequestID == "" {
		rec.RequestID = NewRequestID(rec.Phase)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("invalid record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dirs.Inbox(), rec.RequestID+".json")
	if err := writeAtomic(path, rec); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", rec.RequestID, err)
	}
	return rec.RequestID, nil
}

// writeAtomic marshals v and writes it via a .tmp rename so watchers
// never observe a partial file.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
