package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pending is a PLAN record parked until someone approves or denies it.
// The token is the record's filename and the handle users approve with.
type Pending struct {
	Token            string         `json:"token"`
	RequestID        string         `json:"request_id"`
	RequestedBy      string         `json:"requested_by"`
	Capability       string         `json:"capability"`
	Action           string         `json:"action"`
	RiskTier         string         `json:"risk_tier"`
	RequiresApproval bool           `json:"requires_approval"`
	RequiredFlags    []string       `json:"required_flags,omitempty"`
	Payload          map[string]any `json:"payload"`
	CreatedAt        time.Time      `json:"created_at"`
}

// NewToken mints a pending approval token.
func NewToken() string {
	return fmt.Sprintf("apv-%s", uuid.NewString()[:8])
}

// WritePending parks a pending approval. No-op if the token already exists.
func (s *Store) WritePending(p Pending) error {
	if err := ValidateID(p.Token); err != nil {
		return fmt.Errorf("invalid pending token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dirs.Pending(), p.Token+".json")
	if _, err := os.Stat(path); err == nil {
		return nil // already parked
	}
	return writeAtomic(path, p)
}

// GetPending returns the pending approval for a token, or (nil, nil) when
// the token is unknown; a consumed token is not an error.
func (s *Store) GetPending(token string) (*Pending, error) {
	if err := ValidateID(token); err != nil {
		return nil, fmt.Errorf("invalid pending token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPending(token)
}

// ReadPending returns a snapshot of all pending approvals, newest first.
func (s *Store) ReadPending() ([]Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dirs.Pending())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pending []Pending
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		token := strings.TrimSuffix(e.Name(), ".json")
		p, err := s.readPending(token)
		if err != nil || p == nil {
			continue
		}
		pending = append(pending, *p)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	return pending, nil
}

// ConsumePending removes a pending approval and archives the resolution
// in done/. Returns the consumed record, or (nil, nil) if the token was
// already consumed: the second APPROVE of the same token finds nothing.
func (s *Store) ConsumePending(token, decision string) (*Pending, error) {
	if err := ValidateID(token); err != nil {
		return nil, fmt.Errorf("invalid pending token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.readPending(token)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	resolved := struct {
		Pending
		Decision   string    `json:"decision"`
		ResolvedAt time.Time `json:"resolved_at"`
	}{*p, decision, time.Now().UTC()}

	donePath := filepath.Join(s.dirs.Done(), token+".json")
	if err := writeAtomic(donePath, resolved); err != nil {
		return nil, fmt.Errorf("archive pending %s: %w", token, err)
	}
	if err := os.Remove(filepath.Join(s.dirs.Pending(), token+".json")); err != nil {
		return nil, fmt.Errorf("consume pending %s: %w", token, err)
	}
	return p, nil
}

func (s *Store) readPending(token string) (*Pending, error) {
	data, err := os.ReadFile(filepath.Join(s.dirs.Pending(), token+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
