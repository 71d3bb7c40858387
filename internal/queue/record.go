package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Phase is the workflow half a record belongs to.
type Phase string

const (
	PhasePlan    Phase = "plan"
	PhaseExecute Phase = "execute"
)

// validID matches alphanumeric characters, dashes, and underscores only.
var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID rejects ids that could cause path traversal.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("id must not contain '..'")
	}
	if !validID.MatchString(id) {
		return fmt.Errorf("id contains invalid characters: only alphanumeric, dash, and underscore allowed")
	}
	return nil
}

// Record is one durable queue entry. RequestID is caller-assigned per
// call, so redundant enqueues produce distinct records (at-least-once).
type Record struct {
	RequestID        string            `json:"request_id"`
	Phase            Phase             `json:"phase"`
	Intent           string            `json:"intent"`
	RequestedBy      string            `json:"requested_by"`
	Transport        map[string]string `json:"transport_context,omitempty"`
	Payload          map[string]any    `json:"payload"`
	RiskTier         string            `json:"risk_tier,omitempty"`
	RequiresApproval bool              `json:"requires_approval"`
	// RequiredFlags are carried from the capability table so approval
	// resolution can merge them with explicitly supplied flags.
	RequiredFlags []string  `json:"required_flags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReadRecord reads and validates one record file. Symlinks are rejected
// before reading so an inbox entry cannot alias an arbitrary path.
func ReadRecord(path string) (*Record, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat record: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("rejected symlink: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid record JSON: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks that a record has all required fields and safe values.
func (r *Record) Validate() error {
	if err := ValidateID(r.RequestID); err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}
	switch r.Phase {
	case PhasePlan, PhaseExecute:
	default:
		return fmt.Errorf("invalid phase %q: must be one of: plan, execute", r.Phase)
	}
	if r.Intent == "" {
		return fmt.Errorf("record intent is required")
	}
	if r.RequestedBy == "" {
		return fmt.Errorf("record requested_by is required")
	}
	return nil
}
