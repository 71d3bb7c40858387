package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DirConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"plan-a1b2c3d4", true},
		{"apv-12345678", true},
		{"under_score", true},
		{"", false},
		{"../escape", false},
		{"has space", false},
		{"has/slash", false},
		{"dot.dot", false},
	}
	for _, tt := range tests {
		err := ValidateID(tt.id)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateID(%q) err=%v, want ok=%v", tt.id, err, tt.ok)
		}
	}
}

func TestNewRequestID(t *testing.T) {
	plan := NewRequestID(PhasePlan)
	if !strings.HasPrefix(plan, "plan-") || len(plan) != len("plan-")+8 {
		t.Errorf("plan id = %q", plan)
	}
	exec := NewRequestID(PhaseExecute)
	if !strings.HasPrefix(exec, "exec-") {
		t.Errorf("exec id = %q", exec)
	}
	if NewRequestID(PhasePlan) == NewRequestID(PhasePlan) {
		t.Error("ids not unique")
	}
}

func TestEnqueueWritesInboxFile(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Enqueue(Record{
		Phase:       PhasePlan,
		Intent:      "process.restart",
		RequestedBy: "alice",
		Payload:     map[string]any{"targets": []string{"hub"}},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	path := filepath.Join(s.Dirs().Inbox(), id+".json")
	rec, err := ReadRecord(path)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec.RequestID != id || rec.Intent != "process.restart" || rec.RequestedBy != "alice" {
		t.Errorf("record = %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("created_at not assigned")
	}

	// No partial .tmp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("tmp file remains: %v", err)
	}
}

func TestEnqueueRejectsInvalidRecord(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		rec  Record
	}{
		{"missing intent", Record{Phase: PhasePlan, RequestedBy: "a"}},
		{"missing requester", Record{Phase: PhasePlan, Intent: "x"}},
		{"bad phase", Record{Phase: "later", Intent: "x", RequestedBy: "a"}},
		{"unsafe id", Record{RequestID: "../../etc", Phase: PhasePlan, Intent: "x", RequestedBy: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Enqueue(tt.rec); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadRecordRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.json")
	if err := os.WriteFile(real, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.json")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := ReadRecord(link); err == nil || !strings.Contains(err.Error(), "symlink") {
		t.Errorf("err = %v, want symlink rejection", err)
	}
}
