package hint

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "hints.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReadAbsentHint(t *testing.T) {
	s := openTestStore(t)
	h, err := s.Read("nobody")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h != nil {
		t.Errorf("hint = %+v, want nil", h)
	}
}

func TestWriteReadClear(t *testing.T) {
	s := openTestStore(t)

	if err := s.Write(Hint{OwnerKey: "alice", RequestID: "plan-11112222", Capability: "file", Action: "delete"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	h, err := s.Read("alice")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h == nil || h.RequestID != "plan-11112222" || h.Capability != "file" || h.Action != "delete" {
		t.Fatalf("hint = %+v", h)
	}
	if h.UpdatedAt.IsZero() {
		t.Error("updated_at not persisted")
	}

	if err := s.Clear("alice"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	h, err = s.Read("alice")
	if err != nil || h != nil {
		t.Errorf("after clear: hint = %+v err = %v", h, err)
	}

	// Clearing again is a no-op.
	if err := s.Clear("alice"); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestWriteOverwritesLastWriterWins(t *testing.T) {
	s := openTestStore(t)

	if err := s.Write(Hint{OwnerKey: "alice", RequestID: "plan-first000"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(Hint{OwnerKey: "alice", RequestID: "plan-second00", Capability: "exec", Action: "run"}); err != nil {
		t.Fatal(err)
	}

	h, err := s.Read("alice")
	if err != nil || h == nil {
		t.Fatalf("Read: %+v %v", h, err)
	}
	if h.RequestID != "plan-second00" || h.Action != "run" {
		t.Errorf("hint = %+v, want second write", h)
	}
}

func TestHintsAreKeyedPerOwner(t *testing.T) {
	s := openTestStore(t)

	if err := s.Write(Hint{OwnerKey: "alice", RequestID: "plan-aaaa0000"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(Hint{OwnerKey: "bob", RequestID: "plan-bbbb0000"}); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Read("alice")
	b, _ := s.Read("bob")
	if a == nil || b == nil || a.RequestID == b.RequestID {
		t.Errorf("alice = %+v bob = %+v", a, b)
	}
}

func TestWriteRequiresOwner(t *testing.T) {
	s := openTestStore(t)
	if err := s.Write(Hint{RequestID: "plan-xxxx0000"}); err == nil {
		t.Error("expected error for empty owner key")
	}
}
