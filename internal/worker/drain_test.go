package worker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relaybot/internal/queue"
)

func newTestWorker(t *testing.T) (*Worker, *queue.Store) {
	t.Helper()
	store, err := queue.NewStore(queue.DirConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(store, nil, nil), store
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDrainReleasesAutoPlan(t *testing.T) {
	w, store := newTestWorker(t)

	id, err := store.Enqueue(queue.Record{
		Phase:       queue.PhasePlan,
		Intent:      "process.status",
		RequestedBy: "alice",
		RiskTier:    "low",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if got := listDir(t, store.Dirs().Inbox()); len(got) != 0 {
		t.Errorf("inbox not drained: %v", got)
	}
	ready := listDir(t, store.Dirs().Ready())
	if len(ready) != 1 || ready[0] != id+".json" {
		t.Errorf("ready = %v, want [%s.json]", ready, id)
	}
}

func TestDrainParksApprovalPlan(t *testing.T) {
	w, store := newTestWorker(t)

	id, err := store.Enqueue(queue.Record{
		Phase:            queue.PhasePlan,
		Intent:           "file.delete",
		RequestedBy:      "alice",
		RiskTier:         "critical",
		RequiresApproval: true,
		RequiredFlags:    []string{"confirm-delete"},
		Payload:          map[string]any{"capability": "file", "action": "delete", "paths": []string{"/tmp/x"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if got := listDir(t, store.Dirs().Inbox()); len(got) != 0 {
		t.Errorf("inbox not drained: %v", got)
	}
	if got := listDir(t, store.Dirs().Ready()); len(got) != 0 {
		t.Errorf("approval plan released without approval: %v", got)
	}

	pending, err := store.ReadPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	p := pending[0]
	if p.RequestID != id || p.Capability != "file" || p.Action != "delete" {
		t.Errorf("pending = %+v", p)
	}
	if !strings.HasPrefix(p.Token, "apv-") {
		t.Errorf("token = %q", p.Token)
	}
	if len(p.RequiredFlags) != 1 || p.RequiredFlags[0] != "confirm-delete" {
		t.Errorf("flags = %v", p.RequiredFlags)
	}
}

func TestDrainExecuteConsumesToken(t *testing.T) {
	w, store := newTestWorker(t)

	// Park a plan first.
	if _, err := store.Enqueue(queue.Record{
		Phase:            queue.PhasePlan,
		Intent:           "process.restart",
		RequestedBy:      "alice",
		RequiresApproval: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(); err != nil {
		t.Fatal(err)
	}
	pending, _ := store.ReadPending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d", len(pending))
	}
	token := pending[0].Token

	execID, err := store.Enqueue(queue.Record{
		Phase:       queue.PhaseExecute,
		Intent:      "approval.approve",
		RequestedBy: "alice",
		Payload:     map[string]any{"token": token, "decision": "approve"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(); err != nil {
		t.Fatal(err)
	}

	// Token consumed, execute record released for the executor.
	if remaining, _ := store.ReadPending(); len(remaining) != 0 {
		t.Errorf("pending not consumed: %v", remaining)
	}
	ready := listDir(t, store.Dirs().Ready())
	found := false
	for _, name := range ready {
		if name == execID+".json" {
			found = true
		}
	}
	if !found {
		t.Errorf("execute not in ready/: %v", ready)
	}
}

func TestDrainDeniedExecuteArchives(t *testing.T) {
	w, store := newTestWorker(t)

	if _, err := store.Enqueue(queue.Record{
		Phase:            queue.PhasePlan,
		Intent:           "exec.run",
		RequestedBy:      "alice",
		RequiresApproval: true,
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(); err != nil {
		t.Fatal(err)
	}
	pending, _ := store.ReadPending()
	token := pending[0].Token

	execID, err := store.Enqueue(queue.Record{
		Phase:       queue.PhaseExecute,
		Intent:      "approval.deny",
		RequestedBy: "alice",
		Payload:     map[string]any{"token": token, "decision": "deny"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Drain(); err != nil {
		t.Fatal(err)
	}

	if got := listDir(t, store.Dirs().Ready()); len(got) != 0 {
		t.Errorf("denied work reached ready/: %v", got)
	}
	done := listDir(t, store.Dirs().Done())
	foundExec := false
	for _, name := range done {
		if name == execID+".json" {
			foundExec = true
		}
	}
	if !foundExec {
		t.Errorf("denied execute not archived: %v", done)
	}
}

func TestDrainQuarantinesUnparseableRecord(t *testing.T) {
	w, store := newTestWorker(t)

	bad := filepath.Join(store.Dirs().Inbox(), "plan-broken00.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := w.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if got := listDir(t, store.Dirs().Inbox()); len(got) != 0 {
		t.Errorf("broken record stuck in inbox: %v", got)
	}
	done := listDir(t, store.Dirs().Done())
	if len(done) != 1 || done[0] != "plan-broken00.json.rejected" {
		t.Errorf("done = %v, want quarantined record", done)
	}
}

func TestDrainIgnoresTmpFiles(t *testing.T) {
	w, store := newTestWorker(t)

	partial := filepath.Join(store.Dirs().Inbox(), "plan-part0000.json.tmp")
	if err := os.WriteFile(partial, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := w.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := listDir(t, store.Dirs().Inbox()); len(got) != 1 {
		t.Errorf("partial write touched: %v", got)
	}
}
