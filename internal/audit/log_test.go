package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("malformed line: %v", err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestRecordChainsHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	events := []Entry{
		{Event: EventDispatch, Route: "ops", Requester: "alice"},
		{Event: EventPlanQueued, RequestID: "plan-11112222"},
		{Event: EventPlanParked, RequestID: "plan-11112222", Detail: "token=apv-aaaa1111"},
	}
	for _, e := range events {
		if err := log.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].PrevHash != GenesisHash {
		t.Errorf("first prev_hash = %q, want genesis", entries[0].PrevHash)
	}
	for _, e := range entries {
		if e.Timestamp == "" {
			t.Error("timestamp not assigned")
		}
	}

	result, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid || result.Entries != 3 {
		t.Errorf("verify = %+v", result)
	}
}

func TestOpenResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(Entry{Event: EventDispatch}); err != nil {
		t.Fatal(err)
	}
	log.Close()

	// Reopen and append; the chain must stay intact across sessions.
	log, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(Entry{Event: EventExecQueued}); err != nil {
		t.Fatal(err)
	}
	log.Close()

	result, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Valid || result.Entries != 2 {
		t.Errorf("verify = %+v", result)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := log.Record(Entry{Event: EventDispatch, Detail: "entry"}); err != nil {
			t.Fatal(err)
		}
	}
	log.Close()

	// Rewrite the middle entry.
	entries := readEntries(t, path)
	entries[1].Detail = "edited after the fact"

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := json.NewEncoder(f)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	result, err := Verify(path)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Valid {
		t.Fatal("tampered log verified as valid")
	}
	if result.BrokenAt != 3 {
		t.Errorf("broken at line %d, want 3", result.BrokenAt)
	}
}

func TestHashLineFormat(t *testing.T) {
	h := HashLine([]byte("x"))
	if len(h) != len("sha256:")+64 || h[:7] != "sha256:" {
		t.Errorf("hash = %q", h)
	}
}
