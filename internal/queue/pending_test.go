package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPendingLifecycle(t *testing.T) {
	s := newTestStore(t)

	p := Pending{
		Token:            "apv-aaaa1111",
		RequestID:        "plan-bbbb2222",
		RequestedBy:      "alice",
		Capability:       "process",
		Action:           "restart",
		RiskTier:         "high",
		RequiresApproval: true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.WritePending(p); err != nil {
		t.Fatalf("WritePending: %v", err)
	}

	got, err := s.GetPending("apv-aaaa1111")
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if got == nil || got.RequestID != "plan-bbbb2222" || got.Capability != "process" {
		t.Fatalf("pending = %+v", got)
	}

	consumed, err := s.ConsumePending("apv-aaaa1111", "approve")
	if err != nil {
		t.Fatalf("ConsumePending: %v", err)
	}
	if consumed == nil || consumed.Token != "apv-aaaa1111" {
		t.Fatalf("consumed = %+v", consumed)
	}

	// The token is gone: a second consume finds nothing, without error.
	again, err := s.ConsumePending("apv-aaaa1111", "approve")
	if err != nil {
		t.Fatalf("second ConsumePending: %v", err)
	}
	if again != nil {
		t.Errorf("token consumed twice")
	}

	// The resolution is archived in done/ with the decision attached.
	data, err := os.ReadFile(filepath.Join(s.Dirs().Done(), "apv-aaaa1111.json"))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var resolved struct {
		Decision   string    `json:"decision"`
		ResolvedAt time.Time `json:"resolved_at"`
	}
	if err := json.Unmarshal(data, &resolved); err != nil {
		t.Fatal(err)
	}
	if resolved.Decision != "approve" || resolved.ResolvedAt.IsZero() {
		t.Errorf("archive = %+v", resolved)
	}
}

func TestGetPendingUnknownToken(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetPending("apv-nothere1")
	if err != nil {
		t.Fatalf("GetPending: %v", err)
	}
	if p != nil {
		t.Errorf("pending = %+v, want nil", p)
	}
}

func TestWritePendingIdempotent(t *testing.T) {
	s := newTestStore(t)
	p := Pending{Token: "apv-cccc3333", RequestID: "plan-dddd4444", CreatedAt: time.Now().UTC()}
	if err := s.WritePending(p); err != nil {
		t.Fatal(err)
	}

	p.RequestID = "plan-overwrite"
	if err := s.WritePending(p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetPending("apv-cccc3333")
	if err != nil || got == nil {
		t.Fatalf("GetPending: %v %v", got, err)
	}
	if got.RequestID != "plan-dddd4444" {
		t.Errorf("first write overwritten: %q", got.RequestID)
	}
}

func TestWritePendingRejectsTraversalToken(t *testing.T) {
	s := newTestStore(t)
	err := s.WritePending(Pending{Token: "../escape"})
	if err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestReadPendingNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	for i, token := range []string{"apv-old00000", "apv-mid00000", "apv-new00000"} {
		p := Pending{Token: token, RequestID: "plan-" + token[4:], CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.WritePending(p); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := s.ReadPending()
	if err != nil {
		t.Fatalf("ReadPending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len = %d, want 3", len(pending))
	}
	if pending[0].Token != "apv-new00000" || pending[2].Token != "apv-old00000" {
		t.Errorf("order = %s, %s, %s", pending[0].Token, pending[1].Token, pending[2].Token)
	}
}
