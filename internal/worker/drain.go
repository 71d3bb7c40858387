// Package worker drains the queue inbox: approval-requiring PLAN records
// park under pending/, everything releasable moves to ready/ for the
// external executor. The dispatcher calls Drain inline (best-effort); the
// daemon runs it continuously behind an fsnotify watcher.
package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"relaybot/internal/audit"
	"relaybot/internal/queue"
)

// Worker sorts inbox records into pending and ready.
type Worker struct {
	store *queue.Store
	log   *zap.Logger
	audit *audit.Log
}

// New creates a worker. A nil logger is replaced with a no-op logger;
// the audit log is optional.
func New(store *queue.Store, log *zap.Logger, auditLog *audit.Log) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{store: store, log: log, audit: auditLog}
}

// Drain processes every record currently in the inbox, oldest first.
// Per-record failures are logged and skipped; Drain only errors when the
// inbox itself is unreadable.
func (w *Worker) Drain() error {
	inbox := w.store.Dirs().Inbox()
	entries, err := os.ReadDir(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read inbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isRecordFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(inbox, name)
		if err := w.processOne(path); err != nil {
			w.log.Warn("record skipped", zap.String("file", name), zap.Error(err))
		}
	}
	return nil
}

// processOne handles a single inbox file through its lifecycle.
func (w *Worker) processOne(path string) error {
	rec, err := queue.ReadRecord(path)
	if err != nil {
		// Unparseable records cannot be retried; quarantine in done/.
		dest := filepath.Join(w.store.Dirs().Done(), filepath.Base(path)+".rejected")
		_ = queue.MoveFile(path, dest)
		return err
	}

	switch rec.Phase {
	case queue.PhasePlan:
		return w.processPlan(path, rec)
	case queue.PhaseExecute:
		return w.processExecute(path, rec)
	default:
		return fmt.Errorf("unsupported phase %q", rec.Phase)
	}
}

// processPlan parks approval-requiring plans and releases the rest.
func (w *Worker) processPlan(path string, rec *queue.Record) error {
	if !rec.RequiresApproval {
		dest := filepath.Join(w.store.Dirs().Ready(), filepath.Base(path))
		if err := queue.MoveFile(path, dest); err != nil {
			return fmt.Errorf("release plan %s: %w", rec.RequestID, err)
		}
		w.log.Info("plan released", zap.String("request_id", rec.RequestID), zap.String("intent", rec.Intent))
		w.record(audit.Entry{Event: audit.EventPlanReleased, RequestID: rec.RequestID, Detail: rec.Intent})
		return nil
	}

	pending := queue.Pending{
		Token:            queue.NewToken(),
		RequestID:        rec.RequestID,
		RequestedBy:      rec.RequestedBy,
		Capability:       payloadString(rec.Payload, "capability"),
		Action:           payloadString(rec.Payload, "action"),
		RiskTier:         rec.RiskTier,
		RequiresApproval: true,
		RequiredFlags:    rec.RequiredFlags,
		Payload:          rec.Payload,
		CreatedAt:        rec.CreatedAt,
	}
	if err := w.store.WritePending(pending); err != nil {
		return fmt.Errorf("park plan %s: %w", rec.RequestID, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("consume inbox %s: %w", rec.RequestID, err)
	}

	w.log.Info("plan parked for approval",
		zap.String("request_id", rec.RequestID),
		zap.String("token", pending.Token),
		zap.String("risk_tier", rec.RiskTier))
	w.record(audit.Entry{Event: audit.EventPlanParked, RequestID: rec.RequestID, Detail: "token=" + pending.Token})
	return nil
}

// processExecute consumes the referenced pending token and hands approved
// work to the executor. Denied work is archived, not executed.
func (w *Worker) processExecute(path string, rec *queue.Record) error {
	token := payloadString(rec.Payload, "token")
	decision := payloadString(rec.Payload, "decision")

	if token != "" {
		consumed, err := w.store.ConsumePending(token, decision)
		if err != nil {
			return fmt.Errorf("consume pending %s: %w", token, err)
		}
		if consumed == nil {
			w.log.Warn("execute references unknown token; already consumed?",
				zap.String("request_id", rec.RequestID), zap.String("token", token))
		}
	}

	destDir := w.store.Dirs().Ready()
	if decision == "deny" {
		destDir = w.store.Dirs().Done()
	}
	if err := queue.MoveFile(path, filepath.Join(destDir, filepath.Base(path))); err != nil {
		return fmt.Errorf("move execute %s: %w", rec.RequestID, err)
	}

	w.log.Info("execute processed",
		zap.String("request_id", rec.RequestID),
		zap.String("decision", decision),
		zap.String("token", token))
	w.record(audit.Entry{Event: audit.EventExecQueued, RequestID: rec.RequestID, Decision: decision})
	return nil
}

func (w *Worker) record(entry audit.Entry) {
	if w.audit == nil {
		return
	}
	_ = w.audit.Record(entry)
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

// isRecordFile filters .json files, excluding .tmp partial writes.
func isRecordFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".tmp")
}
