package dispatch

import (
	"fmt"
	"strings"

	"relaybot/internal/audit"
	"relaybot/internal/queue"
	"relaybot/internal/route"
)

// resolveApproval maps an APPROVE/DENY command to a concrete pending
// token. Precedence: explicit token, then the requester's stored hint
// (after a best-effort drain so a just-created PLAN is visible), then a
// fuzzy search over the supplied query.
func (d *Dispatcher) resolveApproval(fields map[string]string, rc route.RoleContext, decision string) opsOutcome {
	owner := rc.OwnerKey()
	token := strings.TrimSpace(fields["token"])
	query := strings.TrimSpace(fields["query"])

	var pending *queue.Pending

	switch {
	case token != "":
		if err := queue.ValidateID(token); err != nil {
			return opsFailure(ErrNoPendingApproval, fmt.Sprintf("malformed token %q: %v", token, err))
		}
		p, err := d.cfg.Queue.GetPending(token)
		if err != nil || p == nil {
			return opsFailure(ErrNoPendingApproval, fmt.Sprintf("no pending approval for token %q", token))
		}
		pending = p

	case query == "":
		d.drainBestEffort()
		h, err := d.cfg.Hints.Read(owner)
		if err != nil || h == nil {
			return opsFailure(ErrNoPendingApproval, "no pending approvals")
		}
		p := d.findByRequestID(h.RequestID)
		if p == nil {
			return opsFailure(ErrHintNotReady,
				fmt.Sprintf("request %s is still preparing; retry shortly", h.RequestID))
		}
		pending = p

	default:
		p := d.fuzzyFind(query, owner)
		if p == nil {
			return opsFailure(ErrNoPendingApproval, fmt.Sprintf("no pending approval matches %q", query))
		}
		pending = p
	}

	flags := mergeFlags(pending.RequiredFlags, splitList(fields["flag"]))

	execID, err := d.cfg.Queue.Enqueue(queue.Record{
		Phase:       queue.PhaseExecute,
		Intent:      "approval." + decision,
		RequestedBy: owner,
		Transport:   transportContext(rc),
		Payload: map[string]any{
			"token":          pending.Token,
			"decision":       decision,
			"approval_flags": flags,
		},
	})
	if err != nil {
		return opsFailure(ErrEnqueueFailed, fmt.Sprintf("could not enqueue %s: %v", decision, err))
	}

	// The hint is spent regardless of what the worker does next; a
	// second bare approve must not resolve to the same token. When
	// someone else resolved the plan by token, the plan owner's hint
	// would otherwise dangle at a consumed record.
	_ = d.cfg.Hints.Clear(owner)
	if pending.RequestedBy != "" && pending.RequestedBy != owner {
		if h, err := d.cfg.Hints.Read(pending.RequestedBy); err == nil && h != nil && h.RequestID == pending.RequestID {
			_ = d.cfg.Hints.Clear(pending.RequestedBy)
		}
	}
	d.drainBestEffort()

	d.record(audit.Entry{
		Event:     audit.EventExecQueued,
		Decision:  decision,
		RequestID: execID,
		Requester: owner,
		Detail:    fmt.Sprintf("token=%s plan=%s", pending.Token, pending.RequestID),
	})

	verb := decision + "d"
	if decision == "deny" {
		verb = "denied"
	}
	reply := fmt.Sprintf("%s %s (%s.%s) as %s",
		verb, pending.RequestID, pending.Capability, pending.Action, execID)
	if len(flags) > 0 {
		reply += " with flags " + strings.Join(flags, ", ")
	}

	return opsOutcome{
		Capability:       pending.Capability,
		Action:           pending.Action,
		RequestID:        pending.RequestID,
		ExecRequestID:    execID,
		RiskTier:         pending.RiskTier,
		RequiresApproval: pending.RequiresApproval,
		Flags:            flags,
		TemplateValid:    true,
		Success:          true,
		Reply:            reply,
	}
}

// findByRequestID locates the pending record a hint points at.
func (d *Dispatcher) findByRequestID(requestID string) *queue.Pending {
	pendings, err := d.cfg.Queue.ReadPending()
	if err != nil {
		return nil
	}
	for i := range pendings {
		if pendings[i].RequestID == requestID {
			return &pendings[i]
		}
	}
	return nil
}

// fuzzyFind searches pending records for an exact or substring match on
// token or request id. Candidates come back newest-first; the requester's
// own records win over other requesters'.
func (d *Dispatcher) fuzzyFind(query, owner string) *queue.Pending {
	pendings, err := d.cfg.Queue.ReadPending()
	if err != nil {
		return nil
	}

	folded := strings.ToLower(query)
	var candidates []queue.Pending
	for _, p := range pendings {
		if p.Token == query || p.RequestID == query ||
			strings.Contains(strings.ToLower(p.Token), folded) ||
			strings.Contains(strings.ToLower(p.RequestID), folded) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	for i := range candidates {
		if candidates[i].RequestedBy == owner {
			return &candidates[i]
		}
	}
	return &candidates[0]
}
