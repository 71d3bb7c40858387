package dispatch

import (
	"fmt"
	"strings"

	"relaybot/internal/audit"
	"relaybot/internal/hint"
	"relaybot/internal/queue"
	"relaybot/internal/route"
	"relaybot/internal/targets"
)

// opsOutcome is one ops sub-command's result, shared by the single and
// batch paths.
type opsOutcome struct {
	Capability       string
	Action           string
	RequestID        string
	ExecRequestID    string
	RiskTier         string
	RequiresApproval bool
	Flags            []string
	TemplateValid    bool
	Success          bool
	ErrorCode        string
	Reply            string
}

func opsFailure(code, reply string) opsOutcome {
	return opsOutcome{ErrorCode: code, Reply: reply}
}

// dispatchOps runs one ops sub-command: approval actions resolve a
// pending token, everything else goes through the PLAN handlers.
func (d *Dispatcher) dispatchOps(chunk string, rc route.RoleContext) opsOutcome {
	fields := parseFields(chunk)

	action := strings.ToLower(fields["action"])
	if action == "" {
		return opsFailure(ErrMissingField, "field \"action\" is required")
	}

	switch action {
	case "approve", "deny":
		return d.resolveApproval(fields, rc, action)
	default:
		return d.handlePlan(fields, action, rc)
	}
}

// handlePlan validates a capability action, builds its family payload,
// and enqueues the PLAN record. Enqueuing is the only side effect; the
// external worker owns execution.
func (d *Dispatcher) handlePlan(fields map[string]string, action string, rc route.RoleContext) opsOutcome {
	capability := strings.ToLower(fields["capability"])
	if capability == "" {
		inferred, ok := d.inferCapability(action)
		if !ok {
			return opsFailure(ErrUnsupportedCap,
				fmt.Sprintf("capability is required for action %q; supported capabilities: %s",
					action, strings.Join(d.cfg.Risk.Capabilities(), ", ")))
		}
		capability = inferred
	}

	pol, ok := d.cfg.Risk.Lookup(capability, action)
	if !ok {
		supported := d.cfg.Risk.Actions(capability)
		if supported == nil {
			return opsFailure(ErrUnsupportedCap,
				fmt.Sprintf("unsupported capability %q; supported: %s",
					capability, strings.Join(d.cfg.Risk.Capabilities(), ", ")))
		}
		return opsFailure(ErrUnsupportedAction,
			fmt.Sprintf("unsupported action %q for capability %q; supported: %s",
				action, capability, strings.Join(supported, ", ")))
	}

	payload, out := buildPayload(capability, action, fields)
	if out.ErrorCode != "" {
		return out
	}
	payload["capability"] = capability
	payload["action"] = action

	owner := rc.OwnerKey()
	requestID, err := d.cfg.Queue.Enqueue(queue.Record{
		Phase:            queue.PhasePlan,
		Intent:           capability + "." + action,
		RequestedBy:      owner,
		Transport:        transportContext(rc),
		Payload:          payload,
		RiskTier:         pol.RiskTier,
		RequiresApproval: pol.RequiresApproval,
		RequiredFlags:    pol.RequiredFlags,
	})
	if err != nil {
		return opsFailure(ErrEnqueueFailed, fmt.Sprintf("could not enqueue %s.%s: %v", capability, action, err))
	}

	d.record(audit.Entry{
		Event:     audit.EventPlanQueued,
		Decision:  pol.RiskTier,
		RequestID: requestID,
		Requester: owner,
		Detail:    capability + "." + action,
	})

	mode := "auto"
	reply := fmt.Sprintf("planned %s.%s as %s (tier %s)", capability, action, requestID, pol.RiskTier)
	if pol.RequiresApproval {
		mode = "approval"
		reply += "; waiting for approval, reply \"운영: action: approve\" to release"
		// Remember the hint before returning so a bare approve right
		// after needs no token.
		if herr := d.cfg.Hints.Write(hint.Hint{
			OwnerKey:   owner,
			RequestID:  requestID,
			Capability: capability,
			Action:     action,
		}); herr != nil {
			reply += " (hint not saved)"
		}
	}

	return opsOutcome{
		Capability:       capability,
		Action:           action,
		RequestID:        requestID,
		RiskTier:         pol.RiskTier,
		RequiresApproval: pol.RequiresApproval,
		TemplateValid:    true,
		Success:          true,
		Reply:            reply + " [" + mode + "]",
	}
}

// inferCapability resolves a capability from an action name when exactly
// one capability supports it. Ambiguous or unknown actions stay unresolved
// rather than guessing.
func (d *Dispatcher) inferCapability(action string) (string, bool) {
	var found string
	for _, capability := range d.cfg.Risk.Capabilities() {
		for _, a := range d.cfg.Risk.Actions(capability) {
			if a == action {
				if found != "" {
					return "", false
				}
				found = capability
			}
		}
	}
	return found, found != ""
}

// buildPayload assembles the action-family payload from template fields.
func buildPayload(capability, action string, fields map[string]string) (map[string]any, opsOutcome) {
	payload := make(map[string]any)

	switch capability {
	case "process":
		names := splitList(fields["target"])
		if len(names) == 0 {
			names = targets.Known()
		}
		for _, name := range names {
			if !targets.IsKnown(name) {
				return nil, opsFailure(ErrUnknownTarget,
					fmt.Sprintf("unknown target %q; supported: %s",
						name, strings.Join(targets.Known(), ", ")))
			}
		}
		payload["targets"] = names
		if reason := fields["reason"]; reason != "" {
			payload["reason"] = reason
		}

	case "file":
		paths := splitList(fields["path"])
		pattern := fields["pattern"]
		if len(paths) == 0 && pattern == "" {
			return nil, opsFailure(ErrMissingField,
				fmt.Sprintf("file.%s needs a \"path\" or \"pattern\" field", action))
		}
		if len(paths) > 0 {
			payload["paths"] = paths
		}
		if pattern != "" {
			payload["pattern"] = pattern
		}

	case "exec":
		command := fields["command"]
		if command == "" {
			return nil, opsFailure(ErrMissingField, "exec.run needs a \"command\" field")
		}
		payload["command"] = command
		if reason := fields["reason"]; reason != "" {
			payload["reason"] = reason
		}
	}

	return payload, opsOutcome{}
}

func transportContext(rc route.RoleContext) map[string]string {
	ctx := make(map[string]string)
	if rc.CallerID != "" {
		ctx["caller_id"] = rc.CallerID
	}
	if rc.UserID != "" {
		ctx["user_id"] = rc.UserID
	}
	if rc.IsHub {
		ctx["hub"] = "1"
	}
	if len(ctx) == 0 {
		return nil
	}
	return ctx
}
