package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"relaybot/internal/route"
)

// actionMarker is the per-chunk marker every batch chunk must contain.
// Known edge case: a single command whose free text embeds a newline
// followed by a marker-looking line can still be mis-split; the template
// format does not disambiguate this.
var actionMarker = regexp.MustCompile(`(?i)(^|[\n;])\s*(action|액션|동작)\s*:`)

// splitBatch decomposes an ops payload into independent sub-commands.
// A line beginning with an ops prefix starts a new chunk; non-prefixed
// lines accumulate into the current chunk (multi-line fields). Returns
// nil when the payload is a single command: one chunk or any chunk
// without an action marker.
func splitBatch(payload string) []string {
	var chunks []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.TrimSpace(strings.Join(current, "\n")))
			current = nil
		}
	}

	for _, line := range strings.Split(payload, "\n") {
		if stripped, ok := route.StripOpsPrefix(line); ok {
			flush()
			current = append(current, stripped)
			continue
		}
		current = append(current, line)
	}
	flush()

	if len(chunks) <= 1 {
		return nil
	}
	for _, chunk := range chunks {
		if !actionMarker.MatchString(chunk) {
			return nil
		}
	}
	return chunks
}

// handleOps dispatches the ops route: either one sub-command, or a batch
// whose items run independently and aggregate. One failing item never
// aborts the rest.
func (d *Dispatcher) handleOps(cmd route.Classified, rc route.RoleContext) Result {
	chunks := splitBatch(cmd.Payload)
	if chunks == nil {
		out := d.dispatchOps(cmd.Payload, rc)
		return opsResult(cmd, out)
	}

	res := Result{
		Route:         cmd.Route,
		InferredBy:    cmd.InferredBy,
		Batch:         true,
		TemplateValid: true,
		Success:       true,
	}

	var lines []string
	for i, chunk := range chunks {
		out := d.dispatchOps(chunk, rc)
		item := BatchItem{
			Index:            i + 1,
			Capability:       out.Capability,
			Action:           out.Action,
			RequestID:        out.RequestID,
			ExecRequestID:    out.ExecRequestID,
			RiskTier:         out.RiskTier,
			RequiresApproval: out.RequiresApproval,
			TemplateValid:    out.TemplateValid,
			Success:          out.Success,
			ErrorCode:        out.ErrorCode,
			Summary:          summarize(i+1, out),
		}
		res.Items = append(res.Items, item)
		res.TemplateValid = res.TemplateValid && out.TemplateValid
		res.Success = res.Success && out.Success
		lines = append(lines, item.Summary)
	}

	res.Reply = fmt.Sprintf("batch of %d:\n%s", len(res.Items), strings.Join(lines, "\n"))
	return res
}

// summarize renders one batch item's human-readable line.
func summarize(index int, out opsOutcome) string {
	name := out.Action
	if out.Capability != "" {
		name = out.Capability + "." + out.Action
	}
	if !out.Success {
		return fmt.Sprintf("[%d] %s failed: %s", index, name, out.Reply)
	}

	id := out.RequestID
	if out.ExecRequestID != "" {
		id = out.RequestID + " → " + out.ExecRequestID
	}
	detail := ""
	if out.RiskTier != "" {
		mode := "auto"
		if out.RequiresApproval {
			mode = "approval"
		}
		detail = fmt.Sprintf(" (tier %s, %s)", out.RiskTier, mode)
	}
	return fmt.Sprintf("[%d] %s → %s%s", index, name, id, detail)
}

// opsResult lifts a single sub-command outcome into a Result.
func opsResult(cmd route.Classified, out opsOutcome) Result {
	return Result{
		Route:            cmd.Route,
		InferredBy:       cmd.InferredBy,
		TemplateValid:    out.TemplateValid,
		Success:          out.Success,
		Reply:            out.Reply,
		ErrorCode:        out.ErrorCode,
		RequestID:        out.RequestID,
		ExecRequestID:    out.ExecRequestID,
		RiskTier:         out.RiskTier,
		RequiresApproval: out.RequiresApproval,
		ApprovalFlags:    out.Flags,
	}
}
