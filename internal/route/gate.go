package route

import (
	"fmt"
	"strings"
)

// ApplyGate filters a classified command against the caller's allowlist.
// A nil allowlist is unrestricted. RouteNone and RouteBlocked always pass:
// blocking the fallback route would leave no way to answer at all.
func ApplyGate(cmd Classified, rc RoleContext) Classified {
	if rc.Allowlist == nil {
		return cmd
	}
	if cmd.Route == RouteNone || cmd.Route == RouteBlocked {
		return cmd
	}
	for _, allowed := range rc.Allowlist {
		if allowed == cmd.Route {
			return cmd
		}
	}
	return Classified{
		Route:          RouteBlocked,
		RequestedRoute: cmd.Route,
		Payload:        cmd.Payload,
		InferredBy:     cmd.InferredBy,
		Hint: fmt.Sprintf("route %q is not permitted for %s; allowed: %s",
			cmd.Route, rc.OwnerKey(), formatAllowlist(rc.Allowlist)),
	}
}

func formatAllowlist(routes []Route) string {
	if len(routes) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(routes))
	for _, r := range routes {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}
