// Package route turns raw command text into a normalized {route, payload}
// pair. Classification is a pure function over the text, the static prefix
// table, and the caller's role context; it never errors: unmatched text
// resolves to RouteNone and gated text to RouteBlocked.
package route

// Route identifies the handler family selected for a command.
type Route string

const (
	RouteWork    Route = "work"
	RouteOps     Route = "ops"
	RouteProject Route = "project"
	RouteStatus  Route = "status"
	RouteMemo    Route = "memo"
	RouteWord    Route = "word"
	RouteInspect Route = "inspect"
	RouteDeploy  Route = "deploy"
	RoutePrompt  Route = "prompt"
	RouteReport  Route = "report"
	RouteNone    Route = "none"
	RouteBlocked Route = "blocked"
)

// KnownRoutes lists every dispatchable route in prefix-match order.
// RouteNone and RouteBlocked are synthetic and carry no prefixes.
var KnownRoutes = []Route{
	RouteWork, RouteOps, RouteProject, RouteStatus, RouteMemo,
	RouteWord, RouteInspect, RouteDeploy, RoutePrompt, RouteReport,
}

// IsKnown returns true for routes that own a handler family.
func IsKnown(r Route) bool {
	for _, k := range KnownRoutes {
		if k == r {
			return true
		}
	}
	return false
}

// Classified is the immutable result of classifying one incoming text.
type Classified struct {
	Route          Route  `json:"route"`
	RequestedRoute Route  `json:"requested_route,omitempty"`
	Payload        string `json:"payload"`
	InferredBy     string `json:"inferred_by"`
	Hint           string `json:"hint,omitempty"`
}

// RoleContext describes the caller of a classification request.
// Allowlist nil means unrestricted; an empty non-nil list permits nothing.
type RoleContext struct {
	CallerID  string
	UserID    string
	IsHub     bool
	Allowlist []Route
}

// OwnerKey returns the durable identity used to key approval hints:
// caller id, else the transport-provided user id, else "unknown".
func (rc RoleContext) OwnerKey() string {
	if rc.CallerID != "" {
		return rc.CallerID
	}
	if rc.UserID != "" {
		return rc.UserID
	}
	return "unknown"
}
