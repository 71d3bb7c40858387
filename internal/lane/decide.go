// Package lane picks the upstream execution lane for a classified route.
// Decide is deterministic and side-effect free: the caller reloads the
// routing policy and budget documents before each call, which is what
// makes policy edits take effect without a restart.
package lane

import (
	"regexp"
	"strings"

	"relaybot/internal/policy"
	"relaybot/internal/route"
)

// Block reasons surfaced to the caller. Never retried internally.
const (
	BlockInvalidOverride      = "invalid_api_override"
	BlockAPIKeyLaneDisabled   = "api_key_lane_disabled"
	BlockRateLimitSafeMode    = "rate_limit_safe_mode"
	BlockPaidApprovalRequired = "paid_api_approval_required"
	BlockAPIKeyMissing        = "openai_api_key_missing"
)

// Decision is the pure output of policy evaluation. Never persisted.
type Decision struct {
	Lane         string   `json:"api_lane"`
	AuthMode     string   `json:"auth_mode"`
	Reason       string   `json:"reason"`
	Capabilities []string `json:"capabilities"`
	Blocked      bool     `json:"blocked"`
	BlockReason  string   `json:"block_reason,omitempty"`
	FallbackLane string   `json:"fallback_lane,omitempty"`
	Override     string   `json:"override,omitempty"`
}

// Input identifies the request being routed.
type Input struct {
	Route       route.Route
	CommandText string
	// Fields are the parsed template fields; the "api" key carries a
	// structured manual override.
	Fields map[string]string
}

// complexWorkRoutes get a fallback suggestion toward the api-key lane when
// they resolve to the OAuth lane. Suggestion only, never a block.
var complexWorkRoutes = map[route.Route]bool{
	route.RouteWork:    true,
	route.RouteInspect: true,
	route.RouteDeploy:  true,
	route.RouteProject: true,
	route.RoutePrompt:  true,
	route.RouteReport:  true,
}

// inlineOverride matches an "api: <value>" marker inside free text.
var inlineOverride = regexp.MustCompile(`(?i)\bapi\s*:\s*(\S+)`)

// Decide evaluates the routing policy plus live guards for one request.
//
// Order (must not change): route default, feature overrides, manual
// override, api-key lane guards, complex-work fallback, lane metadata.
func Decide(in Input, pol *policy.Routing, budget policy.Budget, env Env) Decision {
	d := Decision{
		Lane:   pol.DefaultLaneFor(string(in.Route)),
		Reason: "route-default:" + string(in.Route),
	}

	// Feature overrides: first enabled match wins.
	for _, ov := range pol.FeatureOverrides {
		if !ov.IsEnabled() {
			continue
		}
		if !overrideMatches(ov, in) {
			continue
		}
		d.Lane = ov.TargetLane
		d.Reason = "feature-override:" + ov.ID
		break
	}

	// Manual override: structured API field or inline marker.
	if tok, ok := overrideToken(in); ok {
		switch strings.ToLower(tok) {
		case "auto":
			d.Override = "auto"
		case "oauth":
			d.Lane = policy.LaneOAuth
			d.Reason = "manual-override:oauth"
			d.Override = "oauth"
		case "key":
			d.Lane = policy.LaneAPIKey
			d.Reason = "manual-override:key"
			d.Override = "key"
		default:
			d.Blocked = true
			d.BlockReason = BlockInvalidOverride
			d.FallbackLane = d.Lane
			d.Override = tok
			attachMeta(&d, pol)
			return d
		}
	}

	// Access guards for the api-key lane, in precedence order.
	if d.Lane == policy.LaneAPIKey && !d.Blocked {
		enabled := pol.Guards.EnableAPIKeyLane || env.EnableAPIKeyLane
		budgetGated := budget.MonthlyAPIBudgetYen == 0 &&
			(budget.PaidAPIRequiresApproval || pol.Guards.RequirePaidApproval)
		switch {
		case !enabled:
			block(&d, BlockAPIKeyLaneDisabled)
		case env.RateLimitSafeMode && pol.Guards.BlockWhenRateLimitSafeMode:
			block(&d, BlockRateLimitSafeMode)
		case budgetGated && !env.PaidAPIApproved:
			block(&d, BlockPaidApprovalRequired)
		case !env.OpenAIKeyPresent:
			block(&d, BlockAPIKeyMissing)
		}
	}

	// Complex work on the OAuth lane may also run on the api-key lane;
	// record the alternative without forcing it.
	if d.Lane == policy.LaneOAuth && !d.Blocked && complexWorkRoutes[in.Route] {
		d.FallbackLane = policy.LaneAPIKey
	}

	attachMeta(&d, pol)
	return d
}

func block(d *Decision, reason string) {
	d.Blocked = true
	d.BlockReason = reason
	d.FallbackLane = policy.LaneOAuth
}

func attachMeta(d *Decision, pol *policy.Routing) {
	meta := pol.LaneMeta(d.Lane)
	d.AuthMode = meta.AuthMode
	d.Capabilities = meta.Capabilities
}

// overrideMatches checks an override's route filter and keyword policy.
func overrideMatches(ov policy.FeatureOverride, in Input) bool {
	if len(ov.Routes) > 0 {
		found := false
		for _, r := range ov.Routes {
			if r == string(in.Route) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	text := strings.ToLower(in.CommandText)
	if text == "" {
		return ov.AllowEmptyCommand
	}
	if len(ov.Keywords) == 0 {
		return true
	}

	if strings.EqualFold(ov.Match, "all") {
		for _, kw := range ov.Keywords {
			if !strings.Contains(text, strings.ToLower(kw)) {
				return false
			}
		}
		return true
	}
	for _, kw := range ov.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// overrideToken extracts the manual override value from the structured
// "api" field first, else from an inline "api: <value>" marker.
func overrideToken(in Input) (string, bool) {
	for k, v := range in.Fields {
		if strings.EqualFold(k, "api") && v != "" {
			return v, true
		}
	}
	if m := inlineOverride.FindStringSubmatch(in.CommandText); m != nil {
		return m[1], true
	}
	return "", false
}
