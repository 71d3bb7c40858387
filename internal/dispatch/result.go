package dispatch

import "relaybot/internal/route"

// Error codes surfaced in results. These are user-facing, non-fatal
// outcomes, never Go errors crossing the dispatcher boundary.
const (
	ErrRouteBlocked       = "route_blocked"
	ErrPolicyLoad         = "policy_load_failed"
	ErrMissingField       = "missing_field"
	ErrUnsupportedCap     = "unsupported_capability"
	ErrUnsupportedAction  = "unsupported_action"
	ErrUnknownTarget      = "unknown_target"
	ErrNoPendingApproval  = "no_pending_approval"
	ErrHintNotReady       = "hint_not_ready"
	ErrEnqueueFailed      = "enqueue_failed"
	ErrStatusUnavailable  = "status_unavailable"
)

// Result is the plain per-command outcome handed to the transport layer.
type Result struct {
	Route          route.Route `json:"route"`
	RequestedRoute route.Route `json:"requested_route,omitempty"`
	InferredBy     string      `json:"inferred_by,omitempty"`
	TemplateValid  bool        `json:"template_valid"`
	Success        bool        `json:"success"`
	Reply          string      `json:"telegram_reply"`
	ErrorCode      string      `json:"error_code,omitempty"`

	RequestID        string   `json:"request_id,omitempty"`
	ExecRequestID    string   `json:"exec_request_id,omitempty"`
	RiskTier         string   `json:"risk_tier,omitempty"`
	RequiresApproval bool     `json:"requires_approval,omitempty"`
	ApprovalFlags    []string `json:"approval_flags,omitempty"`

	APILane      string `json:"api_lane,omitempty"`
	AuthMode     string `json:"auth_mode,omitempty"`
	LaneReason   string `json:"lane_reason,omitempty"`
	APIBlocked   bool   `json:"api_blocked,omitempty"`
	BlockReason  string `json:"block_reason,omitempty"`
	FallbackLane string `json:"fallback_lane,omitempty"`

	Batch bool        `json:"batch,omitempty"`
	Items []BatchItem `json:"items,omitempty"`
}

// BatchItem is one sub-command's outcome inside a batch result.
type BatchItem struct {
	Index            int    `json:"index"`
	Capability       string `json:"capability,omitempty"`
	Action           string `json:"action,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
	ExecRequestID    string `json:"exec_request_id,omitempty"`
	RiskTier         string `json:"risk_tier,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
	TemplateValid    bool   `json:"template_valid"`
	Success          bool   `json:"success"`
	ErrorCode        string `json:"error_code,omitempty"`
	Summary          string `json:"summary"`
}
