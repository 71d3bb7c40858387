// Package dispatch is the in-process command dispatcher: classify, gate,
// decide the serving lane, and, for capability and approval actions,
// drive the PLAN→APPROVE→EXECUTE workflow against the durable queue.
//
// Every user-facing failure comes back as a structured Result. The only
// errors raised as Go errors are wiring mistakes caught in New.
package dispatch

import (
	"fmt"

	"relaybot/internal/audit"
	"relaybot/internal/hint"
	"relaybot/internal/lane"
	"relaybot/internal/policy"
	"relaybot/internal/queue"
	"relaybot/internal/risk"
	"relaybot/internal/route"
	"relaybot/internal/targets"
)

// StatusProvider returns a live snapshot of supervisor state per target.
type StatusProvider func() (map[string]targets.Raw, error)

// Config wires the dispatcher's collaborators. Queue and Hints are
// required; the rest have defaults or are optional.
type Config struct {
	Classifier *route.Classifier
	Risk       risk.Table
	Queue      *queue.Store
	Hints      *hint.Store

	// RoutingPath and BudgetPath locate the policy documents, reloaded
	// fresh on every dispatch. Empty means the default locations.
	RoutingPath string
	BudgetPath  string

	// Env supplies live guard flags; nil means read the OS environment.
	Env func() lane.Env

	// Drain nudges the inline worker to process the queue immediately.
	// Optional; may no-op. Failures are swallowed, never surfaced.
	Drain func() error

	// Status supplies the live target snapshot for the status route.
	Status StatusProvider

	// Audit, when set, records dispatch decisions. Optional.
	Audit *audit.Log
}

// Dispatcher turns one incoming text command into a Result.
type Dispatcher struct {
	cfg Config
}

// New validates collaborator wiring. A missing queue or hint store is a
// configuration error and fails fast, unlike user-facing failures.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("dispatch: queue store is required")
	}
	if cfg.Hints == nil {
		return nil, fmt.Errorf("dispatch: hint store is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = route.NewClassifier(route.Config{EnableNL: true})
	}
	if cfg.Risk == nil {
		cfg.Risk = risk.DefaultTable()
	}
	if cfg.Env == nil {
		cfg.Env = lane.EnvFromOS
	}
	return &Dispatcher{cfg: cfg}, nil
}

// Dispatch classifies text, evaluates the lane policy for the resolved
// route, and runs the route's handler. Synchronous and single-threaded:
// it returns as soon as any queue records are written.
func (d *Dispatcher) Dispatch(text string, rc route.RoleContext) Result {
	cmd := d.cfg.Classifier.Classify(text, rc)

	if cmd.Route == route.RouteBlocked {
		res := Result{
			Route:          route.RouteBlocked,
			RequestedRoute: cmd.RequestedRoute,
			InferredBy:     cmd.InferredBy,
			ErrorCode:      ErrRouteBlocked,
			Reply:          cmd.Hint,
		}
		d.record(audit.Entry{
			Event:     audit.EventDispatch,
			Route:     string(cmd.RequestedRoute),
			Decision:  "blocked",
			Requester: rc.OwnerKey(),
		})
		return res
	}

	// Policy documents are read fresh per decision; edits apply to the
	// very next command.
	pol, err := policy.LoadRouting(d.cfg.RoutingPath)
	if err != nil {
		return Result{
			Route:      cmd.Route,
			InferredBy: cmd.InferredBy,
			ErrorCode:  ErrPolicyLoad,
			Reply:      fmt.Sprintf("routing policy unreadable: %v", err),
		}
	}
	budget, err := policy.LoadBudget(d.cfg.BudgetPath)
	if err != nil {
		return Result{
			Route:      cmd.Route,
			InferredBy: cmd.InferredBy,
			ErrorCode:  ErrPolicyLoad,
			Reply:      fmt.Sprintf("budget document unreadable: %v", err),
		}
	}

	fields := parseFields(cmd.Payload)
	decision := lane.Decide(lane.Input{
		Route:       cmd.Route,
		CommandText: cmd.Payload,
		Fields:      fields,
	}, pol, budget, d.cfg.Env())

	res := d.handle(cmd, fields, rc)
	attachLane(&res, decision)

	event := audit.EventDispatch
	if decision.Blocked {
		event = audit.EventLaneBlocked
	}
	d.record(audit.Entry{
		Event:     event,
		Route:     string(cmd.Route),
		Lane:      decision.Lane,
		Decision:  decision.Reason,
		RequestID: res.RequestID,
		Requester: rc.OwnerKey(),
	})
	return res
}

// handle runs the per-route handler. The switch is closed over the route
// enum; adding a route without a case lands in the explicit default
// instead of silently falling through to the none handler.
func (d *Dispatcher) handle(cmd route.Classified, fields map[string]string, rc route.RoleContext) Result {
	switch cmd.Route {
	case route.RouteOps:
		return d.handleOps(cmd, rc)
	case route.RouteStatus:
		return d.handleStatus(cmd)
	case route.RouteMemo:
		return d.ack(cmd, "memo queued for the journal writer")
	case route.RouteWork, route.RouteProject, route.RouteInspect,
		route.RouteDeploy, route.RoutePrompt, route.RouteReport,
		route.RouteWord:
		return d.ack(cmd, fmt.Sprintf("%s request accepted", cmd.Route))
	case route.RouteNone:
		return Result{
			Route:         route.RouteNone,
			InferredBy:    cmd.InferredBy,
			TemplateValid: true,
			Success:       true,
			Reply:         "no command matched; treated as free text",
		}
	case route.RouteBlocked:
		// Handled before dispatch; unreachable here.
		return Result{Route: route.RouteBlocked, ErrorCode: ErrRouteBlocked}
	default:
		return Result{
			Route:     cmd.Route,
			ErrorCode: ErrUnsupportedAction,
			Reply:     fmt.Sprintf("route %q has no handler", cmd.Route),
		}
	}
}

// ack acknowledges routes whose execution lives outside the core. The
// result still carries the lane decision so the caller knows which
// upstream should serve the work.
func (d *Dispatcher) ack(cmd route.Classified, reply string) Result {
	return Result{
		Route:         cmd.Route,
		InferredBy:    cmd.InferredBy,
		TemplateValid: cmd.Payload != "",
		Success:       true,
		Reply:         reply,
	}
}

// handleStatus renders the per-target status report.
func (d *Dispatcher) handleStatus(cmd route.Classified) Result {
	if d.cfg.Status == nil {
		return Result{
			Route:      cmd.Route,
			InferredBy: cmd.InferredBy,
			ErrorCode:  ErrStatusUnavailable,
			Reply:      "status backend is not wired",
		}
	}
	snapshot, err := d.cfg.Status()
	if err != nil {
		return Result{
			Route:      cmd.Route,
			InferredBy: cmd.InferredBy,
			ErrorCode:  ErrStatusUnavailable,
			Reply:      fmt.Sprintf("status backend unavailable: %v", err),
		}
	}
	return Result{
		Route:         cmd.Route,
		InferredBy:    cmd.InferredBy,
		TemplateValid: true,
		Success:       true,
		Reply:         targets.Report(targets.Known(), snapshot),
	}
}

// drainBestEffort nudges the inline worker. Failures are swallowed so
// enqueue success is never blocked by drain failure.
func (d *Dispatcher) drainBestEffort() {
	if d.cfg.Drain == nil {
		return
	}
	if err := d.cfg.Drain(); err != nil {
		d.record(audit.Entry{Event: audit.EventDispatch, Detail: fmt.Sprintf("inline drain failed: %v", err)})
	}
}

func (d *Dispatcher) record(entry audit.Entry) {
	if d.cfg.Audit == nil {
		return
	}
	_ = d.cfg.Audit.Record(entry)
}

func attachLane(res *Result, dec lane.Decision) {
	res.APILane = dec.Lane
	res.AuthMode = dec.AuthMode
	res.LaneReason = dec.Reason
	res.APIBlocked = dec.Blocked
	res.BlockReason = dec.BlockReason
	res.FallbackLane = dec.FallbackLane
}
