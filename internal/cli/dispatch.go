package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"relaybot/internal/audit"
	"relaybot/internal/dispatch"
	"relaybot/internal/hint"
	"relaybot/internal/queue"
	"relaybot/internal/risk"
	"relaybot/internal/route"
	"relaybot/internal/targets"
	"relaybot/internal/worker"
)

var (
	dispatchCaller string
	dispatchUser   string
	dispatchHub    bool
	dispatchAllow  []string
	dispatchJSON   bool
)

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().StringVar(&dispatchCaller, "caller", "", "Caller identity (owner key for approval hints)")
	dispatchCmd.Flags().StringVar(&dispatchUser, "user", "", "Transport-provided user id")
	dispatchCmd.Flags().BoolVar(&dispatchHub, "hub", false, "Self-identify as the supervisory hub")
	dispatchCmd.Flags().StringSliceVar(&dispatchAllow, "allow", nil, "Route allowlist (empty = unrestricted)")
	dispatchCmd.Flags().BoolVar(&dispatchJSON, "json", false, "Print the full result object as JSON")
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [text...]",
	Short: "Classify and dispatch one command",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDispatch,
}

func runDispatch(cmd *cobra.Command, args []string) error {
	d, closeAll, err := buildDispatcher()
	if err != nil {
		return err
	}
	defer closeAll()

	rc := route.RoleContext{
		CallerID: dispatchCaller,
		UserID:   dispatchUser,
		IsHub:    dispatchHub,
	}
	for _, r := range dispatchAllow {
		rt := route.Route(r)
		if !route.IsKnown(rt) {
			return fmt.Errorf("unknown route %q in --allow", r)
		}
		rc.Allowlist = append(rc.Allowlist, rt)
	}

	res := d.Dispatch(strings.Join(args, " "), rc)

	if dispatchJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("route: %s", res.Route)
	if res.RequestedRoute != "" {
		fmt.Printf(" (requested: %s)", res.RequestedRoute)
	}
	fmt.Println()
	if res.APILane != "" {
		fmt.Printf("lane:  %s (%s) %s\n", res.APILane, res.AuthMode, res.LaneReason)
		if res.APIBlocked {
			fmt.Printf("       blocked: %s, fallback %s\n", res.BlockReason, res.FallbackLane)
		}
	}
	if res.RequestID != "" {
		fmt.Printf("plan:  %s\n", res.RequestID)
	}
	fmt.Println(res.Reply)
	return nil
}

// buildDispatcher wires the dispatcher with the file-backed collaborators
// under the state directory.
func buildDispatcher() (*dispatch.Dispatcher, func(), error) {
	store, err := queue.NewStore(queue.DefaultDirConfig(stateDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open queue: %w", err)
	}

	hints, err := hint.Open(hint.DefaultPath(stateDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open hint store: %w", err)
	}

	auditLog, err := audit.Open(audit.DefaultPath(stateDir))
	if err != nil {
		hints.Close()
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	tbl, err := risk.Load(filepath.Join(stateDir, "capabilities.yaml"))
	if err != nil {
		hints.Close()
		auditLog.Close()
		return nil, nil, err
	}

	w := worker.New(store, nil, auditLog)
	snapshotPath := filepath.Join(stateDir, "targets.json")

	d, err := dispatch.New(dispatch.Config{
		Risk:        tbl,
		Queue:       store,
		Hints:       hints,
		RoutingPath: filepath.Join(stateDir, "routing.yaml"),
		BudgetPath:  filepath.Join(stateDir, "budget.yaml"),
		Drain:       w.Drain,
		Status: func() (map[string]targets.Raw, error) {
			return targets.SnapshotFromFile(snapshotPath)
		},
		Audit: auditLog,
	})
	if err != nil {
		hints.Close()
		auditLog.Close()
		return nil, nil, err
	}

	closeAll := func() {
		hints.Close()
		auditLog.Close()
	}
	return d, closeAll, nil
}
