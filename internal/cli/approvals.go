package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"relaybot/internal/queue"
)

func init() {
	rootCmd.AddCommand(approvalsCmd)
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List pending approvals",
	RunE:  runApprovals,
}

func runApprovals(cmd *cobra.Command, args []string) error {
	store, err := queue.NewStore(queue.DefaultDirConfig(stateDir))
	if err != nil {
		return err
	}

	pending, err := store.ReadPending()
	if err != nil {
		return fmt.Errorf("failed to read pending approvals: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("No pending approvals.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tREQUEST\tOPERATION\tTIER\tREQUESTED BY\tCREATED")
	for _, p := range pending {
		op := p.Capability
		if p.Action != "" {
			op = p.Capability + "." + p.Action
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Token, p.RequestID, op, p.RiskTier, p.RequestedBy,
			p.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
