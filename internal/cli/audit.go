package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"relaybot/internal/audit"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log hash chain",
	RunE:  runAuditVerify,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path := audit.DefaultPath(stateDir)
	result, err := audit.Verify(path)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("chain broken at line %d: %s", result.BrokenAt, result.BrokenMsg)
	}
	fmt.Printf("OK: %d entries, chain intact\n", result.Entries)
	return nil
}
