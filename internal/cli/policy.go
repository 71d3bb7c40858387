package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"relaybot/internal/policy"
	"relaybot/internal/risk"
)

var policyInitForce bool

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policyInitCmd)
	policyInitCmd.Flags().BoolVar(&policyInitForce, "force", false, "Overwrite an existing routing policy")
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and initialize policy documents",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective routing policy and capability table",
	RunE:  runPolicyShow,
}

var policyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter routing policy to the state directory",
	RunE:  runPolicyInit,
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	routing, err := policy.LoadRouting(filepath.Join(stateDir, "routing.yaml"))
	if err != nil {
		return err
	}
	budget, err := policy.LoadBudget(filepath.Join(stateDir, "budget.yaml"))
	if err != nil {
		return err
	}
	tbl, err := risk.Load(filepath.Join(stateDir, "capabilities.yaml"))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(routing)
	if err != nil {
		return err
	}
	fmt.Println("# routing policy (effective)")
	fmt.Print(string(out))

	fmt.Printf("\n# budget: monthly_api_budget_yen=%d, paid_api_requires_approval=%v\n",
		budget.MonthlyAPIBudgetYen, budget.PaidAPIRequiresApproval)

	fmt.Println("\n# capability table (effective)")
	for _, capability := range tbl.Capabilities() {
		for _, action := range tbl.Actions(capability) {
			ap, _ := tbl.Lookup(capability, action)
			line := fmt.Sprintf("%s.%s: tier=%s approval=%v", capability, action, ap.RiskTier, ap.RequiresApproval)
			if len(ap.RequiredFlags) > 0 {
				flags := append([]string(nil), ap.RequiredFlags...)
				sort.Strings(flags)
				line += fmt.Sprintf(" flags=%v", flags)
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runPolicyInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(stateDir, "routing.yaml")
	if _, err := os.Stat(path); err == nil && !policyInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(stateDir, 0750); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(policy.DefaultRoutingYAML()), 0600); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
