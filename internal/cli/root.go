// Package cli implements the relaybot command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"relaybot/internal/policy"
)

var stateDir string

var rootCmd = &cobra.Command{
	Use:   "relaybot",
	Short: "Command-dispatch core for a personal automation agent",
	Long: "Classifies short text commands into routes, decides which upstream\n" +
		"lane may serve them, and gates risky operations behind a\n" +
		"PLAN→APPROVE→EXECUTE workflow with per-requester approval hints.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", policy.DefaultDir(),
		"Directory holding queue, hints, audit log, and policy documents")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
