package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relaybot/internal/audit"
	"relaybot/internal/queue"
	"relaybot/internal/worker"
)

var daemonDebug bool

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().BoolVar(&daemonDebug, "debug", false, "Enable debug logging")
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the queue drain worker continuously",
	Long: "Watches the queue inbox and sorts incoming records: plans that\n" +
		"require approval park under pending/, everything releasable moves\n" +
		"to ready/ for the external executor.",
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log, err := buildLogger(daemonDebug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := queue.NewStore(queue.DefaultDirConfig(stateDir))
	if err != nil {
		return err
	}

	auditLog, err := audit.Open(audit.DefaultPath(stateDir))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(store, log, auditLog)
	log.Info("daemon started",
		zap.String("state_dir", stateDir),
		zap.String("inbox", store.Dirs().Inbox()))
	return w.Run(ctx)
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
