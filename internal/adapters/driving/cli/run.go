package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/artsync/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background sync daemon",
	Long: `Runs the job scheduler in the foreground until interrupted.

The daemon restores persisted jobs, re-registers the persistent listener when
requesters exist, and runs reconciliations and artwork loads as they fall due.

With --observe the daemon also acts as an observer of the current provider:
it watches the provider for changes and keeps periodic loading scheduled.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().Bool("observe", false, "observe the current provider while running")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if err := requireService("daemon", daemon != nil); err != nil {
		return err
	}
	observe, err := cmd.Flags().GetBool("observe")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("artsync daemon starting (observe=%t)", observe)
	if err := daemon.Run(ctx, observe); err != nil {
		return err
	}
	logger.Info("artsync daemon stopped")
	return nil
}
