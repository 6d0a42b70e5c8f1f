package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/artsync/internal/adapters/driving/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the current provider interactively",
	Long: `Opens a terminal view of the current provider and its artwork.

While the view is open it counts as an observer: the provider is watched for
changes, periodic loading is scheduled, and the persistent listener is
suspended. Run it alongside 'artsync run' so queued work is executed.

Controls:
  n - Request the next artwork
  r - Refresh
  w - Toggle wifi-only loading
  ? - Toggle help
  q - Quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in watch view: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if err := requireService("provider manager", managerService != nil); err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{
		Manager:  managerService,
		Status:   statusService,
		Settings: settingsService,
	})
	if err != nil {
		return fmt.Errorf("failed to create watch view: %w", err)
	}
	app.WithContext(cmd.Context())
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view error: %w", err)
	}
	return nil
}
