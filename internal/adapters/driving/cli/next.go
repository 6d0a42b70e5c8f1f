package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Load the next artwork now",
	Long: `Advances the current provider to its next artwork immediately.

Use --queue to hand the request to a running daemon instead.`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().Bool("queue", false, "enqueue the request for the daemon instead of loading now")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, _ []string) error {
	queue, err := cmd.Flags().GetBool("queue")
	if err != nil {
		return err
	}

	if queue {
		if err := requireService("provider manager", managerService != nil); err != nil {
			return err
		}
		if err := managerService.RequestNextArtwork(cmd.Context()); err != nil {
			return fmt.Errorf("requesting next artwork: %w", err)
		}
		cmd.Println("Next artwork requested.")
		return nil
	}

	if err := requireService("artwork loader", artworkLoader != nil); err != nil {
		return err
	}
	switch artworkLoader.LoadNext(cmd.Context()) {
	case domain.ResultSuccess:
		cmd.Println("Artwork loaded.")
		if statusService != nil {
			if st, err := statusService.Status(cmd.Context()); err == nil && st.Artwork != nil {
				cmd.Printf("Current artwork: %s\n", artworkLabel(st.Artwork))
			}
		}
		return nil
	case domain.ResultFail:
		return errors.New("no provider selected; run 'artsync provider select <locator>' first")
	default:
		return errors.New("provider unavailable or has no artwork; try again later")
	}
}

func artworkLabel(a *domain.Artwork) string {
	if a.Title != "" && a.Title != a.ID {
		return fmt.Sprintf("%s (%s)", a.Title, a.ID)
	}
	return a.ID
}
