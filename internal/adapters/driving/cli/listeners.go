package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listenersCmd = &cobra.Command{
	Use:   "listeners",
	Short: "Manage persistent listener requesters",
	Long: `Persistent listeners keep noticing provider changes while nothing is
watching. The listener stays registered while at least one named requester
exists and no observer is active.`,
	Args: cobra.NoArgs,
	RunE: runListenersList,
}

var listenersAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a requester",
	Args:  cobra.ExactArgs(1),
	RunE:  runListenersAdd,
}

var listenersRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a requester",
	Args:  cobra.ExactArgs(1),
	RunE:  runListenersRemove,
}

var listenersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requesters and the listener registration",
	Args:  cobra.NoArgs,
	RunE:  runListenersList,
}

func init() {
	listenersCmd.AddCommand(listenersAddCmd)
	listenersCmd.AddCommand(listenersRemoveCmd)
	listenersCmd.AddCommand(listenersListCmd)
	rootCmd.AddCommand(listenersCmd)
}

func runListenersAdd(cmd *cobra.Command, args []string) error {
	if err := requireService("listeners", listenersService != nil); err != nil {
		return err
	}
	if err := listenersService.AddRequester(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to add requester: %w", err)
	}
	cmd.Printf("Requester %q added.\n", args[0])
	printRegistration(cmd)
	return nil
}

func runListenersRemove(cmd *cobra.Command, args []string) error {
	if err := requireService("listeners", listenersService != nil); err != nil {
		return err
	}
	if err := listenersService.RemoveRequester(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove requester: %w", err)
	}
	cmd.Printf("Requester %q removed.\n", args[0])
	printRegistration(cmd)
	return nil
}

func runListenersList(cmd *cobra.Command, _ []string) error {
	if err := requireService("listeners", listenersService != nil); err != nil {
		return err
	}

	names := listenersService.Requesters()
	if len(names) == 0 {
		cmd.Println("No requesters.")
	} else {
		cmd.Println("Requesters:")
		for _, name := range names {
			cmd.Printf("  - %s\n", name)
		}
	}
	printRegistration(cmd)
	return nil
}

// printRegistration reports the registration, consulting the job store
// through the status service so a daemon's registration is visible too.
func printRegistration(cmd *cobra.Command) {
	uri, ok := listenersService.Registered()
	if !ok && statusService != nil {
		if st, err := statusService.Status(cmd.Context()); err == nil && st.ListenerRegistered != "" {
			uri, ok = st.ListenerRegistered, true
		}
	}
	if ok {
		cmd.Printf("Listener registered on %s.\n", uri)
		return
	}
	cmd.Println("Listener not registered.")
}
