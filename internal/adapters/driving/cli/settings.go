package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/artsync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage sync settings",
	Long:  `View and configure how often artwork is loaded and on which networks.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsFrequencyCmd = &cobra.Command{
	Use:   "frequency <seconds|duration>",
	Short: "Set the periodic load interval",
	Long: `Set how often new artwork is loaded. Accepts seconds ("3600") or a
duration ("1h", "15m"). Zero disables periodic loading.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsFrequency,
}

var settingsWifiCmd = &cobra.Command{
	Use:   "wifi <true|false>",
	Short: "Restrict periodic loads to unmetered networks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsWifi,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsFrequencyCmd)
	settingsCmd.AddCommand(settingsWifiCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireService("settings", settingsService != nil); err != nil {
		return err
	}

	settings := settingsService.Get()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Sync]")
	if settings.LoadFrequencySeconds > 0 {
		cmd.Printf("  Load frequency: %s (%d seconds)\n", settings.LoadFrequency(), settings.LoadFrequencySeconds)
	} else {
		cmd.Println("  Load frequency: disabled")
	}
	cmd.Printf("  Load on wifi only: %s\n", yesNo(settings.LoadOnWifi))
	cmd.Printf("  No-artwork debounce: %s\n", settingsService.DebounceDelay())
	cmd.Println()

	cmd.Println("[Persistent listeners]")
	if len(settings.PersistentListeners) == 0 {
		cmd.Println("  (none)")
	}
	for _, name := range settings.PersistentListeners {
		cmd.Printf("  - %s\n", name)
	}
	cmd.Println()

	cmd.Println("[Scheduler]")
	cmd.Printf("  Max retry backoff: %s\n", settingsService.MaxBackoff())
	return nil
}

func runSettingsFrequency(cmd *cobra.Command, args []string) error {
	if err := requireService("provider manager", managerService != nil); err != nil {
		return err
	}

	seconds, err := parseFrequency(args[0])
	if err != nil {
		return err
	}
	if err := managerService.SetLoadFrequencySeconds(cmd.Context(), seconds); err != nil {
		return fmt.Errorf("failed to set load frequency: %w", err)
	}

	if seconds == 0 {
		cmd.Println("Periodic loading disabled.")
	} else {
		cmd.Printf("Load frequency set to %s.\n", domain.SecondsDuration(seconds))
	}
	return nil
}

func runSettingsWifi(cmd *cobra.Command, args []string) error {
	if err := requireService("provider manager", managerService != nil); err != nil {
		return err
	}

	wifiOnly, err := parseBool(args[0])
	if err != nil {
		return err
	}
	if err := managerService.SetLoadOnWifi(cmd.Context(), wifiOnly); err != nil {
		return fmt.Errorf("failed to set wifi preference: %w", err)
	}

	if wifiOnly {
		cmd.Println("Periodic loads restricted to unmetered networks.")
	} else {
		cmd.Println("Periodic loads allowed on any network.")
	}
	return nil
}

// parseFrequency accepts whole seconds or a Go duration string.
func parseFrequency(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("frequency must not be negative: %w", domain.ErrInvalidInput)
		}
		if n > domain.MaxLoadFrequencySeconds {
			return 0, fmt.Errorf("frequency must be at most %d seconds: %w", domain.MaxLoadFrequencySeconds, domain.ErrInvalidInput)
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %w", s, domain.ErrInvalidInput)
	}
	if d < 0 {
		return 0, fmt.Errorf("frequency must not be negative: %w", domain.ErrInvalidInput)
	}
	if d > 0 && d < time.Second {
		return 0, fmt.Errorf("frequency must be at least one second: %w", domain.ErrInvalidInput)
	}
	return int64(d / time.Second), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected true or false, got %q: %w", s, domain.ErrInvalidInput)
	}
}
