package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current provider, artwork and pending jobs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := requireService("status", statusService != nil); err != nil {
		return err
	}

	st, err := statusService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	out := cmd.OutOrStdout()
	width := terminalWidth(out)
	for _, line := range formatStatus(st, st.GeneratedAt) {
		fmt.Fprintln(out, truncate(line, width))
	}
	return nil
}

func formatStatus(st *driving.SyncStatus, now time.Time) []string {
	var lines []string
	field := func(label, value string) {
		lines = append(lines, fmt.Sprintf("%-17s %s", label+":", value))
	}

	if st.Provider == nil {
		field("Provider", "(none selected)")
	} else {
		field("Provider", fmt.Sprintf("%s (%s)", st.Provider.ID, st.Provider.ContentURI))
		field("Supports next", yesNo(st.Provider.SupportsNextArtwork))
	}
	if st.Artwork != nil {
		field("Current artwork", artworkLabel(st.Artwork))
	} else {
		field("Current artwork", "(none)")
	}

	if st.Settings.LoadFrequencySeconds > 0 {
		field("Load frequency", st.Settings.LoadFrequency().String())
	} else {
		field("Load frequency", "disabled")
	}
	field("Load on wifi", yesNo(st.Settings.LoadOnWifi))

	listener := "unregistered"
	if st.ListenerRegistered != "" {
		listener = "registered on " + st.ListenerRegistered
	}
	if len(st.Settings.PersistentListeners) > 0 {
		listener += " (requesters: " + strings.Join(st.Settings.PersistentListeners, ", ") + ")"
	}
	field("Listener", listener)

	lines = append(lines, "", "Jobs:")
	if len(st.Jobs) == 0 {
		lines = append(lines, "  (none)")
	}
	jobs := append([]domain.Job(nil), st.Jobs...)
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Tag < jobs[j].Tag })
	for _, job := range jobs {
		lines = append(lines, fmt.Sprintf("  %-24s %-15s %s", job.Tag, job.Kind, describeNextRun(job, now)))
	}

	if len(st.LastResults) > 0 {
		lines = append(lines, "", "Last results:")
		tags := make([]string, 0, len(st.LastResults))
		for tag := range st.LastResults {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			r := st.LastResults[tag]
			lines = append(lines, fmt.Sprintf("  %-24s %-7s %s", tag, r.Result, ago(r.EndedAt, now)))
		}
	}
	return lines
}

func describeNextRun(job domain.Job, now time.Time) string {
	switch {
	case job.Kind == domain.JobContentChange && job.NextRun.IsZero():
		return "on change of " + job.ContentURI
	case job.NextRun.IsZero():
		return "pending"
	case !job.NextRun.After(now):
		return "due"
	default:
		s := "in " + job.NextRun.Sub(now).Round(time.Second).String()
		if job.Constraints.WifiOnly {
			s += " (wifi only)"
		}
		if job.Attempts > 0 {
			s += fmt.Sprintf(" (retry %d)", job.Attempts)
		}
		return s
	}
}

func ago(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return now.Sub(t).Round(time.Second).String() + " ago"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// terminalWidth returns the width of w when it is a terminal, 0 otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func truncate(line string, width int) string {
	if width <= 3 || len(line) <= width {
		return line
	}
	return line[:width-3] + "..."
}
