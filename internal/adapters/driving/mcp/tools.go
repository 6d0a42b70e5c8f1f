package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/artsync/internal/core/domain"
	"github.com/custodia-labs/artsync/internal/core/ports/driving"
)

// NextArtworkInput is the input schema for the next_artwork tool.
type NextArtworkInput struct{}

// NextArtworkOutput is the output schema for the next_artwork tool.
type NextArtworkOutput struct {
	Requested  bool   `json:"requested"`
	ProviderID string `json:"provider_id,omitempty"`
}

// SyncStatusInput is the input schema for the sync_status tool.
type SyncStatusInput struct{}

// SyncStatusOutput is the output schema for the sync_status tool.
type SyncStatusOutput struct {
	ProviderID           string            `json:"provider_id,omitempty"`
	ContentURI           string            `json:"content_uri,omitempty"`
	SupportsNextArtwork  bool              `json:"supports_next_artwork"`
	ArtworkID            string            `json:"artwork_id,omitempty"`
	ArtworkTitle         string            `json:"artwork_title,omitempty"`
	LoadFrequencySeconds int64             `json:"load_frequency_seconds"`
	LoadOnWifi           bool              `json:"load_on_wifi"`
	PersistentListeners  []string          `json:"persistent_listeners"`
	ListenerRegistered   string            `json:"listener_registered,omitempty"`
	Observed             bool              `json:"observed"`
	Jobs                 []JobOutput       `json:"jobs"`
	LastResults          map[string]string `json:"last_results"`
}

// JobOutput represents a pending job.
type JobOutput struct {
	Tag        string `json:"tag"`
	Kind       string `json:"kind"`
	NextRun    string `json:"next_run,omitempty"`
	ContentURI string `json:"content_uri,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}

// SetLoadFrequencyInput is the input schema for the set_load_frequency tool.
type SetLoadFrequencyInput struct {
	Seconds int64 `json:"seconds" jsonschema:"periodic load interval in seconds, 0 disables periodic loading"`
}

// SetLoadFrequencyOutput is the output schema for the set_load_frequency tool.
type SetLoadFrequencyOutput struct {
	LoadFrequencySeconds int64 `json:"load_frequency_seconds"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "next_artwork",
		Description: "Request the next artwork from the current provider",
	}, s.handleNextArtwork)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Show the current provider, artwork and pending sync jobs",
	}, s.handleSyncStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_load_frequency",
		Description: "Set how often new artwork is loaded",
	}, s.handleSetLoadFrequency)
}

// handleNextArtwork handles the next_artwork tool invocation.
func (s *Server) handleNextArtwork(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ NextArtworkInput,
) (*mcp.CallToolResult, NextArtworkOutput, error) {
	if err := s.ports.Manager.RequestNextArtwork(ctx); err != nil {
		return nil, NextArtworkOutput{}, fmt.Errorf("requesting next artwork: %w", err)
	}

	output := NextArtworkOutput{Requested: true}
	if provider := s.ports.Manager.CurrentProvider(); provider != nil {
		output.ProviderID = provider.ID
	}
	return nil, output, nil
}

// handleSyncStatus handles the sync_status tool invocation.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncStatusInput,
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	if s.ports.Status == nil {
		return nil, SyncStatusOutput{}, errors.New("status service not configured")
	}

	status, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, fmt.Errorf("getting status: %w", err)
	}

	output := toStatusOutput(status)
	output.Observed = s.ports.Manager.HasActiveObservers()
	return nil, output, nil
}

// handleSetLoadFrequency handles the set_load_frequency tool invocation.
func (s *Server) handleSetLoadFrequency(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetLoadFrequencyInput,
) (*mcp.CallToolResult, SetLoadFrequencyOutput, error) {
	if input.Seconds < 0 {
		return nil, SetLoadFrequencyOutput{}, fmt.Errorf("seconds must not be negative: %w", domain.ErrInvalidInput)
	}

	if err := s.ports.Manager.SetLoadFrequencySeconds(ctx, input.Seconds); err != nil {
		return nil, SetLoadFrequencyOutput{}, fmt.Errorf("setting load frequency: %w", err)
	}
	return nil, SetLoadFrequencyOutput{LoadFrequencySeconds: input.Seconds}, nil
}

func toStatusOutput(status *driving.SyncStatus) SyncStatusOutput {
	output := SyncStatusOutput{
		LoadFrequencySeconds: status.Settings.LoadFrequencySeconds,
		LoadOnWifi:           status.Settings.LoadOnWifi,
		PersistentListeners:  status.Settings.PersistentListeners,
		ListenerRegistered:   status.ListenerRegistered,
		Jobs:                 toJobOutputs(status.Jobs),
		LastResults:          make(map[string]string, len(status.LastResults)),
	}
	if output.PersistentListeners == nil {
		output.PersistentListeners = []string{}
	}

	if status.Provider != nil {
		output.ProviderID = status.Provider.ID
		output.ContentURI = status.Provider.ContentURI
		output.SupportsNextArtwork = status.Provider.SupportsNextArtwork
	}
	if status.Artwork != nil {
		output.ArtworkID = status.Artwork.ID
		output.ArtworkTitle = status.Artwork.Title
	}
	for tag, result := range status.LastResults {
		output.LastResults[tag] = result.Result.String()
	}
	return output
}

func toJobOutputs(jobs []domain.Job) []JobOutput {
	out := make([]JobOutput, 0, len(jobs))
	for _, job := range jobs {
		jo := JobOutput{
			Tag:        job.Tag,
			Kind:       string(job.Kind),
			ContentURI: job.ContentURI,
			Attempts:   job.Attempts,
		}
		if !job.NextRun.IsZero() {
			jo.NextRun = job.NextRun.UTC().Format(time.RFC3339)
		}
		out = append(out, jo)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
