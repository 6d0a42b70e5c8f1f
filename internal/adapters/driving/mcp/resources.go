package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for artsync resources.
	uriScheme = "artsync://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Current provider, artwork, settings and pending jobs",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "jobs/{tag}",
		Name:        "jobs-by-tag",
		Description: "Pending sync jobs with the given tag",
		MIMEType:    "application/json",
	}, s.handleJobsResource)
}

// handleStatusResource returns the sync status as JSON.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Status == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	output := toStatusOutput(status)
	output.Observed = s.ports.Manager.HasActiveObservers()
	return jsonResult(req.Params.URI, output)
}

// handleJobsResource returns the pending jobs for a tag.
func (s *Server) handleJobsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Status == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract tag from URI: artsync://jobs/{tag}
	tag := extractTag(req.Params.URI)
	if tag == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	jobs := []JobOutput{}
	for _, job := range toJobOutputs(status.Jobs) {
		if job.Tag == tag {
			jobs = append(jobs, job)
		}
	}
	return jsonResult(req.Params.URI, jobs)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractTag extracts the job tag from a URI like artsync://jobs/{tag}.
func extractTag(uri string) string {
	const prefix = uriScheme + "jobs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	tag := strings.TrimPrefix(uri, prefix)
	if strings.Contains(tag, "/") {
		return ""
	}
	return tag
}
