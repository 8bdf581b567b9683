package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/condensereality/UnityGameHostingAction/internal/buildname"
	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/report"
	"github.com/condensereality/UnityGameHostingAction/internal/ugs"
)

type sanitizeParams struct {
	Name string `json:"name" jsonschema:"build name or git ref, e.g. refs/heads/main or refs/pull/12/merge"`
}

func (h *handler) sanitizeHandler(ctx context.Context, req *mcp.CallToolRequest, params sanitizeParams) (*mcp.CallToolResult, any, error) {
	if params.Name == "" {
		return errorResult("name is required")
	}

	sanitized := buildname.Sanitize(params.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "Build name: %s\n", sanitized)
	if sanitized != params.Name {
		fmt.Fprintf(&b, "Changed from: %s\n", params.Name)
	}
	if !buildname.IsLegal(sanitized) {
		fmt.Fprintln(&b, "Warning: the name is empty and cannot be used.")
	}
	return textResult(b.String())
}

type listParams struct {
	Project     string `json:"project,omitempty" jsonschema:"project id; defaults to the workspace configuration"`
	Environment string `json:"environment,omitempty" jsonschema:"environment name; defaults to the workspace configuration"`
}

func (h *handler) listHandler(ctx context.Context, req *mcp.CallToolRequest, params listParams) (*mcp.CallToolResult, any, error) {
	p, err := h.resolve(map[string]string{
		config.Project:     params.Project,
		config.Environment: params.Environment,
	}, config.ListParameters)
	if err != nil {
		return errorResult(err.Error())
	}

	svc, err := h.connect(p, h.runner)
	if err != nil {
		return errorResult(err.Error())
	}
	if err := svc.Login(ctx, ugs.Credentials{KeyID: p.Key, Secret: p.Secret}); err != nil {
		return errorResult(fmt.Sprintf("login failed: %v", err))
	}
	builds, err := svc.ListBuilds(ctx, p.Project, p.Environment)
	if err != nil {
		return errorResult(fmt.Sprintf("list failed: %v", err))
	}

	rr := &report.RunResult{
		ID:          uuid.New().String(),
		Kind:        report.List,
		Project:     p.Project,
		Environment: p.Environment,
		Builds:      builds.Records(),
	}
	if err := h.store.Save(rr); err != nil {
		log.Warn().Err(err).Str("run_id", rr.ID).Msg("saving list report")
	}

	return textResult(formatBuilds(rr))
}

func formatBuilds(rr *report.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintf(&b, "Project: %s\nEnvironment: %s\n", rr.Project, rr.Environment)
	fmt.Fprintln(&b)
	if len(rr.Builds) == 0 {
		fmt.Fprintln(&b, "No builds.")
		return b.String()
	}
	fmt.Fprintf(&b, "Builds (%d):\n", len(rr.Builds))
	for _, rec := range rr.Builds {
		fmt.Fprintf(&b, "  %s -> %s\n", rec.Name, rec.ID)
	}
	return b.String()
}
