package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/condensereality/UnityGameHostingAction/internal/report"
)

type inspectParams struct {
	RunID string `json:"run_id,omitempty" jsonschema:"the run ID from a ugs_deploy or ugs_list_builds result; omit to list recent runs"`
	Step  string `json:"step,omitempty" jsonschema:"deploy step name: version, login, list, sanitize, create, resolve or upload"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return textResult(formatRecent(h.store.Recent()))
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	if params.Step != "" {
		if err := result.Expect(report.Deploy); err != nil {
			return errorResult(err.Error())
		}
		s, ok := report.ByStep(result, params.Step)
		if !ok {
			return errorResult(fmt.Sprintf("run %s has no step %q", params.RunID, params.Step))
		}
		return textResult(fmt.Sprintf("Run: %s (%s)\n%s: %s\n\n%s\n", result.ID, result.Kind, s.Name, s.Status, s.Detail))
	}

	if result.Kind == report.List {
		return textResult(formatBuilds(result))
	}
	return textResult(formatInspectOutput(result))
}

func formatInspectOutput(r *report.RunResult) string {
	var b strings.Builder
	d := r.Deploy

	fmt.Fprintf(&b, "Run: %s (%s)\n", r.ID, r.Kind)
	fmt.Fprintf(&b, "Project: %s\nEnvironment: %s\n", r.Project, r.Environment)
	fmt.Fprintf(&b, "Build: %s", d.Sanitized)
	if d.Renamed() {
		fmt.Fprintf(&b, " (requested %s)", d.BuildName)
	}
	fmt.Fprintln(&b)
	if d.BuildID != "" {
		fmt.Fprintf(&b, "Build id: %s\n", d.BuildID)
	}
	fmt.Fprintf(&b, "Created: %t\n", d.Created)
	fmt.Fprintf(&b, "Started: %s (%s)\n", d.StartedAt.Format("2006-01-02 15:04:05"), d.Duration)
	fmt.Fprintln(&b)

	for _, s := range d.Steps {
		fmt.Fprintf(&b, "[%s] %s", s.Status, s.Name)
		if s.Detail != "" {
			fmt.Fprintf(&b, ": %s", s.Detail)
		}
		fmt.Fprintln(&b)
	}

	if failures := report.Failures(r); len(failures) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Failures:")
		for _, f := range failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.Step, f.Message)
		}
	}
	return b.String()
}

func formatRecent(runs []*report.RunResult) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}
	var b strings.Builder
	fmt.Fprintln(&b, "Recent runs:")
	for _, r := range runs {
		status := "ok"
		if len(report.Failures(r)) > 0 {
			status = "failed"
		}
		fmt.Fprintf(&b, "  %s %s %s/%s %s\n", r.ID, r.Kind, r.Project, r.Environment, status)
	}
	return b.String()
}
