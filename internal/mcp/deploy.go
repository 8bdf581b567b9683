package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/deploy"
	"github.com/condensereality/UnityGameHostingAction/internal/report"
)

type deployParams struct {
	BuildName           string `json:"build_name" jsonschema:"build name or git ref; sanitized before use"`
	BuildFilesDirectory string `json:"build_files_directory,omitempty" jsonschema:"directory to upload; defaults to the workspace configuration"`
	BuildOsFamily       string `json:"build_os_family,omitempty" jsonschema:"OS family for a new build, e.g. LINUX"`
	Project             string `json:"project,omitempty" jsonschema:"project id; defaults to the workspace configuration"`
	Environment         string `json:"environment,omitempty" jsonschema:"environment name; defaults to the workspace configuration"`
}

func (h *handler) deployHandler(ctx context.Context, req *mcp.CallToolRequest, params deployParams) (*mcp.CallToolResult, any, error) {
	p, err := h.resolve(map[string]string{
		config.BuildName:           params.BuildName,
		config.BuildFilesDirectory: params.BuildFilesDirectory,
		config.BuildOsFamily:       params.BuildOsFamily,
		config.Project:             params.Project,
		config.Environment:         params.Environment,
	}, config.DeployParameters)
	if err != nil {
		return errorResult(err.Error())
	}

	svc, err := h.connect(p, h.runner)
	if err != nil {
		return errorResult(err.Error())
	}

	d := &deploy.Deployer{Service: svc}
	res, _ := d.Run(ctx, p)

	// Save results for ugs_inspect.
	if err := h.store.Save(report.FromDeploy(res)); err != nil {
		log.Warn().Err(err).Str("run_id", res.ID).Msg("saving deploy report")
	}

	return textResult(formatDeploy(res))
}

func formatDeploy(res *deploy.Result) string {
	var b strings.Builder

	allPassed := res.FailedIdx < 0
	if allPassed {
		fmt.Fprintln(&b, "Status: OK")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", res.ID)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Steps:")
	for _, s := range res.Steps {
		if s.Detail != "" && s.Status != deploy.StatusFailed {
			fmt.Fprintf(&b, "  %s: %s (%s)\n", s.Name, s.Status, s.Detail)
		} else {
			fmt.Fprintf(&b, "  %s: %s\n", s.Name, s.Status)
		}
	}
	fmt.Fprintln(&b)

	if !allPassed {
		failed := res.Steps[res.FailedIdx]
		fmt.Fprintf(&b, "Failed step: %s\n", failed.Name)
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, failed.Detail)
		fmt.Fprintln(&b)
		if res.Created {
			fmt.Fprintf(&b, "Note: build %s was created and has no uploaded version.\n", res.Sanitized)
		}
		fmt.Fprintf(&b, "Inspect with ugs_inspect(run_id=%q).\n", res.ID)
		return b.String()
	}

	verb := "Uploaded to existing build"
	if res.Created {
		verb = "Created and uploaded build"
	}
	fmt.Fprintf(&b, "%s %s (id %s).\n", verb, res.Sanitized, res.BuildID)
	return b.String()
}
