// Package mcp provides the ugsdeploy MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	ugsaction "github.com/condensereality/UnityGameHostingAction"
	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/deploy"
	"github.com/condensereality/UnityGameHostingAction/internal/report"
	"github.com/condensereality/UnityGameHostingAction/internal/runner"
)

//go:embed instructions.md
var Instructions string

// ConnectFunc returns a service for resolved parameters.
type ConnectFunc func(p *config.Params, r *runner.Runner) (deploy.Service, error)

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg     *config.Config
	runner  *runner.Runner
	store   *report.LRUStore
	getenv  func(string) string
	connect ConnectFunc
}

// NewServer creates an MCP server with all ugsdeploy tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store *report.LRUStore, opts ...ServerOption) *mcp.Server {
	so := serverOptions{
		getenv: os.Getenv,
		connect: func(p *config.Params, r *runner.Runner) (deploy.Service, error) {
			return deploy.Connect(p, r)
		},
	}
	for _, o := range opts {
		o(&so)
	}

	h := &handler{
		cfg:     cfg,
		runner:  r,
		store:   store,
		getenv:  so.getenv,
		connect: so.connect,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "ugsdeploy", Version: ugsaction.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "ugs_sanitize_name",
		Description: "Convert a git ref or free text into a legal build name (letters, digits and '-').",
	}, h.sanitizeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ugs_list_builds",
		Description: `List the builds of a project and environment as name -> build id.

Project and environment default to the workspace configuration. Credentials come from the
server environment (UGS_KEY, UGS_SECRET).`,
	}, h.listHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ugs_deploy",
		Description: `Upload a directory as a new version of a build, creating the build if it does not exist.

Steps: version, login, list, sanitize, create, resolve, upload. Stops at the first failure.
Results are stored for drill-down via ugs_inspect.`,
	}, h.deployHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "ugs_inspect",
		Description: `Show the steps of an earlier ugs_deploy or ugs_list_builds run.

Without run_id, lists recent runs. With step, shows only that step.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the ugsdeploy MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	getenv  func(string) string
	connect ConnectFunc
}

// WithGetenv replaces the environment lookup used for credentials.
func WithGetenv(getenv func(string) string) ServerOption {
	return func(o *serverOptions) {
		o.getenv = getenv
	}
}

// WithConnect replaces how the server reaches the ugs tool.
func WithConnect(fn ConnectFunc) ServerOption {
	return func(o *serverOptions) {
		o.connect = fn
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and reloads the
// config from the first file root. This is called during session
// initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		log.Warn().Err(err).Str("workspace", workspace).Msg("ignoring workspace config")
		return
	}

	h.runner.Dir = workspace
	h.cfg = loaded.Config
}

// resolver builds a parameter resolver with tool arguments first, then the
// UGS_ environment, then the config file.
func (h *handler) resolver(args map[string]string) *config.Resolver {
	return &config.Resolver{
		Sources: []config.Source{
			argSource(args),
			config.EnvSource{Prefix: config.EnvPrefix, Getenv: h.getenv},
			config.FileSource{Config: h.cfg},
		},
		Config: h.cfg,
	}
}

// resolve resolves args against the workspace, so relative paths from a
// workspace config point into the workspace.
func (h *handler) resolve(args map[string]string, required []string) (*config.Params, error) {
	p, err := h.resolver(args).Resolve(required)
	if err != nil {
		return nil, err
	}
	p.Rebase(h.runner.Dir)
	return p, nil
}

type argSource map[string]string

func (a argSource) Lookup(name string) (string, bool) {
	v, ok := a[name]
	return v, ok && v != ""
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
