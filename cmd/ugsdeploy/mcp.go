package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	ugsmcp "github.com/condensereality/UnityGameHostingAction/internal/mcp"
	"github.com/condensereality/UnityGameHostingAction/internal/report"
	"github.com/condensereality/UnityGameHostingAction/internal/runner"
)

// recentRuns is how many deploy and list runs the MCP server keeps for ugs_inspect.
const recentRuns = 20

func newMCPCmd(o *rootOptions) *cobra.Command {
	var (
		instructions bool
		httpAddr     string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdio, or over streamable HTTP with --http.

Credentials are read from UGS_KEY and UGS_SECRET in the server environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), ugsmcp.Instructions)
				return nil
			}
			return o.serve(cmd.Context(), httpAddr)
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP on address (e.g. :9090)")
	return cmd
}

func (o *rootOptions) serve(ctx context.Context, httpAddr string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := o.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store := report.NewLRUStore(recentRuns, nil)
	r := &runner.Runner{Dir: workspace}
	server := ugsmcp.NewServer(loaded.Config, r, store)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
