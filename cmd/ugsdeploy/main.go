// Command ugsdeploy uploads game server builds to Unity Game Server Hosting.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	ugsaction "github.com/condensereality/UnityGameHostingAction"
	"github.com/condensereality/UnityGameHostingAction/internal/ci"
	"github.com/condensereality/UnityGameHostingAction/internal/logging"
)

var executeFunc = execute

func main() {
	runMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

// execute runs the CLI with args and the provided output writers. Failures
// are also reported to the CI runner when running under GitHub Actions.
func execute(args []string, stdout io.Writer, stderr io.Writer) error {
	reporter := ci.New(stdout, os.Getenv)

	cmd := newRootCmd(reporter)
	cmd.Version = ugsaction.Version
	cmd.SetVersionTemplate("{{.Version}}\n")
	var rest []string
	if len(args) > 1 {
		rest = args[1:]
	}
	cmd.SetArgs(paramArgs(rest))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	reporter.Fail(err)
	return err
}

// runMain configures logging, executes the CLI and exits 1 on failure.
func runMain(args []string, stdout io.Writer, stderr io.Writer, exit func(int)) {
	logging.Configure(logging.ProfileRuntime)

	if err := executeFunc(args, stdout, stderr); err != nil {
		_, _ = fmt.Fprintln(stderr, color.RedString("ugsdeploy: %v", err))
		exit(1)
	}
}
