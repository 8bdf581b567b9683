package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/condensereality/UnityGameHostingAction/internal/buildname"
	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/deploy"
	"github.com/condensereality/UnityGameHostingAction/internal/runner"
	"github.com/condensereality/UnityGameHostingAction/internal/ugs"
)

func newDeployCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy [Name=Value ...]",
		Short: "Upload a directory as a new build version (the default command)",
		Args:  cobra.NoArgs,
		RunE:  o.runDeploy,
	}
}

func (o *rootOptions) runDeploy(cmd *cobra.Command, _ []string) error {
	p, err := o.resolve(cmd, config.DeployParameters)
	if err != nil {
		return err
	}
	client, err := deploy.Connect(p, &runner.Runner{})
	if err != nil {
		return err
	}

	d := &deploy.Deployer{Service: client, Observer: o.reporter}
	res, runErr := d.Run(cmd.Context(), p)

	if o.json {
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		printDeploy(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
	}
	if runErr != nil {
		return runErr
	}

	o.reporter.SetBuildOutputs(res.BuildID, res.Sanitized, res.Created)
	return nil
}

func printDeploy(stdout, stderr io.Writer, res *deploy.Result) {
	if res.Renamed() {
		fmt.Fprintln(stderr, color.YellowString("build name %q was changed to %q", res.BuildName, res.Sanitized))
	}

	for _, s := range res.Steps {
		status := s.Status
		switch s.Status {
		case deploy.StatusOK:
			status = color.GreenString(s.Status)
		case deploy.StatusFailed:
			status = color.RedString(s.Status)
		}
		if s.Detail != "" {
			fmt.Fprintf(stdout, "  %-9s %s (%s)\n", s.Name, status, s.Detail)
		} else {
			fmt.Fprintf(stdout, "  %-9s %s\n", s.Name, status)
		}
	}

	if res.FailedIdx >= 0 {
		if res.Created {
			fmt.Fprintf(stdout, "Build %s (id %s) was created and has no uploaded version.\n", res.Sanitized, res.BuildID)
		}
		return
	}
	if res.Created {
		fmt.Fprintf(stdout, "Created and uploaded build %s (id %s) in %s\n", res.Sanitized, res.BuildID, res.Duration)
	} else {
		fmt.Fprintf(stdout, "Uploaded a new version of build %s (id %s) in %s\n", res.Sanitized, res.BuildID, res.Duration)
	}
}

func newBuildsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "builds",
		Short: "List the builds of a project environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := o.resolve(cmd, config.ListParameters)
			if err != nil {
				return err
			}
			client, err := deploy.Connect(p, &runner.Runner{})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := client.Login(ctx, ugs.Credentials{KeyID: p.Key, Secret: p.Secret}); err != nil {
				return err
			}
			builds, err := client.ListBuilds(ctx, p.Project, p.Environment)
			if err != nil {
				return err
			}

			if o.json {
				return writeJSON(cmd.OutOrStdout(), builds.Records())
			}
			printBuilds(cmd.OutOrStdout(), builds)
			return nil
		},
	}
}

func printBuilds(w io.Writer, builds ugs.BuildMap) {
	if len(builds) == 0 {
		fmt.Fprintln(w, "No builds.")
		return
	}
	width := 0
	for name := range builds {
		width = max(width, len(name))
	}
	for _, r := range builds.Records() {
		fmt.Fprintf(w, "%s  %s\n", color.CyanString("%-*s", width, r.Name), r.ID)
	}
}

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <name>",
		Short: "Print the build name a git ref or free text deploys as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := buildname.Sanitize(args[0])
			if name == "" {
				return fmt.Errorf("build name %q is empty after sanitizing", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			if name != args[0] {
				fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("changed from %q", args[0]))
			}
			return nil
		},
	}
}
