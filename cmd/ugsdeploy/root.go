package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/condensereality/UnityGameHostingAction/internal/ci"
	"github.com/condensereality/UnityGameHostingAction/internal/config"
)

// rootOptions holds the state shared by every command.
type rootOptions struct {
	reporter   *ci.Reporter
	configPath string
	json       bool
}

func newRootCmd(reporter *ci.Reporter) *cobra.Command {
	o := &rootOptions{reporter: reporter}

	root := &cobra.Command{
		Use:   "ugsdeploy [Name=Value ...]",
		Short: "Upload a game server build to Unity Game Server Hosting",
		Long: `Upload a directory as a new version of a Unity Game Server Hosting build,
creating the build first if no build of that name exists.

Parameters are read from flags (or Name=Value arguments), GitHub Actions
inputs, UGS_<NAME> environment variables and .ugsdeploy.yaml, in that order.
The secret is never read from the config file; prefer UGS_SECRET.

Running ugsdeploy without a command deploys.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          o.runDeploy,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if o.json {
				o.reporter.Redirect(cmd.ErrOrStderr())
			}
		},
	}

	pf := root.PersistentFlags()
	config.RegisterFlags(pf)
	pf.StringVar(&o.configPath, "config", "", "config file (default: "+config.FileName+" in the working directory or a parent)")
	pf.BoolVar(&o.json, "json", false, "print results as JSON")

	root.AddCommand(
		newDeployCmd(o),
		newBuildsCmd(o),
		newSanitizeCmd(),
		newVersionCmd(),
		newMCPCmd(o),
	)
	root.SetGlobalNormalizationFunc(config.NormalizeFlagName)
	return root
}

func (o *rootOptions) loadConfig() (*config.LoadResult, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}
	return config.Load(workspace)
}

// resolve reads the parameters of cmd, failing if any of required is missing.
// The secret is masked in CI logs once known.
func (o *rootOptions) resolve(cmd *cobra.Command, required []string) (*config.Params, error) {
	loaded, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if loaded.Path != "" {
		log.Debug().Str("path", loaded.Path).Msg("loaded config")
	}

	r := &config.Resolver{
		Sources: []config.Source{
			config.FlagSource{Flags: cmd.Flags()},
			o.reporter,
			config.EnvSource{Prefix: config.EnvPrefix},
			config.FileSource{Config: loaded.Config},
		},
		Config: loaded.Config,
	}
	p, err := r.Resolve(required)
	if err != nil {
		return nil, err
	}
	o.reporter.Mask(p.Secret)

	log.Debug().
		Interface("params", p).
		Str("secret", config.Redacted(p.Secret)).
		Msg("resolved parameters")
	return p, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
