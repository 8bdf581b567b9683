// Package ugs drives the Unity Gaming Services command line tool: login,
// build listing and creation, and build version upload.
package ugs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/condensereality/UnityGameHostingAction/internal/decode"
	"github.com/condensereality/UnityGameHostingAction/internal/runner"
)

var validate = validator.New()

// CommandRunner executes the tool.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, exe string, argv []string, opts ...runner.Option) (*runner.Result, error)
}

// Client is bound to one ugs executable. Calls are issued one at a time.
type Client struct {
	Exe        string
	Runner     CommandRunner
	Module     string   // prefix for build commands, e.g. "gsh"; empty for none
	UploadArgs []string // appended to create-version
}

// NewClient returns a Client for exe, failing if the file does not exist.
func NewClient(exe string, r CommandRunner) (*Client, error) {
	info, err := os.Stat(exe)
	if err != nil {
		return nil, fmt.Errorf("exe file not found at; %s: %w", exe, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("exe path %s is a directory", exe)
	}
	return &Client{Exe: exe, Runner: r, Module: "gsh"}, nil
}

// Version returns the tool's version output as printed.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.Runner.Run(ctx, c.Exe, []string{"--version"})
	if err != nil {
		return "", fmt.Errorf("getting version: %w", err)
	}
	text, _ := res.StdoutText()
	return text, nil
}

// Login stores creds with the tool. The secret is written to the tool's
// standard input and never appears in its arguments.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if creds.KeyID == "" {
		return &ValidationError{Op: "login", Field: "service key id"}
	}
	if creds.Secret == "" {
		return &ValidationError{Op: "login", Field: "secret"}
	}

	argv := []string{"login", "--json", "--service-key-id", creds.KeyID, "--secret-key-stdin"}
	out, err := c.runJSON(ctx, argv, runner.WithStdin(strings.NewReader(creds.Secret+"\n")))
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !decode.Truthy(out) {
		return &RemoteError{Op: "login", Message: "no output"}
	}

	obj, _ := out.(map[string]any)
	if msg, ok := obj["Error"]; ok && decode.Truthy(msg) {
		return &RemoteError{Op: "login", Message: fmt.Sprint(msg)}
	}

	event := log.Info().Object("credentials", creds)
	if msg, ok := obj["Message"].(string); ok && msg != "" {
		event.Str("message", msg).Msg("credentials set")
		return nil
	}
	raw, _ := json.Marshal(out)
	event.RawJSON("output", raw).Msg("credentials set")
	return nil
}

// ListBuilds returns the builds of project/environment by name. When the
// service reports a name twice the later entry wins.
func (c *Client) ListBuilds(ctx context.Context, project, environment string) (BuildMap, error) {
	argv := c.buildArgs("list", "--json", "--environment-name", environment, "--project-id", project)
	out, err := c.runJSON(ctx, argv)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	builds, err := fold(out)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	log.Info().
		Str("project", project).
		Str("environment", environment).
		Interface("builds", builds).
		Msg("listed builds")
	return builds, nil
}

// CreateBuild creates a file-upload build and returns the builds the service
// reports back, by name.
func (c *Client) CreateBuild(ctx context.Context, name, osFamily, project, environment string) (BuildMap, error) {
	target := BuildTarget{Project: project, Environment: environment, BuildName: name, OsFamily: osFamily}
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	argv := c.buildArgs("create", "--json",
		"--name", name,
		"--os-family", osFamily,
		"--type", BuildFileUpload,
		"--environment-name", environment,
		"--project-id", project,
	)
	out, err := c.runJSON(ctx, argv)
	if err != nil {
		return nil, fmt.Errorf("creating build %s: %w", name, err)
	}
	builds, err := fold(out)
	if err != nil {
		return nil, fmt.Errorf("creating build %s: %w", name, err)
	}
	log.Info().Interface("builds", builds).Msg("created build")
	return builds, nil
}

// BuildID looks name up in a fresh listing.
func (c *Client) BuildID(ctx context.Context, name, project, environment string) (string, error) {
	builds, err := c.ListBuilds(ctx, project, environment)
	if err != nil {
		return "", err
	}
	id, ok := builds[name]
	if !ok {
		return "", &NotFoundError{Name: name, Known: builds.Names()}
	}
	return id, nil
}

// UploadVersion uploads dir as a new version of build id.
func (c *Client) UploadVersion(ctx context.Context, id, dir, project, environment string) (*runner.Result, error) {
	if id == "" {
		return nil, &ValidationError{Op: "upload build version", Field: "build id"}
	}
	if dir == "" {
		return nil, &ValidationError{Op: "upload build version", Field: "directory"}
	}

	argv := c.buildArgs("create-version", id,
		"--directory", dir,
		"--environment-name", environment,
		"--project-id", project,
	)
	argv = append(argv, c.UploadArgs...)

	res, err := c.Runner.Run(ctx, c.Exe, argv)
	if err != nil {
		return nil, fmt.Errorf("uploading build version: %w", err)
	}
	log.Info().Str("build_id", id).Strs("output", res.Stdout).Msg("uploaded build version")
	return res, nil
}

func (c *Client) runJSON(ctx context.Context, argv []string, opts ...runner.Option) (any, error) {
	res, err := c.Runner.Run(ctx, c.Exe, argv, opts...)
	if err != nil {
		return nil, err
	}
	return decode.Output(res)
}

// buildArgs prefixes a build subcommand with the service module.
func (c *Client) buildArgs(sub string, args ...string) []string {
	argv := make([]string, 0, len(args)+3)
	if c.Module != "" {
		argv = append(argv, c.Module)
	}
	argv = append(argv, "build", sub)
	return append(argv, args...)
}

// fold turns decoded build records into a BuildMap. Records without a
// BuildName are skipped.
func fold(v any) (BuildMap, error) {
	objs, err := decode.Objects(v)
	if err != nil {
		return nil, err
	}
	builds := make(BuildMap, len(objs))
	for _, obj := range objs {
		name, _ := obj["BuildName"].(string)
		if name == "" {
			log.Debug().Interface("record", obj).Msg("skipping build record without a name")
			continue
		}
		builds[name] = idString(obj["BuildId"])
	}
	return builds, nil
}

func validateTarget(t BuildTarget) error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating build target: %w", err)
	}
	switch verrs[0].Field() {
	case "BuildName":
		return &ValidationError{Op: "create build", Field: "build name"}
	case "OsFamily":
		return &ValidationError{Op: "create build", Field: "build os family", Hint: "expecting LINUX"}
	}
	return &ValidationError{Op: "create build", Field: verrs[0].Field()}
}
