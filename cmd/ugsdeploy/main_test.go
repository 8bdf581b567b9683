package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ugsaction "github.com/condensereality/UnityGameHostingAction"
	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/deploy"
	ugsmcp "github.com/condensereality/UnityGameHostingAction/internal/mcp"
	"github.com/condensereality/UnityGameHostingAction/internal/testutil/fakeugs"
	"github.com/condensereality/UnityGameHostingAction/internal/ugs"
)

func TestMain(m *testing.M) {
	fakeugs.RunMain()
	color.NoColor = true
	os.Exit(m.Run())
}

var parameterNames = []string{
	config.Project, config.Environment, config.Key, config.Secret, config.BuildName,
	config.BuildOsFamily, config.BuildFilesDirectory, config.Executable,
	config.CLIDirectory, config.ServiceModule, config.UploadArgs,
}

// isolateEnv clears every environment variable a parameter could be read
// from, and turns GitHub Actions reporting off.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range parameterNames {
		t.Setenv(config.EnvPrefix+config.EnvName(name), "")
		t.Setenv("INPUT_"+strings.ToUpper(name), "")
	}
	t.Setenv("GITHUB_ACTIONS", "")
	t.Setenv("GITHUB_OUTPUT", "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// setupFake installs the fake tool and returns a config file pointing at it
// and a directory of build files. The secret comes from UGS_SECRET.
func setupFake(t *testing.T, st fakeugs.State) (*fakeugs.Fake, string, string) {
	t.Helper()
	isolateEnv(t)
	fake := fakeugs.Install(t, st)
	t.Setenv("UGS_SECRET", "secret")

	cfg := writeConfig(t, fmt.Sprintf(
		"project: proj\nenvironment: production\nkey: key-id\nbuild_os_family: linux\nexecutable: %q\n",
		fake.Exe,
	))

	files := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(files, "server.x86_64"), []byte("binary"), 0o644))
	return fake, cfg, files
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(append([]string{"ugsdeploy"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestMainVersion(t *testing.T) {
	out, _, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, ugsaction.Version+"\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, ugsaction.Version+"\n", out)
}

func TestMainUnknownCommand(t *testing.T) {
	_, _, err := run(t, "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRunMainSuccess(t *testing.T) {
	var out bytes.Buffer
	called := false
	runMain([]string{"ugsdeploy", "--version"}, &out, &out, func(int) { called = true })
	assert.False(t, called)
}

func TestRunMainError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := 0
	runMain([]string{"ugsdeploy", "unknown"}, &stdout, &stderr, func(c int) { code = c })
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestSanitize(t *testing.T) {
	out, errOut, err := run(t, "sanitize", "refs/pull/123/merge")
	require.NoError(t, err)
	assert.Equal(t, "PullRequest-123-merge\n", out)
	assert.Contains(t, errOut, "changed from")
}

func TestSanitize_LegalNameUnchanged(t *testing.T) {
	out, errOut, err := run(t, "sanitize", "main")
	require.NoError(t, err)
	assert.Equal(t, "main\n", out)
	assert.Empty(t, errOut)
}

func TestSanitize_NeedsOneName(t *testing.T) {
	_, _, err := run(t, "sanitize")
	require.Error(t, err)
}

func TestDeploy_CreatesAndUploads(t *testing.T) {
	fake, cfg, files := setupFake(t, fakeugs.State{})

	out, errOut, err := run(t, "--config", cfg, "BuildName=refs/heads/main", "-BuildFilesDirectory="+files)
	require.NoError(t, err)

	assert.Equal(t, []string{"--version", "login", "list", "create", "list", "create-version"}, fake.Commands(t))
	assert.Contains(t, out, "Created and uploaded build main (id 1)")
	assert.Contains(t, errOut, `changed to "main"`)

	st := fake.State(t)
	require.Len(t, st.Uploads, 1)
	assert.Equal(t, files, st.Uploads[0].Directory)
	assert.Equal(t, "LINUX", st.Builds[0].OsFamily)
}

func TestDeploy_ExistingBuildJSON(t *testing.T) {
	fake, cfg, files := setupFake(t, fakeugs.State{
		DoubledCommas: true,
		Builds: []fakeugs.Build{
			{BuildName: "main", BuildID: 11},
			{BuildName: "develop", BuildID: 12},
		},
	})

	out, _, err := run(t, "deploy", "--json", "--config", cfg, "--build-name", "main", "--build-files-directory", files)
	require.NoError(t, err)

	var res deploy.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Created)
	assert.Equal(t, "11", res.BuildID)
	assert.Equal(t, -1, res.FailedIdx)
	assert.NotContains(t, fake.Commands(t), "create")
}

func TestDeploy_FlagBeatsConfig(t *testing.T) {
	fake, cfg, files := setupFake(t, fakeugs.State{})

	_, _, err := run(t, "--config", cfg, "--Project=other", "BuildName=main", "BuildFilesDirectory="+files)
	require.NoError(t, err)

	for _, call := range fake.Calls(t) {
		for i, arg := range call {
			if arg == "--project-id" {
				assert.Equal(t, "other", call[i+1])
			}
		}
	}
}

func TestDeploy_MissingParameters(t *testing.T) {
	isolateEnv(t)
	cfg := writeConfig(t, "")

	_, _, err := run(t, "--config", cfg)
	var missing *config.MissingParameterError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, config.DeployParameters, missing.Names)
}

func TestDeploy_MissingConfigFile(t *testing.T) {
	isolateEnv(t)
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestDeploy_GitHubActions(t *testing.T) {
	fake, cfg, files := setupFake(t, fakeugs.State{})
	outputs := filepath.Join(t.TempDir(), "outputs")
	require.NoError(t, os.WriteFile(outputs, nil, 0o644))
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_OUTPUT", outputs)
	t.Setenv("INPUT_BUILDNAME", "refs/heads/release")
	t.Setenv("INPUT_BUILDFILESDIRECTORY", files)

	out, _, err := run(t, "--config", cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "::add-mask::secret")
	assert.Contains(t, out, "::group::login")
	assert.Contains(t, out, "::warning::")
	assert.Len(t, fake.State(t).Uploads, 1)

	data, err := os.ReadFile(outputs)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build_id")
	assert.Contains(t, string(data), "release")
}

func TestDeploy_JSONUnderGitHubActions(t *testing.T) {
	_, cfg, files := setupFake(t, fakeugs.State{})
	t.Setenv("GITHUB_ACTIONS", "true")

	out, errOut, err := run(t, "deploy", "--json", "--config", cfg, "BuildName=refs/heads/main", "BuildFilesDirectory="+files)
	require.NoError(t, err)

	var res deploy.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.True(t, res.Created)
	assert.Contains(t, errOut, "::group::login")
	assert.Contains(t, errOut, "::warning::")
}

func TestDeploy_UploadFailureReported(t *testing.T) {
	_, cfg, files := setupFake(t, fakeugs.State{FailCommand: "create-version"})
	t.Setenv("GITHUB_ACTIONS", "true")

	out, _, err := run(t, "--config", cfg, "BuildName=main", "BuildFilesDirectory="+files)
	require.Error(t, err)

	var stepErr *deploy.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, deploy.StepUpload, stepErr.Step)
	assert.Contains(t, out, "::error::")
	assert.Contains(t, out, "was created and has no uploaded version")
}

func TestDeploy_BadSecret(t *testing.T) {
	fake, cfg, files := setupFake(t, fakeugs.State{Secret: "other"})

	_, _, err := run(t, "--config", cfg, "BuildName=main", "BuildFilesDirectory="+files)
	var remote *ugs.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Contains(t, err.Error(), "Invalid service account credentials")
	assert.Equal(t, []string{"--version", "login"}, fake.Commands(t))
}

func TestBuilds(t *testing.T) {
	_, cfg, _ := setupFake(t, fakeugs.State{
		Builds: []fakeugs.Build{
			{BuildName: "main", BuildID: 11},
			{BuildName: "develop", BuildID: 12},
		},
	})

	out, _, err := run(t, "builds", "--config", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "develop  12", lines[0])
	assert.Equal(t, "main     11", lines[1])
}

func TestBuilds_JSON(t *testing.T) {
	_, cfg, _ := setupFake(t, fakeugs.State{
		Builds: []fakeugs.Build{{BuildName: "main", BuildID: 11}},
	})

	out, _, err := run(t, "builds", "--json", "--config", cfg)
	require.NoError(t, err)

	var records []ugs.BuildRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Equal(t, []ugs.BuildRecord{{Name: "main", ID: "11"}}, records)
}

func TestBuilds_Empty(t *testing.T) {
	_, cfg, _ := setupFake(t, fakeugs.State{})

	out, _, err := run(t, "builds", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "No builds.\n", out)
}

func TestMCPInstructions(t *testing.T) {
	out, _, err := run(t, "mcp", "--instructions")
	require.NoError(t, err)
	assert.Equal(t, ugsmcp.Instructions, out)
}
