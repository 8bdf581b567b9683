package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok && v != ""
}

func fullSource() mapSource {
	return mapSource{
		Project:             "p",
		Environment:         "production",
		Key:                 "key-id",
		Secret:              "secret-value",
		BuildName:           "refs/heads/main",
		BuildOsFamily:       "linux",
		BuildFilesDirectory: "Build/Linux",
	}
}

func TestResolve_AllPresent(t *testing.T) {
	r := &Resolver{Sources: []Source{fullSource()}}
	p, err := r.Resolve(DeployParameters)
	require.NoError(t, err)
	assert.Equal(t, "p", p.Project)
	assert.Equal(t, "secret-value", p.Secret)
	assert.Equal(t, "LINUX", p.BuildOsFamily)
	assert.Equal(t, "refs/heads/main", p.BuildName)
	assert.Equal(t, DefaultServiceModule, p.ServiceModule)
	assert.Equal(t, DefaultCLIDirectory, p.CLIDirectory)
	assert.Nil(t, p.UploadArgs)
}

func TestResolve_MissingNamesEveryParameter(t *testing.T) {
	src := fullSource()
	delete(src, Project)
	delete(src, Secret)

	r := &Resolver{Sources: []Source{src}}
	_, err := r.Resolve(DeployParameters)

	var missing *MissingParameterError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{Project, Secret}, missing.Names)
	assert.Equal(t, `missing required parameters "Project", "Secret"`, err.Error())
}

func TestResolve_MissingSingle(t *testing.T) {
	src := fullSource()
	src[BuildName] = ""
	r := &Resolver{Sources: []Source{src}}
	_, err := r.Resolve(DeployParameters)
	require.Error(t, err)
	assert.Equal(t, `missing required parameter "BuildName"`, err.Error())
}

func TestResolve_ListNeedsFewerParameters(t *testing.T) {
	r := &Resolver{Sources: []Source{mapSource{
		Project: "p", Environment: "e", Key: "k", Secret: "s",
	}}}
	p, err := r.Resolve(ListParameters)
	require.NoError(t, err)
	assert.Empty(t, p.BuildName)
}

func TestResolve_Precedence(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--project=from-flag"}))

	env := map[string]string{
		"UGS_ENVIRONMENT": "env-from-env",
		"UGS_KEY":         "key-from-env",
	}
	inputs := mapSource{Project: "from-input", Environment: "env-from-input"}

	r := &Resolver{Sources: []Source{
		FlagSource{Flags: fs},
		inputs,
		EnvSource{Prefix: "UGS_", Getenv: func(k string) string { return env[k] }},
		FileSource{Config: &Config{Project: "from-file", Key: "key-from-file", BuildOsFamily: "LINUX"}},
	}}

	v, _ := r.Lookup(Project)
	assert.Equal(t, "from-flag", v)
	v, _ = r.Lookup(Environment)
	assert.Equal(t, "env-from-input", v)
	v, _ = r.Lookup(Key)
	assert.Equal(t, "key-from-env", v)
	v, _ = r.Lookup(BuildOsFamily)
	assert.Equal(t, "LINUX", v)
}

func TestFileSource_NeverSuppliesSecret(t *testing.T) {
	s := FileSource{Config: &Config{Project: "p"}}
	_, ok := s.Lookup(Secret)
	assert.False(t, ok)

	_, ok = FileSource{}.Lookup(Project)
	assert.False(t, ok)
}

func TestFlags_CaseInsensitive(t *testing.T) {
	for _, arg := range []string{"--BuildName=x", "--buildname=x", "--build-name=x", "--BUILD_NAME=x"} {
		t.Run(arg, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			RegisterFlags(fs)
			require.NoError(t, fs.Parse([]string{arg}))
			v, ok := FlagSource{Flags: fs}.Lookup(BuildName)
			require.True(t, ok)
			assert.Equal(t, "x", v)
		})
	}
}

func TestFlagSource_UnsetFlagIsAbsent(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	_, ok := FlagSource{Flags: fs}.Lookup(Project)
	assert.False(t, ok)
}

func TestResolve_UploadArgs(t *testing.T) {
	src := fullSource()
	src[UploadArgs] = `--remove-old-files --label "nightly build"`
	r := &Resolver{Sources: []Source{src}}
	p, err := r.Resolve(DeployParameters)
	require.NoError(t, err)
	assert.Equal(t, []string{"--remove-old-files", "--label", "nightly build"}, p.UploadArgs)

	src[UploadArgs] = `"unterminated`
	_, err = r.Resolve(DeployParameters)
	require.Error(t, err)
}

func TestResolve_ConfigDefaults(t *testing.T) {
	module := "mp"
	cfg := &Config{RawServiceModule: &module, CLIDirectory: "/opt/ugs"}
	r := &Resolver{Sources: []Source{fullSource(), FileSource{Config: cfg}}, Config: cfg}
	p, err := r.Resolve(DeployParameters)
	require.NoError(t, err)
	assert.Equal(t, "mp", p.ServiceModule)
	assert.Equal(t, "/opt/ugs", p.CLIDirectory)

	src := fullSource()
	src[ServiceModule] = "gsh2"
	r = &Resolver{Sources: []Source{src}, Config: cfg}
	p, err = r.Resolve(DeployParameters)
	require.NoError(t, err)
	assert.Equal(t, "gsh2", p.ServiceModule)
}

func TestResolve_ExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/builder")
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	src := fullSource()
	src[BuildFilesDirectory] = "~/Build"
	r := &Resolver{Sources: []Source{src}}
	p, err := r.Resolve(DeployParameters)
	require.NoError(t, err)
	assert.Equal(t, "/home/builder/Build", p.BuildFilesDirectory)
}

func TestResolve_RejectsOddOsFamily(t *testing.T) {
	src := fullSource()
	src[BuildOsFamily] = "linux x64"
	r := &Resolver{Sources: []Source{src}}
	_, err := r.Resolve(DeployParameters)
	require.Error(t, err)
	assert.Contains(t, err.Error(), BuildOsFamily)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PROJECT", EnvName(Project))
	assert.Equal(t, "BUILD_OS_FAMILY", EnvName(BuildOsFamily))
	assert.Equal(t, "BUILD_FILES_DIRECTORY", EnvName(BuildFilesDirectory))
	assert.Equal(t, "CLI_DIRECTORY", EnvName(CLIDirectory))
}

func TestRedacted(t *testing.T) {
	assert.Equal(t, "", Redacted(""))
	assert.Equal(t, "****", Redacted("abc"))
	assert.Equal(t, "s****t", Redacted("secret"))
}

func TestIsParameter(t *testing.T) {
	assert.True(t, IsParameter("BuildName"))
	assert.True(t, IsParameter("buildname"))
	assert.True(t, IsParameter("build-os-family"))
	assert.True(t, IsParameter("CLI_DIRECTORY"))
	assert.False(t, IsParameter("config"))
	assert.False(t, IsParameter(""))
}

func TestParams_Rebase(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "ugs")
	p := &Params{BuildFilesDirectory: "Build", CLIDirectory: "./CliExe", Executable: abs}
	p.Rebase("/work")

	assert.Equal(t, filepath.Join("/work", "Build"), p.BuildFilesDirectory)
	assert.Equal(t, filepath.Join("/work", "CliExe"), p.CLIDirectory)
	assert.Equal(t, abs, p.Executable)

	q := &Params{BuildFilesDirectory: "Build"}
	q.Rebase("")
	assert.Equal(t, "Build", q.BuildFilesDirectory)
}

func TestResolve_KeepsSurroundingWhitespace(t *testing.T) {
	env := map[string]string{
		"UGS_SECRET":     " s3cret ",
		"UGS_BUILD_NAME": "main ",
		"UGS_PROJECT":    "  ",
	}
	r := &Resolver{Sources: []Source{EnvSource{Prefix: EnvPrefix, Getenv: func(k string) string { return env[k] }}}}

	p, err := r.Resolve([]string{Secret, BuildName})
	require.NoError(t, err)
	assert.Equal(t, " s3cret ", p.Secret)
	assert.Equal(t, "main ", p.BuildName)

	_, err = r.Resolve([]string{Project})
	var missing *MissingParameterError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{Project}, missing.Names)
}
