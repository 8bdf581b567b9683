package ci

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReporter(t *testing.T, env map[string]string) (*Reporter, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return New(&buf, func(k string) string { return env[k] }), &buf
}

func TestReporter_DisabledOutsideActions(t *testing.T) {
	r, buf := newReporter(t, map[string]string{})
	require.False(t, r.Enabled())

	r.Warn("renamed %s", "x")
	r.Fail(errors.New("boom"))
	r.Mask("secret")
	r.StepStarted("login")
	r.StepFinished("login", nil)
	r.SetBuildOutputs("1", "main", true)
	assert.Empty(t, buf.String())
}

func TestReporter_Annotations(t *testing.T) {
	r, buf := newReporter(t, map[string]string{"GITHUB_ACTIONS": "true"})
	require.True(t, r.Enabled())

	r.Warn("Build name %q changed to %q", "refs/heads/main", "main")
	r.Fail(errors.New("no build name matching main"))

	out := buf.String()
	assert.Contains(t, out, "::warning::")
	assert.Contains(t, out, "changed to")
	assert.Contains(t, out, "::error::no build name matching main")
}

func TestReporter_FailNilIsNoop(t *testing.T) {
	r, buf := newReporter(t, map[string]string{"GITHUB_ACTIONS": "true"})
	r.Fail(nil)
	assert.Empty(t, buf.String())
}

func TestReporter_Mask(t *testing.T) {
	r, buf := newReporter(t, map[string]string{"GITHUB_ACTIONS": "true"})
	r.Mask("")
	assert.Empty(t, buf.String())
	r.Mask("hunter2")
	assert.Contains(t, buf.String(), "::add-mask::hunter2")
}

func TestReporter_StepGroups(t *testing.T) {
	r, buf := newReporter(t, map[string]string{"GITHUB_ACTIONS": "true"})
	r.StepStarted("upload")
	r.StepFinished("upload", nil)
	assert.Contains(t, buf.String(), "::group::upload")
	assert.Contains(t, buf.String(), "::endgroup::")
}

func TestReporter_SetBuildOutputs(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(outFile, nil, 0o644))

	r, _ := newReporter(t, map[string]string{
		"GITHUB_ACTIONS": "true",
		"GITHUB_OUTPUT":  outFile,
	})
	r.SetBuildOutputs("4242", "main", false)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), OutputBuildID)
	assert.Contains(t, string(data), "4242")
	assert.Contains(t, string(data), OutputBuildName)
	assert.Contains(t, string(data), OutputBuildCreated)
	assert.Contains(t, string(data), "false")
}

func TestReporter_Lookup(t *testing.T) {
	r, _ := newReporter(t, map[string]string{
		"INPUT_BUILDNAME": " refs/heads/main ",
	})
	v, ok := r.Lookup("BuildName")
	require.True(t, ok)
	assert.Equal(t, "refs/heads/main", v)

	_, ok = r.Lookup("Project")
	assert.False(t, ok)
}

func TestReporter_Redirect(t *testing.T) {
	r, buf := newReporter(t, map[string]string{"GITHUB_ACTIONS": "true"})
	var other bytes.Buffer
	r.Redirect(&other)

	r.StepStarted("login")
	r.Mask("secret")
	assert.Empty(t, buf.String())
	assert.Contains(t, other.String(), "::group::login")
	assert.Contains(t, other.String(), "::add-mask::secret")
}
