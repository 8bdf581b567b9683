// Package ci reports run progress and results to a GitHub Actions runner:
// step groups, warnings, failures and step outputs. Outside Actions every
// call except input lookup is a no-op.
package ci

import (
	"fmt"
	"io"
	"os"

	"github.com/sethvargo/go-githubactions"
)

// Output names set after a deploy.
const (
	OutputBuildID      = "build_id"
	OutputBuildName    = "build_name"
	OutputBuildCreated = "build_created"
)

// Reporter wraps a githubactions.Action.
type Reporter struct {
	action  *githubactions.Action
	getenv  func(string) string
	enabled bool
}

// New returns a Reporter writing workflow commands to w. getenv defaults to
// os.Getenv; the Reporter is enabled when GITHUB_ACTIONS is "true".
func New(w io.Writer, getenv func(string) string) *Reporter {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Reporter{
		action:  newAction(w, getenv),
		getenv:  getenv,
		enabled: getenv("GITHUB_ACTIONS") == "true",
	}
}

// Redirect sends later workflow commands to w. The runner reads commands from
// both stdout and stderr, so stdout can be kept free for a report.
func (r *Reporter) Redirect(w io.Writer) {
	r.action = newAction(w, r.getenv)
}

func newAction(w io.Writer, getenv func(string) string) *githubactions.Action {
	return githubactions.New(
		githubactions.WithWriter(w),
		githubactions.WithGetenv(getenv),
	)
}

// Enabled reports whether workflow commands are emitted.
func (r *Reporter) Enabled() bool { return r.enabled }

// Lookup returns the action input called name (INPUT_<NAME>). Inputs are read
// even outside Actions.
func (r *Reporter) Lookup(name string) (string, bool) {
	v := r.action.GetInput(name)
	return v, v != ""
}

// Mask hides value in all later runner logs.
func (r *Reporter) Mask(value string) {
	if !r.enabled || value == "" {
		return
	}
	r.action.AddMask(value)
}

// Warn emits a warning annotation.
func (r *Reporter) Warn(format string, args ...any) {
	if !r.enabled {
		return
	}
	r.action.Warningf(format, args...)
}

// Fail emits an error annotation for err.
func (r *Reporter) Fail(err error) {
	if !r.enabled || err == nil {
		return
	}
	r.action.Errorf("%v", err)
}

// StepStarted opens a collapsible log group.
func (r *Reporter) StepStarted(name string) {
	if !r.enabled {
		return
	}
	r.action.Group(name)
}

// StepFinished closes the group opened by StepStarted.
func (r *Reporter) StepFinished(string, error) {
	if !r.enabled {
		return
	}
	r.action.EndGroup()
}

// SetBuildOutputs publishes the deployed build as step outputs.
func (r *Reporter) SetBuildOutputs(buildID, buildName string, created bool) {
	if !r.enabled {
		return
	}
	r.action.SetOutput(OutputBuildID, buildID)
	r.action.SetOutput(OutputBuildName, buildName)
	r.action.SetOutput(OutputBuildCreated, fmt.Sprint(created))
}
