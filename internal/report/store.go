// Package report keeps the results of deploy and list runs for later
// retrieval by id. Results live in memory for the lifetime of the process.
package report

import (
	"errors"
	"fmt"

	"github.com/condensereality/UnityGameHostingAction/internal/deploy"
	"github.com/condensereality/UnityGameHostingAction/internal/ugs"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Deploy is a full deploy run.
	Deploy Kind = "deploy"
	// List is a build listing.
	List Kind = "list"
)

// ErrNotFound is returned by Load for unknown run ids.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured output of one run.
type RunResult struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Project     string `json:"project"`
	Environment string `json:"environment"`

	// Deploy fields.
	Deploy *deploy.Result `json:"deploy,omitempty"`

	// List fields.
	Builds []ugs.BuildRecord `json:"builds,omitempty"`
}

// FromDeploy wraps a deploy result.
func FromDeploy(res *deploy.Result) *RunResult {
	return &RunResult{
		ID:          res.ID,
		Kind:        Deploy,
		Project:     res.Project,
		Environment: res.Environment,
		Deploy:      res,
	}
}

// Expect returns an error if the run's Kind does not match want.
func (r *RunResult) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// Failure describes the failed step of a deploy.
type Failure struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Failures returns the failed steps of r; empty for successful or list runs.
func Failures(r *RunResult) []Failure {
	if r.Deploy == nil {
		return nil
	}
	var out []Failure
	for _, s := range r.Deploy.Steps {
		if s.Status == deploy.StatusFailed {
			out = append(out, Failure{Step: s.Name, Message: s.Detail})
		}
	}
	return out
}

// ByStep returns the record of the named step, or false if r has none.
func ByStep(r *RunResult, step string) (deploy.StepResult, bool) {
	if r.Deploy == nil {
		return deploy.StepResult{}, false
	}
	for _, s := range r.Deploy.Steps {
		if s.Name == step {
			return s, true
		}
	}
	return deploy.StepResult{}, false
}
