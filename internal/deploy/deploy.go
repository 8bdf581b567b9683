// Package deploy sequences a build upload: login, build lookup, conditional
// creation and version upload. It is consumed by both the MCP server and the
// CLI commands.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/condensereality/UnityGameHostingAction/internal/buildname"
	"github.com/condensereality/UnityGameHostingAction/internal/config"
	"github.com/condensereality/UnityGameHostingAction/internal/runner"
	"github.com/condensereality/UnityGameHostingAction/internal/ugs"
)

// Step names, in execution order.
const (
	StepVersion  = "version"
	StepLogin    = "login"
	StepList     = "list"
	StepSanitize = "sanitize"
	StepCreate   = "create"
	StepResolve  = "resolve"
	StepUpload   = "upload"
)

// Steps lists every step of a deploy in order.
var Steps = []string{StepVersion, StepLogin, StepList, StepSanitize, StepCreate, StepResolve, StepUpload}

// Step statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Service is the subset of ugs.Client a deploy needs.
type Service interface {
	Version(ctx context.Context) (string, error)
	Login(ctx context.Context, creds ugs.Credentials) error
	ListBuilds(ctx context.Context, project, environment string) (ugs.BuildMap, error)
	CreateBuild(ctx context.Context, name, osFamily, project, environment string) (ugs.BuildMap, error)
	BuildID(ctx context.Context, name, project, environment string) (string, error)
	UploadVersion(ctx context.Context, id, dir, project, environment string) (*runner.Result, error)
}

// Observer is told about step progress. Implemented by ci.Reporter.
type Observer interface {
	StepStarted(name string)
	StepFinished(name string, err error)
	Warn(format string, args ...any)
}

// StepError wraps the failure of one step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepResult holds the outcome of a single step.
type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok, skipped, failed
	Detail string `json:"detail,omitempty"`
}

// Result is the report of one deploy run.
type Result struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"started_at"`
	Duration    string       `json:"duration"`
	Project     string       `json:"project"`
	Environment string       `json:"environment"`
	Version     string       `json:"tool_version,omitempty"`
	BuildName   string       `json:"build_name"`     // as requested
	Sanitized   string       `json:"sanitized_name"` // as used
	Builds      ugs.BuildMap `json:"builds,omitempty"`
	BuildID     string       `json:"build_id,omitempty"`
	Created     bool         `json:"created"`
	Files       int          `json:"files,omitempty"`
	Bytes       int64        `json:"bytes,omitempty"`
	Steps       []StepResult `json:"steps"`
	FailedIdx   int          `json:"failed_idx"` // -1 if all passed
	Error       string       `json:"error,omitempty"`
}

// Renamed reports whether sanitizing changed the build name.
func (r *Result) Renamed() bool {
	return r.Sanitized != "" && r.Sanitized != r.BuildName
}

// Deployer runs deploys against one service.
type Deployer struct {
	Service  Service
	Observer Observer // may be nil
}

// Run executes every step in order and stops at the first failure, which is
// returned as a *StepError. The Result is returned in both cases.
func (d *Deployer) Run(ctx context.Context, p *config.Params) (*Result, error) {
	res := &Result{
		ID:          uuid.New().String(),
		StartedAt:   time.Now(),
		Project:     p.Project,
		Environment: p.Environment,
		BuildName:   p.BuildName,
		FailedIdx:   -1,
	}
	res.Steps = make([]StepResult, len(Steps))
	for i, name := range Steps {
		res.Steps[i] = StepResult{Name: name, Status: StatusSkipped}
	}

	logger := log.With().Str("deploy_id", res.ID).Logger()
	logger.Info().
		Str("project", p.Project).
		Str("environment", p.Environment).
		Str("build_name", p.BuildName).
		Msg("starting deploy")

	for i, name := range Steps {
		if err := ctx.Err(); err != nil {
			return d.fail(res, i, err)
		}
		d.started(name)
		detail, skipped, err := d.runStep(ctx, name, p, res)
		d.finished(name, err)
		if err != nil {
			return d.fail(res, i, err)
		}
		res.Steps[i].Detail = detail
		if !skipped {
			res.Steps[i].Status = StatusOK
		}
		logger.Debug().Str("step", name).Str("status", res.Steps[i].Status).Str("detail", detail).Msg("step finished")
	}

	res.Duration = time.Since(res.StartedAt).Round(time.Millisecond).String()
	logger.Info().
		Str("build_name", res.Sanitized).
		Str("build_id", res.BuildID).
		Bool("created", res.Created).
		Str("duration", res.Duration).
		Msg("deploy complete")
	return res, nil
}

func (d *Deployer) runStep(ctx context.Context, name string, p *config.Params, res *Result) (detail string, skipped bool, err error) {
	switch name {
	case StepVersion:
		v, err := d.Service.Version(ctx)
		if err != nil {
			return "", false, err
		}
		res.Version = v
		log.Info().Str("version", v).Msg("ugs version")
		return v, false, nil

	case StepLogin:
		creds := ugs.Credentials{KeyID: p.Key, Secret: p.Secret}
		if err := d.Service.Login(ctx, creds); err != nil {
			return "", false, err
		}
		return "key " + p.Key, false, nil

	case StepList:
		builds, err := d.Service.ListBuilds(ctx, p.Project, p.Environment)
		if err != nil {
			return "", false, err
		}
		res.Builds = builds
		return fmt.Sprintf("%d builds", len(builds)), false, nil

	case StepSanitize:
		res.Sanitized = buildname.Sanitize(p.BuildName)
		if res.Renamed() {
			log.Warn().Str("from", p.BuildName).Str("to", res.Sanitized).Msg("build name sanitized")
			d.warn("Build name %q was changed to %q", p.BuildName, res.Sanitized)
			return fmt.Sprintf("%s -> %s", p.BuildName, res.Sanitized), false, nil
		}
		return res.Sanitized, false, nil

	case StepCreate:
		if _, ok := res.Builds[res.Sanitized]; ok {
			return "build exists", true, nil
		}
		created, err := d.Service.CreateBuild(ctx, res.Sanitized, p.BuildOsFamily, p.Project, p.Environment)
		if err != nil {
			return "", false, err
		}
		res.Created = true
		return fmt.Sprintf("created %d builds", len(created)), false, nil

	case StepResolve:
		id, err := d.Service.BuildID(ctx, res.Sanitized, p.Project, p.Environment)
		if err != nil {
			return "", false, err
		}
		res.BuildID = id
		return id, false, nil

	case StepUpload:
		// The size is informational; the tool reports a bad directory itself.
		stats, measureErr := Measure(p.BuildFilesDirectory)
		if measureErr != nil {
			log.Warn().Err(measureErr).Str("directory", p.BuildFilesDirectory).Msg("measuring build files")
		} else {
			res.Files, res.Bytes = stats.Files, stats.Bytes
			log.Debug().
				Str("directory", p.BuildFilesDirectory).
				Int("files", stats.Files).
				Str("size", stats.HumanSize()).
				Msg("build files")
		}
		if _, err := d.Service.UploadVersion(ctx, res.BuildID, p.BuildFilesDirectory, p.Project, p.Environment); err != nil {
			return "", false, err
		}
		if measureErr != nil {
			return p.BuildFilesDirectory, false, nil
		}
		return fmt.Sprintf("%d files, %s", stats.Files, stats.HumanSize()), false, nil
	}
	return "", false, fmt.Errorf("unknown step: %s", name)
}

func (d *Deployer) fail(res *Result, idx int, err error) (*Result, error) {
	stepErr := &StepError{Step: Steps[idx], Err: err}
	res.Steps[idx].Status = StatusFailed
	res.Steps[idx].Detail = err.Error()
	res.FailedIdx = idx
	res.Error = stepErr.Error()
	res.Duration = time.Since(res.StartedAt).Round(time.Millisecond).String()
	log.Error().Err(err).Str("deploy_id", res.ID).Str("step", stepErr.Step).Msg("deploy failed")
	return res, stepErr
}

func (d *Deployer) started(name string) {
	if d.Observer != nil {
		d.Observer.StepStarted(name)
	}
}

func (d *Deployer) finished(name string, err error) {
	if d.Observer != nil {
		d.Observer.StepFinished(name, err)
	}
}

func (d *Deployer) warn(format string, args ...any) {
	if d.Observer != nil {
		d.Observer.Warn(format, args...)
	}
}
