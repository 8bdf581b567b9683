// Package runner provides command execution with complete, ordered capture
// of stdout and stderr and typed process failures.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Runner executes external commands and waits for them to terminate.
// No timeout is imposed; a run ends when the process exits or ctx is cancelled.
type Runner struct {
	Dir    string          // working directory, empty for the current one
	Logger *zerolog.Logger // defaults to the global logger
}

// Option configures a single invocation.
type Option func(*options)

type options struct {
	stdin        io.Reader
	allowNonZero bool
}

// WithStdin pipes r to the child's standard input.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// StdinOf returns the reader set by WithStdin in opts, or nil.
func StdinOf(opts ...Option) io.Reader {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o.stdin
}

// AllowNonZeroExit makes a non-zero exit code a logged warning instead of an error.
// A process that terminates without an exit code is still an error.
func AllowNonZeroExit() Option {
	return func(o *options) {
		o.allowNonZero = true
	}
}

// Run executes exe with argv and returns the captured output.
func (r *Runner) Run(ctx context.Context, exe string, argv []string, opts ...Option) (*Result, error) {
	if exe == "" {
		return nil, fmt.Errorf("empty executable path")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := r.logger()
	runID := uuid.New().String()

	cmd := exec.CommandContext(ctx, exe, argv...)
	cmd.Dir = r.Dir
	if o.stdin != nil {
		cmd.Stdin = o.stdin
	}

	stdout := &chunkWriter{stream: "stdout", runID: runID, logger: logger}
	stderr := &chunkWriter{stream: "stderr", runID: runID, logger: logger}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info().
		Str("run_id", runID).
		Str("exe", exe).
		Strs("args", argv).
		Msg("running process")

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Exe: exe, Err: err}
	}
	waitErr := cmd.Wait()

	res := &Result{
		RunID:  runID,
		Stdout: stdout.lines(),
		Stderr: stderr.lines(),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("waiting for %s: %w", exe, waitErr)
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			return nil, &ProcessExitError{
				Exe:      exe,
				ExitCode: -1,
				Crashed:  true,
				State:    exitErr.String(),
				Stdout:   res.Stdout,
				Stderr:   res.Stderr,
				Err:      ctx.Err(),
			}
		}
	}

	if res.ExitCode != 0 {
		exitErr := &ProcessExitError{
			Exe:      exe,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
		if !o.allowNonZero {
			return nil, exitErr
		}
		logger.Warn().
			Str("run_id", runID).
			Int("exit_code", res.ExitCode).
			Strs("stdout", res.Stdout).
			Strs("stderr", res.Stderr).
			Msg("process exited non-zero")
	}

	return res, nil
}

// RunLine is Run with the arguments given as one string, split with shell
// quoting rules. No shell is involved.
func (r *Runner) RunLine(ctx context.Context, exe string, line string, opts ...Option) (*Result, error) {
	argv, err := SplitArgs(line)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, exe, argv, opts...)
}

// SplitArgs splits line into arguments using shell quoting rules.
func SplitArgs(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("splitting arguments %q: %w", line, err)
	}
	return argv, nil
}

func (r *Runner) logger() *zerolog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return &log.Logger
}

// chunkWriter records every write as one chunk, trimmed of trailing line terminators.
type chunkWriter struct {
	stream string
	runID  string
	logger *zerolog.Logger

	mu     sync.Mutex
	chunks []string
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	chunk := strings.TrimRight(string(p), "\r\n")

	w.mu.Lock()
	w.chunks = append(w.chunks, chunk)
	w.mu.Unlock()

	w.logger.Trace().
		Str("run_id", w.runID).
		Str("stream", w.stream).
		Msg(chunk)
	return len(p), nil
}

func (w *chunkWriter) lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.chunks...)
}
