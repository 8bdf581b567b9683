package runner

import (
	"fmt"
	"strings"
)

// SpawnError is returned when the executable could not be started at all
// (missing file, permission denied, bad format).
type SpawnError struct {
	Exe string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Exe, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ProcessExitError is returned when a process exits with a non-zero code, or
// terminates without delivering one (killed by a signal, crashed).
type ProcessExitError struct {
	Exe      string
	ExitCode int    // -1 when Crashed
	Crashed  bool   // no exit code was delivered
	State    string // process state as reported by the OS, e.g. "signal: killed"
	Stdout   []string
	Stderr   []string
	Err      error // context error when the run was cancelled
}

func (e *ProcessExitError) Error() string {
	stdout := strings.Join(e.Stdout, "\n")
	stderr := strings.Join(e.Stderr, "\n")
	if e.Crashed {
		return fmt.Sprintf("process %s terminated without an exit code (%s); stdout=%s stderr=%s", e.Exe, e.State, stdout, stderr)
	}
	return fmt.Sprintf("process %s exit code %d; stdout=%s stderr=%s", e.Exe, e.ExitCode, stdout, stderr)
}

func (e *ProcessExitError) Unwrap() error { return e.Err }
