package runner

import "strings"

// Result holds the output of a command execution.
type Result struct {
	RunID    string   // unique identifier for this invocation
	ExitCode int      // process exit code, never unset
	Stdout   []string // stdout chunks in arrival order, trailing line terminators trimmed
	Stderr   []string // stderr chunks in arrival order, trailing line terminators trimmed
}

// StdoutText returns the collapsed stdout. See Collapse.
func (r *Result) StdoutText() (string, bool) {
	return Collapse(r.Stdout)
}

// StderrText returns the collapsed stderr. See Collapse.
func (r *Result) StderrText() (string, bool) {
	return Collapse(r.Stderr)
}

// Collapse turns captured chunks into a single text value.
// It reports false when nothing was captured. A single chunk is returned as is;
// several chunks are joined with no separator.
func Collapse(chunks []string) (string, bool) {
	switch len(chunks) {
	case 0:
		return "", false
	case 1:
		return chunks[0], true
	default:
		return strings.Join(chunks, ""), true
	}
}
