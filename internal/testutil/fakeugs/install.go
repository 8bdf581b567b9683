package fakeugs

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fake is an installed fake tool.
type Fake struct {
	Exe string // path to run; the current test binary
	Dir string // state directory
}

// Install points the fake at a fresh state directory seeded with st and
// returns the executable to run. The calling package's TestMain must dispatch
// to Main when Active reports true.
func Install(t testing.TB, st State) *Fake {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	dir := t.TempDir()
	for _, b := range st.Builds {
		if b.BuildID > st.NextID {
			st.NextID = b.BuildID
		}
	}
	require.NoError(t, writeState(dir, &st))

	t.Setenv(EnvActive, "1")
	t.Setenv(EnvState, dir)
	return &Fake{Exe: exe, Dir: dir}
}

// Calls returns the argv of every invocation so far, in order.
func (f *Fake) Calls(t testing.TB) [][]string {
	t.Helper()
	file, err := os.Open(filepath.Join(f.Dir, callsFile))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer file.Close()

	var calls [][]string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		var args []string
		require.NoError(t, json.Unmarshal(sc.Bytes(), &args))
		calls = append(calls, args)
	}
	require.NoError(t, sc.Err())
	return calls
}

// State returns the fake's current state.
func (f *Fake) State(t testing.TB) *State {
	t.Helper()
	st, err := readState(f.Dir)
	require.NoError(t, err)
	return st
}

// Commands returns the build subcommand of each invocation ("list",
// "create", ...), or the first argument for other invocations.
func (f *Fake) Commands(t testing.TB) []string {
	t.Helper()
	var out []string
	for _, args := range f.Calls(t) {
		if len(args) > 0 && args[0] == "gsh" {
			args = args[1:]
		}
		switch {
		case len(args) >= 2 && args[0] == "build":
			out = append(out, args[1])
		case len(args) > 0:
			out = append(out, args[0])
		}
	}
	return out
}

// RunMain is the TestMain hook: when the process is the fake it runs Main and
// exits, otherwise it returns.
func RunMain() {
	if !Active() {
		return
	}
	os.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
