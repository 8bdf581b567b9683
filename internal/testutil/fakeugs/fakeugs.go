// Package fakeugs is a stand-in for the ugs command line tool used by tests.
//
// A test binary re-executes itself as the tool: its TestMain calls Main when
// Active reports true. The fake keeps its builds in a state directory and
// appends every invocation to a call log.
package fakeugs

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variables read by the fake.
const (
	EnvActive = "UGS_FAKE_CLI"
	EnvState  = "UGS_FAKE_STATE"
)

// FakeVersion is printed for --version.
const FakeVersion = "1.4.0+fake"

const (
	stateFile = "state.json"
	callsFile = "calls.log"
)

// Build is one remote build record.
type Build struct {
	BuildName string `json:"BuildName"`
	BuildID   int64  `json:"BuildId"`
	OsFamily  string `json:"OsFamily,omitempty"`
}

// State is the fake's persistent state and behaviour switches.
type State struct {
	Builds []Build `json:"builds"`
	NextID int64   `json:"next_id"`

	Secret        string   `json:"secret,omitempty"`         // accepted secret; empty accepts any
	DoubledCommas bool     `json:"doubled_commas,omitempty"` // emit ",," between list elements
	FailCommand   string   `json:"fail_command,omitempty"`   // subcommand that exits 1
	Garbled       string   `json:"garbled,omitempty"`        // subcommand that prints invalid JSON
	Uploads       []Upload `json:"uploads,omitempty"`
}

// Upload records a create-version call.
type Upload struct {
	BuildID   int64  `json:"build_id"`
	Directory string `json:"directory"`
	Files     int    `json:"files"`
}

// Active reports whether the current process should act as the fake.
func Active() bool {
	return os.Getenv(EnvActive) == "1"
}

// Main runs the fake with args (excluding the program name) and returns the
// process exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	dir := os.Getenv(EnvState)
	if dir == "" {
		fmt.Fprintln(stderr, "fakeugs: "+EnvState+" not set")
		return 2
	}
	if err := appendCall(dir, args); err != nil {
		fmt.Fprintln(stderr, "fakeugs:", err)
		return 2
	}
	st, err := readState(dir)
	if err != nil {
		fmt.Fprintln(stderr, "fakeugs:", err)
		return 2
	}

	f := &fake{state: st, stdin: stdin, stdout: stdout, stderr: stderr}
	code := f.run(args)
	if err := writeState(dir, f.state); err != nil {
		fmt.Fprintln(stderr, "fakeugs:", err)
		return 2
	}
	return code
}

type fake struct {
	state  *State
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (f *fake) run(args []string) int {
	if len(args) == 1 && args[0] == "--version" {
		fmt.Fprintln(f.stdout, FakeVersion)
		return 0
	}
	if len(args) > 0 && args[0] == "login" {
		return f.login(args[1:])
	}
	if len(args) > 0 && args[0] == "gsh" {
		args = args[1:]
	}
	if len(args) < 2 || args[0] != "build" {
		fmt.Fprintf(f.stderr, "unknown command %q\n", strings.Join(args, " "))
		return 1
	}

	cmd := args[1]
	if f.state.FailCommand == cmd {
		fmt.Fprintf(f.stderr, "%s failed: service unavailable\n", cmd)
		return 1
	}
	if f.state.Garbled == cmd {
		fmt.Fprintln(f.stdout, `{"BuildName": "trunc`)
		return 0
	}

	switch cmd {
	case "list":
		return f.list(args[2:])
	case "create":
		return f.create(args[2:])
	case "create-version":
		return f.createVersion(args[2:])
	}
	fmt.Fprintf(f.stderr, "unknown build command %q\n", cmd)
	return 1
}

func (f *fake) login(args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(f.stderr)
	asJSON := fs.Bool("json", false, "")
	keyID := fs.String("service-key-id", "", "")
	fromStdin := fs.Bool("secret-key-stdin", false, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !*asJSON || !*fromStdin || *keyID == "" {
		fmt.Fprintln(f.stderr, "login requires --json --service-key-id and --secret-key-stdin")
		return 1
	}

	secret, err := bufio.NewReader(f.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintln(f.stderr, "reading secret:", err)
		return 1
	}
	secret = strings.TrimRight(secret, "\r\n")
	if secret == "" || (f.state.Secret != "" && secret != f.state.Secret) {
		fmt.Fprintln(f.stdout, "null")
		fmt.Fprintln(f.stderr, `{"Error":"Invalid service account credentials"}`)
		return 0
	}
	fmt.Fprintln(f.stdout, `{"Message":"Service Account key stored"}`)
	return 0
}

func (f *fake) list(args []string) int {
	fs := newScopeFlags("list", f.stderr)
	fs.Bool("json", false, "")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return f.printBuilds(f.state.Builds)
}

func (f *fake) create(args []string) int {
	fs := newScopeFlags("create", f.stderr)
	fs.Bool("json", false, "")
	name := fs.String("name", "", "")
	osFamily := fs.String("os-family", "", "")
	buildType := fs.String("type", "", "")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *name == "" || *osFamily == "" || *buildType != "FILEUPLOAD" {
		fmt.Fprintln(f.stderr, "create requires --name, --os-family and --type FILEUPLOAD")
		return 1
	}
	for _, b := range f.state.Builds {
		if b.BuildName == *name {
			fmt.Fprintf(f.stderr, "build %q already exists\n", *name)
			return 1
		}
	}

	f.state.NextID++
	b := Build{BuildName: *name, BuildID: f.state.NextID, OsFamily: *osFamily}
	f.state.Builds = append(f.state.Builds, b)
	return f.printBuilds([]Build{b})
}

func (f *fake) createVersion(args []string) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(f.stderr, "create-version requires a build id")
		return 1
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(f.stderr, "invalid build id %q\n", args[0])
		return 1
	}

	fs := newScopeFlags("create-version", f.stderr)
	dir := fs.String("directory", "", "")
	fs.Bool("remove-old-files", false, "")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	found := false
	for _, b := range f.state.Builds {
		found = found || b.BuildID == id
	}
	if !found {
		fmt.Fprintf(f.stderr, "build %d not found\n", id)
		return 1
	}
	entries, err := os.ReadDir(*dir)
	if err != nil {
		fmt.Fprintf(f.stderr, "reading directory: %v\n", err)
		return 1
	}

	f.state.Uploads = append(f.state.Uploads, Upload{BuildID: id, Directory: *dir, Files: len(entries)})
	fmt.Fprintf(f.stdout, "Uploading %d files\n", len(entries))
	fmt.Fprintf(f.stdout, "Build version created for build %d\n", id)
	return 0
}

// printBuilds prints no builds as {}, one build as a bare object and several
// as an array, the shapes the real tool produces.
func (f *fake) printBuilds(builds []Build) int {
	if len(builds) == 0 {
		fmt.Fprintln(f.stdout, "{}")
		return 0
	}
	parts := make([]string, len(builds))
	for i, b := range builds {
		data, err := json.Marshal(b)
		if err != nil {
			fmt.Fprintln(f.stderr, err)
			return 1
		}
		parts[i] = string(data)
	}
	if len(parts) == 1 {
		fmt.Fprintln(f.stdout, parts[0])
		return 0
	}
	sep := ","
	if f.state.DoubledCommas {
		sep = ",,"
	}
	fmt.Fprintln(f.stdout, "["+strings.Join(parts, sep)+"]")
	return 0
}

func newScopeFlags(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("environment-name", "", "")
	fs.String("project-id", "", "")
	return fs
}

func readState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFile))
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, err
	}
	st := &State{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st, nil
}

func writeState(dir string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, stateFile), data, 0o644)
}

func appendCall(dir string, args []string) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, callsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
