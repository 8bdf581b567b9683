package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"

	"github.com/condensereality/UnityGameHostingAction/internal/runner"
)

// Parameter names. Flags use the same names, matched case-insensitively.
const (
	Project             = "Project"
	Environment         = "Environment"
	Key                 = "Key"
	Secret              = "Secret"
	BuildName           = "BuildName"
	BuildOsFamily       = "BuildOsFamily"
	BuildFilesDirectory = "BuildFilesDirectory"
	Executable          = "Executable"
	CLIDirectory        = "CliDirectory"
	ServiceModule       = "ServiceModule"
	UploadArgs          = "UploadArgs"
)

// EnvPrefix prefixes the environment variable of every parameter.
const EnvPrefix = "UGS_"

// DeployParameters must all be present for a deploy.
var DeployParameters = []string{Project, Environment, Key, Secret, BuildName, BuildOsFamily, BuildFilesDirectory}

// ListParameters must all be present to list builds.
var ListParameters = []string{Project, Environment, Key, Secret}

var allParameters = []string{
	Project, Environment, Key, Secret, BuildName, BuildOsFamily, BuildFilesDirectory,
	Executable, CLIDirectory, ServiceModule, UploadArgs,
}

var validate = validator.New()

// Params is the resolved, immutable set of inputs for one run.
type Params struct {
	Project             string `json:"project"`
	Environment         string `json:"environment"`
	Key                 string `json:"key"`
	Secret              string `json:"-"`
	BuildName           string `json:"build_name"`
	BuildOsFamily       string `json:"build_os_family"`
	BuildFilesDirectory string `json:"build_files_directory"`

	Executable    string   `json:"executable,omitempty"`
	CLIDirectory  string   `json:"cli_directory"`
	ServiceModule string   `json:"service_module"`
	UploadArgs    []string `json:"upload_args,omitempty"`
}

// Rebase makes the relative paths of p relative to dir instead of the
// current directory. An empty dir leaves p unchanged.
func (p *Params) Rebase(dir string) {
	if dir == "" {
		return
	}
	for _, path := range []*string{&p.BuildFilesDirectory, &p.CLIDirectory, &p.Executable} {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(dir, *path)
		}
	}
}

// MissingParameterError names every required parameter that no source supplied.
type MissingParameterError struct {
	Names []string
}

func (e *MissingParameterError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, n := range e.Names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	if len(quoted) == 1 {
		return "missing required parameter " + quoted[0]
	}
	return "missing required parameters " + strings.Join(quoted, ", ")
}

// Source looks up a parameter by name. Empty values count as absent.
type Source interface {
	Lookup(name string) (string, bool)
}

// FlagSource reads parameters from flags that were set on the command line.
type FlagSource struct {
	Flags *pflag.FlagSet
}

func (s FlagSource) Lookup(name string) (string, bool) {
	f := s.Flags.Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return nonEmpty(f.Value.String())
}

// EnvSource reads parameters from environment variables named
// Prefix + UPPER_SNAKE(name), e.g. UGS_BUILD_NAME.
type EnvSource struct {
	Prefix string
	Getenv func(string) string // defaults to os.Getenv
}

func (s EnvSource) Lookup(name string) (string, bool) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return nonEmpty(getenv(s.Prefix + EnvName(name)))
}

// FileSource reads parameters from a loaded config file. The secret is never
// read from a file.
type FileSource struct {
	Config *Config
}

func (s FileSource) Lookup(name string) (string, bool) {
	c := s.Config
	if c == nil {
		return "", false
	}
	switch name {
	case Project:
		return nonEmpty(c.Project)
	case Environment:
		return nonEmpty(c.Environment)
	case Key:
		return nonEmpty(c.Key)
	case BuildName:
		return nonEmpty(c.BuildName)
	case BuildOsFamily:
		return nonEmpty(c.BuildOsFamily)
	case BuildFilesDirectory:
		return nonEmpty(c.BuildFilesDirectory)
	case Executable:
		return nonEmpty(c.Executable)
	case CLIDirectory:
		return nonEmpty(c.CLIDirectory)
	case UploadArgs:
		return nonEmpty(c.UploadArgs)
	}
	return "", false
}

// Resolver looks parameters up in Sources, highest priority first.
type Resolver struct {
	Sources []Source
	Config  *Config // supplies defaults; may be nil
}

// Lookup returns the first value any source has for name.
func (r *Resolver) Lookup(name string) (string, bool) {
	for _, s := range r.Sources {
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Resolve builds Params, failing with a MissingParameterError naming every
// parameter in required that has no value.
func (r *Resolver) Resolve(required []string) (*Params, error) {
	var missing []string
	for _, name := range required {
		if _, ok := r.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Names: missing}
	}

	cfg := r.Config
	if cfg == nil {
		cfg = &Config{}
	}

	get := func(name string) string {
		v, _ := r.Lookup(name)
		return v
	}

	p := &Params{
		Project:       get(Project),
		Environment:   get(Environment),
		Key:           get(Key),
		Secret:        get(Secret),
		BuildName:     get(BuildName),
		BuildOsFamily: strings.ToUpper(get(BuildOsFamily)),
		CLIDirectory:  cfg.CLIDir(),
		ServiceModule: cfg.ServiceModule(),
	}
	if v, ok := r.Lookup(CLIDirectory); ok {
		p.CLIDirectory = v
	}
	if v, ok := r.Lookup(ServiceModule); ok {
		p.ServiceModule = v
	}

	var err error
	if p.BuildFilesDirectory, err = expand(get(BuildFilesDirectory)); err != nil {
		return nil, err
	}
	if p.Executable, err = expand(get(Executable)); err != nil {
		return nil, err
	}
	if p.CLIDirectory, err = expand(p.CLIDirectory); err != nil {
		return nil, err
	}
	if p.UploadArgs, err = runner.SplitArgs(get(UploadArgs)); err != nil {
		return nil, err
	}

	if err := validate.Var(p.BuildOsFamily, "omitempty,alpha"); err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be letters only", BuildOsFamily, p.BuildOsFamily)
	}
	return p, nil
}

// RegisterFlags defines a string flag for every parameter on fs and makes flag
// names case-insensitive, ignoring '-' and '_'.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(NormalizeFlagName)
	usage := map[string]string{
		Project:             "project id",
		Environment:         "environment name",
		Key:                 "service account key id",
		Secret:              "service account secret key (prefer UGS_SECRET)",
		BuildName:           "build name, sanitized before use (e.g. a git ref)",
		BuildOsFamily:       "operating system family of the build (e.g. LINUX)",
		BuildFilesDirectory: "directory of files to upload",
		Executable:          "path to the ugs binary",
		CLIDirectory:        "directory holding per-platform ugs binaries",
		ServiceModule:       "command prefix for build commands",
		UploadArgs:          "extra arguments for the upload command",
	}
	for _, name := range allParameters {
		fs.String(name, "", usage[name])
	}
}

// NormalizeFlagName lower-cases name and drops '-' and '_', so --BuildName,
// --buildname and --build-name are the same flag.
func NormalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", "", "_", "").Replace(name)
	return pflag.NormalizedName(name)
}

// IsParameter reports whether name is a parameter name, compared the way flag
// names are.
func IsParameter(name string) bool {
	want := NormalizeFlagName(nil, name)
	for _, p := range allParameters {
		if NormalizeFlagName(nil, p) == want {
			return true
		}
	}
	return false
}

// EnvName converts a parameter name to UPPER_SNAKE case: BuildOsFamily
// becomes BUILD_OS_FAMILY.
func EnvName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Redacted returns a copy of s safe to log: only the first and last characters
// are kept.
func Redacted(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
	}
}

func expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	out, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return out, nil
}

// nonEmpty reports a value as absent when it is blank. Present values are
// returned untrimmed.
func nonEmpty(v string) (string, bool) {
	return v, strings.TrimSpace(v) != ""
}
