// Package config loads the optional .ugsdeploy.yaml file and resolves the
// parameters of a run from flags, CI inputs, environment and that file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults for values the config file may leave unset.
const (
	FileName             = ".ugsdeploy.yaml"
	DefaultCLIDirectory  = "./CliExe"
	DefaultServiceModule = "gsh"
)

// Config holds the parsed .ugsdeploy.yaml configuration.
// All fields are optional; zero values represent defaults.
// The service secret is deliberately not part of it.
type Config struct {
	Project             string  `yaml:"project"`
	Environment         string  `yaml:"environment"`
	Key                 string  `yaml:"key"` // service key id
	BuildName           string  `yaml:"build_name"`
	BuildOsFamily       string  `yaml:"build_os_family"` // e.g. LINUX
	BuildFilesDirectory string  `yaml:"build_files_directory"`
	Executable          string  `yaml:"executable"`     // explicit path to the ugs binary
	CLIDirectory        string  `yaml:"cli_directory"`  // directory holding per-platform binaries
	RawServiceModule    *string `yaml:"service_module"` // command prefix for build commands
	UploadArgs          string  `yaml:"upload_args"`    // extra create-version flags, shell quoted
}

// ServiceModule returns the configured module prefix, "gsh" when unset.
// An explicit empty value disables the prefix.
func (c *Config) ServiceModule() string {
	if c.RawServiceModule != nil {
		return *c.RawServiceModule
	}
	return DefaultServiceModule
}

// CLIDir returns the configured binary directory or the default.
func (c *Config) CLIDir() string {
	if c.CLIDirectory != "" {
		return c.CLIDirectory
	}
	return DefaultCLIDirectory
}

// LoadResult holds the parsed config and where it came from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no file was found
}

// Load looks for .ugsdeploy.yaml in workspace and its parents, stopping at the
// repository root (a directory containing .git). If no file exists, a default
// Config is returned.
func Load(workspace string) (*LoadResult, error) {
	path, err := findConfig(workspace)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return &LoadResult{Config: &Config{}}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Unlike Load, a missing file is an error.
func LoadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

// findConfig walks upward from dir looking for FileName.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
