// Package locate finds the ugs executable for the current platform and makes
// sure it can be run.
package locate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

// PathName is the binary name looked up on PATH when no vendored copy exists.
const PathName = "ugs"

var (
	osStat       = os.Stat
	osChmod      = os.Chmod
	execLookPath = exec.LookPath
)

// NotFoundError lists every place that was searched.
type NotFoundError struct {
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ugs executable not found; searched %v", e.Searched)
}

// Locator resolves the executable path.
type Locator struct {
	Executable string // explicit path; wins when set
	Dir        string // directory holding per-platform binaries
	GOOS       string // defaults to runtime.GOOS
	GOARCH     string // defaults to runtime.GOARCH
}

// Find returns a path to a runnable ugs binary. An explicit Executable must
// exist. Otherwise the platform asset in Dir is tried, then PATH. A vendored
// binary without the exec bit gets mode 0755. An unsupported platform is only
// an error when PATH has no ugs either.
func (l *Locator) Find() (string, error) {
	if l.Executable != "" {
		if err := ensureExecutable(l.Executable); err != nil {
			return "", err
		}
		return l.Executable, nil
	}

	var (
		searched    []string
		platformErr error
	)
	if l.Dir != "" {
		asset, err := AssetName(l.goos(), l.goarch())
		if err == nil {
			candidate := filepath.Join(l.Dir, asset)
			searched = append(searched, candidate)
			err = ensureExecutable(candidate)
			if err == nil {
				return candidate, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
		} else {
			platformErr = err
		}
	}

	searched = append(searched, "$PATH/"+PathName)
	path, err := execLookPath(PathName)
	if err != nil {
		if platformErr != nil {
			return "", fmt.Errorf("%w; no %s on PATH", platformErr, PathName)
		}
		return "", &NotFoundError{Searched: searched}
	}
	return path, nil
}

// AssetName returns the vendored binary filename for an OS/arch pair.
func AssetName(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ugs-linux-x64", nil
	case goos == "darwin" && goarch == "amd64":
		return "ugs-macos-x64", nil
	case goos == "darwin" && goarch == "arm64":
		return "ugs-macos-arm64", nil
	case goos == "windows" && goarch == "amd64":
		return "ugs-windows-x64.exe", nil
	}
	return "", fmt.Errorf("unsupported platform %s/%s", goos, goarch)
}

func ensureExecutable(path string) error {
	info, err := osStat(path)
	if err != nil {
		return fmt.Errorf("checking executable %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("executable %s is a directory", path)
	}
	if runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0 {
		return nil
	}
	log.Debug().Str("path", path).Stringer("mode", info.Mode()).Msg("adding exec bit")
	if err := osChmod(path, 0o755); err != nil {
		return fmt.Errorf("making %s executable: %w", path, err)
	}
	return nil
}

func (l *Locator) goos() string {
	if l.GOOS != "" {
		return l.GOOS
	}
	return runtime.GOOS
}

func (l *Locator) goarch() string {
	if l.GOARCH != "" {
		return l.GOARCH
	}
	return runtime.GOARCH
}
