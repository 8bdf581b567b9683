package deploy

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// DirStats summarises a directory tree.
type DirStats struct {
	Files int
	Bytes int64
}

// HumanSize returns Bytes in human readable form, e.g. "12 MB".
func (s DirStats) HumanSize() string {
	return humanize.Bytes(uint64(s.Bytes))
}

// Measure counts the regular files under dir and their total size.
func Measure(dir string) (DirStats, error) {
	var stats DirStats
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return DirStats{}, fmt.Errorf("reading build files directory: %w", err)
	}
	return stats, nil
}
