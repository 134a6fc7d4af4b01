// Package compile runs the external document compiler and cleans up after it.
package compile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultAuxExtensions are the compiler by-products removed after each run
var DefaultAuxExtensions = []string{"log", "svg", "aux", "gz"}

type fileStamp struct {
	modTime time.Time
	size    int64
}

// Snapshot records the regular files of a directory at one point in time
type Snapshot map[string]fileStamp

// TakeSnapshot records the regular files directly inside dir
func TakeSnapshot(dir string) (Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	snap := make(Snapshot, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		snap[entry.Name()] = fileStamp{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

// Changed returns the files in dir that are new or modified since the
// snapshot was taken, sorted by name
func (s Snapshot) Changed(dir string) ([]string, error) {
	now, err := TakeSnapshot(dir)
	if err != nil {
		return nil, err
	}

	var changed []string
	for name, stamp := range now {
		prev, ok := s[name]
		if !ok || !prev.modTime.Equal(stamp.modTime) || prev.size != stamp.size {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// FilterByExtension keeps the names ending in "."+ext for one of exts.
// Extensions may be given with or without the leading dot.
func FilterByExtension(names []string, exts []string) []string {
	var out []string
	for _, name := range names {
		if MatchesExtension(name, exts) {
			out = append(out, name)
		}
	}
	return out
}

// MatchesExtension reports whether name ends in one of exts
func MatchesExtension(name string, exts []string) bool {
	for _, ext := range exts {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		if strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}

// RemoveFiles deletes the named files inside dir. Files that are already gone
// are skipped. It returns the names it removed and any other failures.
func RemoveFiles(dir string, names []string) (removed []string, err error) {
	var errs []error
	for _, name := range names {
		rmErr := os.Remove(filepath.Join(dir, name))
		switch {
		case rmErr == nil:
			removed = append(removed, name)
		case errors.Is(rmErr, fs.ErrNotExist):
		default:
			errs = append(errs, rmErr)
		}
	}
	return removed, errors.Join(errs...)
}
