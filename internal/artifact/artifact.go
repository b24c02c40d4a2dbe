// Package artifact stages output files under a temporary name so that a run
// either leaves complete artifacts in place or none at all.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Artifact is a run output staged in full before it becomes visible.
type Artifact interface {
	Path() string
	Commit() error
	Discard() error
}

// File is an output staged next to its final path until committed.
type File struct {
	path      string
	tmp       string
	committed bool
}

// StagePath creates a temporary path beside path and calls fill to populate
// it. On error the temporary file is removed.
func StagePath(path string, fill func(tmpPath string) error) (*File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return nil, err
	}

	if err := fill(tmp); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return &File{path: path, tmp: tmp}, nil
}

// Stage is StagePath for writers that produce a byte stream.
func Stage(path string, write func(w io.Writer) error) (*File, error) {
	return StagePath(path, func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			f.Close() //nolint:errcheck // write error takes precedence
			return err
		}
		return f.Close()
	})
}

// Path returns the final destination.
func (f *File) Path() string { return f.path }

// Commit moves the staged file into place.
func (f *File) Commit() error {
	if f.committed {
		return nil
	}
	if err := os.Chmod(f.tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", f.tmp, err)
	}
	if err := os.Rename(f.tmp, f.path); err != nil {
		return fmt.Errorf("commit %s: %w", f.path, err)
	}
	f.committed = true
	return nil
}

// Discard removes the artifact, whether or not it has been committed.
func (f *File) Discard() error {
	target := f.tmp
	if f.committed {
		target = f.path
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard %s: %w", target, err)
	}
	return nil
}
