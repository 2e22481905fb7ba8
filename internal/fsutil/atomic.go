// Package fsutil provides the durability primitives the write path builds
// on: atomic whole-file replace, append-with-fsync for JSONL logs, and
// project-root discovery.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// AtomicWrite writes data to a temp file alongside path, fsyncs it, renames
// it over path, then fsyncs the parent directory. The destination is
// guaranteed to hold either the prior content or the new content, never a
// partial write.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "create temp file for %q", path)
	}
	tmpPath := tmp.Name()
	// Clean up the temp file on any failure path before the rename commits.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errs.Wrap(errs.IOError, err, "write temp file for %q", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errs.Wrap(errs.IOError, err, "fsync temp file for %q", path)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.IOError, err, "close temp file for %q", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.IOError, err, "rename temp file into %q", path)
	}
	committed = true

	if err := fsyncDir(dir); err != nil {
		return errs.Wrap(errs.IOError, err, "fsync directory %q", dir)
	}
	return nil
}

// fsyncDir fsyncs a directory so a subsequent rename into it is durable
// across a crash. Where opening or syncing a directory fails (including
// platforms that do not support it), the failure is returned as an error,
// not silently swallowed, since callers rely on the durability guarantee.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync directory: %w", err)
	}
	return nil
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.IOError, err, "create directory %q", dir)
	}
	return nil
}
