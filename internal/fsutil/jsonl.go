package fsutil

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// AppendJSONL appends line (which must already be terminated by \n) to path,
// creating the file and its parent directory if necessary. The caller is
// assumed to already hold the write lock protecting path. The write is
// flushed and fsynced before return; the parent directory is fsynced the
// first time the file is created. If the file's last byte on open is not a
// newline (a torn previous append left a partial final line on disk), a
// newline is prepended defensively before the new line so the file never
// grows two records glued onto the same line.
func AppendJSONL(path string, line []byte) error {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		return errs.New(errs.IOError, "jsonl_append: line for %q must end with a newline", path)
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Wrap(errs.IOError, err, "open %q for append", path)
	}
	defer func() { _ = f.Close() }()

	needsLeadingNewline, err := lastByteIsNotNewline(f)
	if err != nil {
		return errs.Wrap(errs.IOError, err, "inspect tail of %q", path)
	}

	w := bufio.NewWriter(f)
	if needsLeadingNewline {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return errs.Wrap(errs.IOError, err, "write recovery newline to %q", path)
		}
	}
	if _, err := w.Write(line); err != nil {
		return errs.Wrap(errs.IOError, err, "write line to %q", path)
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(errs.IOError, err, "flush %q", path)
	}
	if err := f.Sync(); err != nil {
		return errs.Wrap(errs.IOError, err, "fsync %q", path)
	}

	if created {
		if err := fsyncDir(dir); err != nil {
			return errs.Wrap(errs.IOError, err, "fsync parent of %q", path)
		}
	}
	return nil
}

// lastByteIsNotNewline reports whether the last byte of an open file is
// something other than '\n'. An empty file reports false (nothing to fix).
func lastByteIsNotNewline(f *os.File) (bool, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return false, err
	}
	if size == 0 {
		return false, nil
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, size-1); err != nil {
		return false, err
	}
	return buf[0] != '\n', nil
}

// ReadLines reads all complete lines from a JSONL file, tolerating a
// trailing line with no terminating newline by ignoring it: a truncated
// final line means the append never completed, and doctor may drop it
// without loss. The returned slices do not include the trailing newline.
func ReadLines(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IOError, err, "read %q", path)
	}
	if len(data) == 0 {
		return nil, nil
	}
	trailingIncomplete := data[len(data)-1] != '\n'
	lines := bytes.Split(data, []byte{'\n'})
	// bytes.Split on a trailing-newline file yields a final empty element;
	// drop it. If the file didn't end in newline, the final element is the
	// truncated tail, dropped per the doctor tolerance contract.
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	} else if trailingIncomplete && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
