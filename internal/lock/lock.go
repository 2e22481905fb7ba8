// Package lock implements Lattice's named advisory file locks. Locks live
// under .lattice/locks/<key>.lock and are acquired with a bounded timeout,
// guaranteeing release on every exit path via defer.
package lock

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
)

// DefaultTimeout is used when callers pass a zero timeout.
const DefaultTimeout = 10 * time.Second

// SubDir is the locks directory name under .lattice/.
const SubDir = "locks"

// pollInterval bounds how often TryLockContext retries acquisition.
const pollInterval = 10 * time.Millisecond

// Handle represents one held lock. Release is idempotent.
type Handle struct {
	fl   *flock.Flock
	path string
}

// Release unlocks the underlying file lock. Safe to call more than once.
func (h *Handle) Release() error {
	if h == nil || h.fl == nil {
		return nil
	}
	if err := h.fl.Unlock(); err != nil {
		return errs.Wrap(errs.IOError, err, "release lock %q", h.path)
	}
	return nil
}

// Acquire takes the named lock under root's locks directory, waiting up to
// timeout (DefaultTimeout if zero). On expiry it fails with LockTimeout and
// no state has changed. Callers must Release the returned Handle, typically
// via defer, on every exit path including panics.
func Acquire(root, key string, timeout time.Duration) (*Handle, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dir := filepath.Join(fsutil.LatticeDir(root), SubDir)
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, key+".lock")
	fl := flock.New(path)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, pollInterval)
	if err != nil && ctx.Err() == nil {
		return nil, errs.Wrap(errs.IOError, err, "acquire lock %q", key)
	}
	if !locked {
		return nil, errs.New(errs.LockTimeout, "timed out after %s acquiring lock %q", timeout, key)
	}
	return &Handle{fl: fl, path: path}, nil
}

// MultiHandle holds an ordered set of locks, released in reverse acquisition
// order.
type MultiHandle struct {
	handles []*Handle
}

// Release unlocks every held lock in reverse order, collecting (but not
// stopping on) any individual release errors.
func (m *MultiHandle) Release() error {
	if m == nil {
		return nil
	}
	var firstErr error
	for i := len(m.handles) - 1; i >= 0; i-- {
		if err := m.handles[i].Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MultiLock sorts keys lexicographically and acquires each in that order,
// releasing everything already acquired if any acquisition fails or times
// out. This total order is what prevents deadlock between writers holding
// overlapping lock subsets.
func MultiLock(root string, keys []string, timeout time.Duration) (*MultiHandle, error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	m := &MultiHandle{}
	for _, key := range sorted {
		h, err := Acquire(root, key, timeout)
		if err != nil {
			_ = m.Release()
			return nil, fmt.Errorf("multi_lock %v: %w", sorted, err)
		}
		m.handles = append(m.handles, h)
	}
	return m, nil
}
