// Package store implements Lattice's write path: the single entry point
// through which every task mutation is durably committed, event-first,
// before its snapshot is atomically materialized.
package store

import (
	"os"
	"path/filepath"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/hook"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/lock"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/logging"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// Store is the handle through which callers drive the write path against
// one .lattice root.
type Store struct {
	Root   string
	Config *config.Config
}

// Open loads config.json under root and returns a ready Store.
func Open(root string) (*Store, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return &Store{Root: root, Config: cfg}, nil
}

func (s *Store) eventsPath(taskID string) string {
	return filepath.Join(s.Root, ".lattice", "events", taskID+".jsonl")
}

func (s *Store) lifecyclePath() string {
	return filepath.Join(s.Root, ".lattice", "events", "_lifecycle.jsonl")
}

func (s *Store) snapshotPath(taskID string) string {
	return filepath.Join(s.Root, ".lattice", "tasks", taskID+".json")
}

func (s *Store) archivedSnapshotPath(taskID string) string {
	return filepath.Join(s.Root, ".lattice", "archive", "tasks", taskID+".json")
}

// Build is the callback invoked by Mutate with the task's current on-disk
// snapshot held under lock (nil if taskID has no snapshot yet). It returns
// the events to append and the resulting snapshot to materialize, or a nil
// events slice to signal an idempotent no-op (target is returned as-is,
// nothing new is written).
type Build func(current *snapshot.Task) ([]*event.Event, *snapshot.Task, error)

// Mutate is the single entry point through which every task mutation is
// committed. It acquires the full lock set up front — always
// events_<taskID> and tasks_<taskID>, plus extraLockKeys such as "ids" for
// task_created or "events__lifecycle" for any lifecycle event type — and
// only then reads the current snapshot and invokes build. Folding read,
// validation, and the resulting write into one critical section under the
// lock is what totally orders concurrent writers on the same task instead
// of racing an earlier unlocked read against a later write.
func (s *Store) Mutate(taskID string, extraLockKeys []string, build Build) (*snapshot.Task, error) {
	keys := append([]string{"events_" + taskID, "tasks_" + taskID}, extraLockKeys...)
	timeout := config.LockTimeout()
	multi, err := lock.MultiLock(s.Root, keys, timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = multi.Release() }()

	current, err := s.ReadSnapshot(taskID)
	if err != nil {
		return nil, err
	}

	events, target, err := build(current)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return target, nil
	}

	for _, e := range events {
		line, err := event.Serialize(e)
		if err != nil {
			return nil, err
		}
		if err := fsutil.AppendJSONL(s.eventsPath(taskID), line); err != nil {
			return nil, err
		}
		if event.IsLifecycle(e.Type) {
			if err := fsutil.AppendJSONL(s.lifecyclePath(), line); err != nil {
				return nil, err
			}
		}
	}

	snapData, err := snapshot.Serialize(target)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureDir(filepath.Dir(s.snapshotPath(taskID))); err != nil {
		return nil, err
	}
	if err := fsutil.AtomicWrite(s.snapshotPath(taskID), snapData); err != nil {
		return nil, err
	}

	if err := multi.Release(); err != nil {
		return nil, err
	}

	s.runHooks(events)
	return target, nil
}

// ReadSnapshot exposes the current on-disk snapshot for a task, for callers
// (CLI commands, config gates) that need the pre-mutation state to fold new
// events on top of. Returns (nil, nil) — not an error — when taskID has no
// snapshot on disk, so callers can distinguish "does not exist" from an
// actual I/O failure.
func (s *Store) ReadSnapshot(taskID string) (*snapshot.Task, error) {
	data, err := os.ReadFile(s.snapshotPath(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IOError, err, "read snapshot for %s", taskID)
	}
	return snapshot.Parse(data)
}

// TaskExists reports whether taskID has a snapshot in either the active or
// the archive tree. Relationship targets are valid in both: archiving a
// task must not dangle the edges pointing at it.
func (s *Store) TaskExists(taskID string) (bool, error) {
	for _, path := range []string{s.snapshotPath(taskID), s.archivedSnapshotPath(taskID)} {
		if _, err := os.Stat(path); err == nil {
			return true, nil
		} else if !os.IsNotExist(err) {
			return false, errs.Wrap(errs.IOError, err, "stat snapshot for %s", taskID)
		}
	}
	return false, nil
}

// ReadEvents returns every event recorded for a task, in log order. Callers
// use this to build a config.TaskView for completion-policy and
// review-cycle gating.
func (s *Store) ReadEvents(taskID string) ([]*event.Event, error) {
	if _, err := os.Stat(s.eventsPath(taskID)); err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.NotFound, "no event log for task %s", taskID)
		}
		return nil, errs.Wrap(errs.IOError, err, "stat event log for %s", taskID)
	}
	lines, err := fsutil.ReadLines(s.eventsPath(taskID))
	if err != nil {
		return nil, err
	}
	events := make([]*event.Event, 0, len(lines))
	for _, line := range lines {
		e, err := event.Parse(line)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// runHooks invokes configured shell hooks for every event just committed.
// Failures are logged, never propagated: the write already committed.
func (s *Store) runHooks(events []*event.Event) {
	runner := hook.NewRunner(s.Root, s.Config.Hooks)
	for _, e := range events {
		if err := runner.Run(e); err != nil {
			logging.L().Warn().Err(err).Str("event_id", e.ID).Str("event_type", string(e.Type)).
				Msg("post-write hook failed")
		}
	}
}
