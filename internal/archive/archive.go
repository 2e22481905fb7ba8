// Package archive moves task files between the active and archive trees
// under lock ordering, recording task_archived/task_unarchived events
// along the way. Artifacts are never moved: they are addressed by ID
// independent of which tree their owning task lives in.
package archive

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

// movable names every file that travels with a task between trees. plans
// and notes are non-authoritative but still belong to the task and move
// with it; their absence is never an error.
var movable = []struct {
	subdir string
	ext    string
}{
	{"tasks", ".json"},
	{"events", ".jsonl"},
	{"plans", ".md"},
	{"notes", ".md"},
}

func activePath(root, subdir, taskID, ext string) string {
	return filepath.Join(root, ".lattice", subdir, taskID+ext)
}

func archivePath(root, subdir, taskID, ext string) string {
	return filepath.Join(root, ".lattice", "archive", subdir, taskID+ext)
}

// Archive moves taskID's files from the active tree to archive/, appending
// a task_archived event (and its lifecycle duplicate) first so the move is
// always recoverable by rebuild + doctor if it fails partway.
func Archive(root, taskID, actor string, cfg *config.Config) (*snapshot.Task, error) {
	return transition(root, taskID, actor, cfg, event.TaskArchived, moveToArchive)
}

// Unarchive reverses Archive: moves files back to the active tree and
// appends a task_unarchived event.
func Unarchive(root, taskID, actor string, cfg *config.Config) (*snapshot.Task, error) {
	return transition(root, taskID, actor, cfg, event.TaskUnarchived, moveToActive)
}

func transition(root, taskID, actor string, cfg *config.Config, evType event.Type, move func(root, taskID string) error) (*snapshot.Task, error) {
	keys := []string{"events_" + taskID, "tasks_" + taskID, "events__lifecycle"}
	timeout := config.LockTimeout()
	multi, err := lock.MultiLock(root, keys, timeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = multi.Release() }()

	e, err := event.CreateTaskEvent(evType, taskID, actor, map[string]any{}, event.Options{})
	if err != nil {
		return nil, err
	}

	srcEventsPath, err := resolveEventsPath(root, taskID, evType)
	if err != nil {
		return nil, err
	}

	line, err := event.Serialize(e)
	if err != nil {
		return nil, err
	}
	if err := fsutil.AppendJSONL(srcEventsPath, line); err != nil {
		return nil, err
	}
	lifecyclePath := filepath.Join(root, ".lattice", "events", "_lifecycle.jsonl")
	if err := fsutil.AppendJSONL(lifecyclePath, line); err != nil {
		return nil, err
	}

	snap, err := readSnapshotAt(activeOrArchiveSnapshotPath(root, taskID, evType))
	if err != nil {
		return nil, err
	}
	snap, err = snapshot.Apply(snap, e)
	if err != nil {
		return nil, err
	}

	if err := move(root, taskID); err != nil {
		return nil, err
	}

	data, err := snapshot.Serialize(snap)
	if err != nil {
		return nil, err
	}
	var destSnapPath string
	if evType == event.TaskArchived {
		destSnapPath = archivePath(root, "tasks", taskID, ".json")
	} else {
		destSnapPath = activePath(root, "tasks", taskID, ".json")
	}
	if err := fsutil.EnsureDir(filepath.Dir(destSnapPath)); err != nil {
		return nil, err
	}
	if err := fsutil.AtomicWrite(destSnapPath, data); err != nil {
		return nil, err
	}

	if err := multi.Release(); err != nil {
		return nil, err
	}

	runner := hook.NewRunner(root, cfg.Hooks)
	if err := runner.Run(e); err != nil {
		logging.L().Warn().Err(err).Str("event_id", e.ID).Str("event_type", string(e.Type)).
			Msg("post-write hook failed")
	}

	return snap, nil
}

func resolveEventsPath(root, taskID string, evType event.Type) (string, error) {
	if evType == event.TaskArchived {
		p := activePath(root, "events", taskID, ".jsonl")
		if _, err := os.Stat(p); err != nil {
			return "", errs.New(errs.NotFound, "task %s is not in the active tree", taskID)
		}
		return p, nil
	}
	p := archivePath(root, "events", taskID, ".jsonl")
	if _, err := os.Stat(p); err != nil {
		return "", errs.New(errs.NotFound, "task %s is not in the archive tree", taskID)
	}
	return p, nil
}

func activeOrArchiveSnapshotPath(root, taskID string, evType event.Type) string {
	if evType == event.TaskArchived {
		return activePath(root, "tasks", taskID, ".json")
	}
	return archivePath(root, "tasks", taskID, ".json")
}

func readSnapshotAt(path string) (*snapshot.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "read snapshot %q", path)
	}
	return snapshot.Parse(data)
}

// moveToArchive relocates every movable file for taskID from the active
// tree to archive/. Missing optional files (plans, notes) are skipped.
func moveToArchive(root, taskID string) error {
	return moveAll(root, taskID, activePath, archivePath)
}

// moveToActive reverses moveToArchive.
func moveToActive(root, taskID string) error {
	return moveAll(root, taskID, archivePath, activePath)
}

func moveAll(root, taskID string, src, dst func(root, subdir, taskID, ext string) string) error {
	for _, m := range movable {
		from := src(root, m.subdir, taskID, m.ext)
		to := dst(root, m.subdir, taskID, m.ext)
		if _, err := os.Stat(from); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errs.Wrap(errs.IOError, err, "stat %q", from)
		}
		if err := fsutil.EnsureDir(filepath.Dir(to)); err != nil {
			return err
		}
		if err := os.Rename(from, to); err != nil {
			return errs.Wrap(errs.IOError, err, "move %q to %q", from, to)
		}
	}
	return nil
}
