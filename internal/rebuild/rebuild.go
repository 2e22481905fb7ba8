// Package rebuild replays per-task event logs into snapshots and
// regenerates the derived lifecycle and short-ID indices. It is the
// recovery path for the crash window between event append and snapshot
// rename; because event timestamps and canonical serialization fully
// determine a snapshot, repeat runs are byte-identical.
package rebuild

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/index"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/lock"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// Result reports the outcome of rebuilding one task.
type Result struct {
	TaskID  string
	Changed bool
	Err     error
}

func eventsDir(root string) string        { return filepath.Join(root, ".lattice", "events") }
func archiveEventsDir(root string) string { return filepath.Join(root, ".lattice", "archive", "events") }
func snapshotsDir(root string) string     { return filepath.Join(root, ".lattice", "tasks") }
func archiveTasksDir(root string) string  { return filepath.Join(root, ".lattice", "archive", "tasks") }
func lifecyclePath(root string) string    { return filepath.Join(eventsDir(root), "_lifecycle.jsonl") }

func snapshotPathFor(root, taskID string, archived bool) string {
	if archived {
		return filepath.Join(archiveTasksDir(root), taskID+".json")
	}
	return filepath.Join(snapshotsDir(root), taskID+".json")
}

func eventsPathFor(root, taskID string, archived bool) string {
	if archived {
		return filepath.Join(archiveEventsDir(root), taskID+".jsonl")
	}
	return filepath.Join(eventsDir(root), taskID+".jsonl")
}

// RebuildOne replays a single task's event log and atomically rewrites its
// snapshot. archived selects whether the task's files live under the
// active or archive tree.
func RebuildOne(root, taskID string, timeout time.Duration, archived bool) (Result, error) {
	multi, err := lock.MultiLock(root, []string{"events_" + taskID, "tasks_" + taskID}, timeout)
	if err != nil {
		return Result{TaskID: taskID}, err
	}
	defer func() { _ = multi.Release() }()

	snap, err := foldTaskEvents(root, taskID, archived)
	if err != nil {
		return Result{TaskID: taskID}, err
	}

	before, _ := os.ReadFile(snapshotPathFor(root, taskID, archived))
	data, err := snapshot.Serialize(snap)
	if err != nil {
		return Result{TaskID: taskID}, err
	}
	path := snapshotPathFor(root, taskID, archived)
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return Result{TaskID: taskID}, err
	}
	if err := fsutil.AtomicWrite(path, data); err != nil {
		return Result{TaskID: taskID}, err
	}

	return Result{TaskID: taskID, Changed: string(before) != string(data)}, nil
}

// foldTaskEvents reads and parses a task's event log, tolerating a
// truncated trailing line, and folds the reducer over every event in
// order starting from no prior snapshot.
func foldTaskEvents(root, taskID string, archived bool) (*snapshot.Task, error) {
	lines, err := fsutil.ReadLines(eventsPathFor(root, taskID, archived))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errs.New(errs.NotFound, "no events found for task %s", taskID)
	}
	var snap *snapshot.Task
	for _, line := range lines {
		e, err := event.Parse(line)
		if err != nil {
			return nil, errs.Wrap(errs.Corrupt, err, "parse event in %s log", taskID)
		}
		snap, err = snapshot.Apply(snap, e)
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// listTaskIDs returns every task ID with an event log directly under dir,
// excluding _lifecycle.jsonl and resource logs (res_*), which share the
// events directory but are not task state.
func listTaskIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IOError, err, "list %q", dir)
	}
	var ids []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".jsonl") {
			continue
		}
		name := strings.TrimSuffix(ent.Name(), ".jsonl")
		if name == "_lifecycle" || strings.HasPrefix(name, "res_") {
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

// RegenerateLifecycle rebuilds events/_lifecycle.jsonl by scanning every
// per-task log, active and archived, filtering to lifecycle event types,
// and sorting stably by (ts, id).
func RegenerateLifecycle(root string) error {
	var lifecycleEvents []*event.Event

	for _, dir := range []string{eventsDir(root), archiveEventsDir(root)} {
		archived := dir == archiveEventsDir(root)
		taskIDs, err := listTaskIDs(dir)
		if err != nil {
			return err
		}
		for _, taskID := range taskIDs {
			lines, err := fsutil.ReadLines(eventsPathFor(root, taskID, archived))
			if err != nil {
				return err
			}
			for _, line := range lines {
				e, err := event.Parse(line)
				if err != nil {
					return errs.Wrap(errs.Corrupt, err, "parse event in %s log", taskID)
				}
				if event.IsLifecycle(e.Type) {
					lifecycleEvents = append(lifecycleEvents, e)
				}
			}
		}
	}

	sort.SliceStable(lifecycleEvents, func(i, j int) bool {
		if lifecycleEvents[i].TS != lifecycleEvents[j].TS {
			return lifecycleEvents[i].TS < lifecycleEvents[j].TS
		}
		return lifecycleEvents[i].ID < lifecycleEvents[j].ID
	})

	var buf []byte
	for _, e := range lifecycleEvents {
		line, err := event.Serialize(e)
		if err != nil {
			return err
		}
		buf = append(buf, line...)
	}
	if err := fsutil.EnsureDir(eventsDir(root)); err != nil {
		return err
	}
	return fsutil.AtomicWrite(lifecyclePath(root), buf)
}

// RegenerateShortIDIndex rebuilds ids.json by replaying task_created and
// task_short_id_assigned events across every per-task log in (ts, id)
// order, recomputing next_seq as the max observed sequence plus one.
func RegenerateShortIDIndex(root, projectCode, subprojectCode string) error {
	type assignment struct {
		ts, id, shortID, taskID string
	}
	var assignments []assignment

	for _, dir := range []string{eventsDir(root), archiveEventsDir(root)} {
		archived := dir == archiveEventsDir(root)
		taskIDs, err := listTaskIDs(dir)
		if err != nil {
			return err
		}
		for _, taskID := range taskIDs {
			lines, err := fsutil.ReadLines(eventsPathFor(root, taskID, archived))
			if err != nil {
				return err
			}
			for _, line := range lines {
				e, err := event.Parse(line)
				if err != nil {
					return errs.Wrap(errs.Corrupt, err, "parse event in %s log", taskID)
				}
				var shortID string
				switch e.Type {
				case event.TaskCreated:
					if v, _ := e.Data["short_id"].(string); v != "" {
						shortID = v
					}
				case event.TaskShortIDAssigned:
					if v, _ := e.Data["short_id"].(string); v != "" {
						shortID = v
					}
				}
				if shortID != "" {
					assignments = append(assignments, assignment{ts: e.TS, id: e.ID, shortID: shortID, taskID: taskID})
				}
			}
		}
	}

	sort.SliceStable(assignments, func(i, j int) bool {
		if assignments[i].ts != assignments[j].ts {
			return assignments[i].ts < assignments[j].ts
		}
		return assignments[i].id < assignments[j].id
	})

	idx := &index.Index{SchemaVersion: index.SchemaVersion, NextSeq: map[string]int64{}}
	for _, a := range assignments {
		if err := idx.Assign(projectCode, subprojectCode, a.shortID, a.taskID); err != nil {
			return err
		}
	}
	return index.Save(root, idx)
}
