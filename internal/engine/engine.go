// Package engine is Lattice's task-mutation orchestration layer: it wires
// config validation, event construction, the reducer, and the write path
// together into one call per operation (create, status, comment, relate,
// attach, branch link). It is the layer a CLI or any other external
// collaborator drives; internal/store alone only knows how to durably
// commit a mutation someone else builds while its lock is held.
package engine

import (
	"strings"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/index"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/store"
)

// Engine drives task mutations against one .lattice root.
type Engine struct {
	Store *store.Store
}

// Open builds an Engine for root.
func Open(root string) (*Engine, error) {
	s, err := store.Open(root)
	if err != nil {
		return nil, err
	}
	return &Engine{Store: s}, nil
}

// ResolveTaskID accepts either a full task ID or a short-ID alias
// (PROJECT[-SUB]-N, case-insensitive) and returns the task ID it names.
// Short-IDs resolve through ids.json; an alias with no mapping is
// NotFound, and anything matching neither grammar is InvalidId.
func (e *Engine) ResolveTaskID(ref string) (string, error) {
	if err := ids.Validate(ref, ids.PrefixTask); err == nil {
		return ref, nil
	}
	upper := strings.ToUpper(ref)
	if _, _, _, err := ids.ParseShortID(upper); err == nil {
		idx, err := index.Load(e.Store.Root)
		if err != nil {
			return "", err
		}
		if taskID, ok := idx.TaskFor(upper); ok {
			return taskID, nil
		}
		return "", errs.New(errs.NotFound, "no task with short_id %s", upper)
	}
	return "", errs.New(errs.InvalidID, "%q is neither a task id nor a short-id", ref)
}

// CreateOptions configures a new task beyond its required title/actor.
type CreateOptions struct {
	ID          string
	EventID     string
	Status      string
	Description string
	Priority    string
	Urgency     string
	Type        string
	Complexity  string
	Tags        []string
	AssignedTo  string
}

// Create builds and commits a task_created event, assigning a short-ID
// when the store's config carries a project_code. If taskID already exists
// on disk, the idempotency check runs inside the same locked section as
// the rest of the build and decides whether this is a no-op success or a
// conflict — never a second, orphaned short-ID reservation.
func (e *Engine) Create(title, actor string, opts CreateOptions) (*snapshot.Task, error) {
	if title == "" {
		return nil, errs.New(errs.ValidationError, "title must not be empty")
	}
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}

	cfg := e.Store.Config
	status := opts.Status
	if status == "" {
		status = cfg.DefaultStatus
	}
	if !containsStatus(cfg.Workflow.Statuses, status) {
		return nil, errs.New(errs.ValidationError, "status %q is not in workflow.statuses", status)
	}
	priority := opts.Priority
	if priority == "" {
		priority = cfg.DefaultPriority
	}

	taskID := opts.ID
	if taskID == "" {
		taskID = ids.New(ids.PrefixTask)
	} else if err := ids.Validate(taskID, ids.PrefixTask); err != nil {
		return nil, err
	}

	data := map[string]any{
		"title":  title,
		"status": status,
	}
	if priority != "" {
		data["priority"] = priority
	}
	if opts.Description != "" {
		data["description"] = opts.Description
	}
	if opts.Urgency != "" {
		data["urgency"] = opts.Urgency
	}
	if opts.Type != "" {
		data["type"] = opts.Type
	}
	if opts.Complexity != "" {
		data["complexity"] = opts.Complexity
	}
	if len(opts.Tags) > 0 {
		data["tags"] = toAnySlice(opts.Tags)
	}
	if opts.AssignedTo != "" {
		data["assigned_to"] = opts.AssignedTo
	}

	// task_created is always a lifecycle event, and short-ID reservation (when
	// configured) mutates ids.json: both locks are acquired together with
	// events_<task>/tasks_<task> up front, so idempotency-check, short-ID
	// mint, and reducer fold all run inside one critical section.
	extraKeys := []string{"events__lifecycle"}
	if cfg.ProjectCode != "" {
		extraKeys = append(extraKeys, "ids")
	}

	return e.Store.Mutate(taskID, extraKeys, func(current *snapshot.Task) ([]*event.Event, *snapshot.Task, error) {
		if current != nil {
			if !sameCreatePayload(current, data) {
				return nil, nil, errs.New(errs.IdempotencyConflict,
					"task %s already exists with a different payload", taskID)
			}
			return nil, current, nil
		}

		created, err := event.CreateTaskEvent(event.TaskCreated, taskID, actor, data, event.Options{ID: opts.EventID})
		if err != nil {
			return nil, nil, err
		}
		events := []*event.Event{created}
		snap, err := snapshot.Apply(nil, created)
		if err != nil {
			return nil, nil, err
		}

		if cfg.ProjectCode != "" {
			shortID, err := e.mintShortID(taskID)
			if err != nil {
				return nil, nil, err
			}
			assigned, err := event.CreateTaskEvent(event.TaskShortIDAssigned, taskID, actor,
				map[string]any{"short_id": shortID}, event.Options{})
			if err != nil {
				return nil, nil, err
			}
			snap, err = snapshot.Apply(snap, assigned)
			if err != nil {
				return nil, nil, err
			}
			events = append(events, assigned)
		}

		return events, snap, nil
	})
}

// mintShortID assigns and durably records the next short-ID for the
// store's project/subproject code in ids.json. The caller must already
// hold the "ids" lock (internal/store.Store.Mutate acquires it as part of
// Create's lock set), so concurrent creates cannot mint the same short ID.
// ids.json is saved before the task's events are appended, so a crash in
// between leaves an entry with no task_short_id_assigned event; doctor
// reports that as an orphan and Fix regenerates the index.
func (e *Engine) mintShortID(taskID string) (string, error) {
	root := e.Store.Root
	cfg := e.Store.Config

	idx, err := index.Load(root)
	if err != nil {
		return "", err
	}
	seq := idx.NextSeqFor(cfg.ProjectCode, cfg.SubprojectCode)
	shortID, err := ids.ShortID(cfg.ProjectCode, cfg.SubprojectCode, uint64(seq))
	if err != nil {
		return "", err
	}
	if err := idx.Assign(cfg.ProjectCode, cfg.SubprojectCode, shortID, taskID); err != nil {
		return "", err
	}
	if err := index.Save(root, idx); err != nil {
		return "", err
	}
	return shortID, nil
}

func containsStatus(statuses []string, s string) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
