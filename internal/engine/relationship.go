package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// AddRelationship records an outgoing edge from taskID to targetTaskID.
// Self-links and duplicate (relType, target) edges are rejected outright:
// a task cannot relate to itself, and the same edge is never recorded
// twice. The duplicate-edge check runs inside mutateOne's
// locked build callback against taskID's current snapshot; the
// targetTaskID existence check is a best-effort reference check on a
// different task's state and is not itself guarded by taskID's lock —
// doctor flags any dangling reference this can't fully prevent.
func (e *Engine) AddRelationship(taskID, actor, relType, targetTaskID, note string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	if !snapshot.IsValidRelationshipType(relType) {
		return nil, errs.New(errs.ValidationError, "relationship type %q is not recognized", relType)
	}
	if taskID == targetTaskID {
		return nil, errs.New(errs.ValidationError, "task %s cannot have a %s relationship to itself", taskID, relType)
	}

	exists, err := e.Store.TaskExists(targetTaskID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.New(errs.NotFound, "task %s not found", targetTaskID)
	}

	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		for _, r := range current.RelationshipsOut {
			if r.Type == relType && r.TargetTaskID == targetTaskID {
				return nil, errs.New(errs.ValidationError, "task %s already has a %s relationship to %s", taskID, relType, targetTaskID)
			}
		}
		data := map[string]any{"rel_type": relType, "target_task_id": targetTaskID}
		if note != "" {
			data["note"] = note
		}
		return event.CreateTaskEvent(event.RelationshipAdded, taskID, actor, data, event.Options{})
	})
}

// RemoveRelationship removes a previously-added outgoing edge. Removing an
// edge that does not exist succeeds: a relationship_removed event is still
// appended, and the edge set ends up as the caller asked either way.
func (e *Engine) RemoveRelationship(taskID, actor, relType, targetTaskID string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"rel_type": relType, "target_task_id": targetTaskID}
		return event.CreateTaskEvent(event.RelationshipRemoved, taskID, actor, data, event.Options{})
	})
}
