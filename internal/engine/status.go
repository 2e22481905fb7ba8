package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// SetStatusOptions configures a status_changed mutation.
type SetStatusOptions struct {
	Force  bool
	Reason string
}

// SetStatus transitions taskID to status, checking the transition graph,
// completion policy, and review-cycle limit gates unless opts.Force
// overrides them. A forced override without a reason is
// rejected: an override with no recorded justification defeats the
// purpose of gating. The gates are evaluated inside mutateOne's locked
// build callback, against the event history and snapshot as they stand
// under the per-task lock, not a possibly-stale read taken beforehand.
func (e *Engine) SetStatus(taskID, actor, status string, opts SetStatusOptions) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	if opts.Force && opts.Reason == "" {
		return nil, errs.New(errs.ValidationError, "--force requires --reason")
	}

	cfg := e.Store.Config
	if !containsStatus(cfg.Workflow.Statuses, status) {
		return nil, errs.New(errs.ValidationError, "status %q is not in workflow.statuses", status)
	}

	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		from := current.Status

		if !opts.Force {
			if !config.ValidateTransition(cfg, from, status) {
				return nil, errs.New(errs.InvalidTransition, "no transition from %q to %q", from, status)
			}
			events, err := e.Store.ReadEvents(taskID)
			if err != nil {
				return nil, err
			}
			view := &config.TaskView{Events: events}
			if err := config.CheckCompletionPolicy(cfg, view, status); err != nil {
				return nil, err
			}
			if err := config.CheckReviewCycleLimit(cfg, view, from, status); err != nil {
				return nil, err
			}
		}

		data := map[string]any{"from": from, "to": status}
		var prov *event.Provenance
		if opts.Reason != "" {
			data["reason"] = opts.Reason
			prov = &event.Provenance{Reason: opts.Reason}
		}
		return event.CreateTaskEvent(event.StatusChanged, taskID, actor, data, event.Options{Provenance: prov})
	})
}

// SetAssignment reassigns taskID to assignee (empty string unassigns).
func (e *Engine) SetAssignment(taskID, actor, assignee string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"from": current.AssignedTo, "to": assignee}
		return event.CreateTaskEvent(event.AssignmentChanged, taskID, actor, data, event.Options{})
	})
}

// UpdateField sets one field to value, rejecting writes to
// snapshot.ProtectedFields. field may address a custom field via the
// "custom_fields.<key>" dotted path.
func (e *Engine) UpdateField(taskID, actor, field string, value any) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	if field == "" {
		return nil, errs.New(errs.ValidationError, "field must not be empty")
	}
	if snapshot.ProtectedFields[field] {
		return nil, errs.New(errs.ValidationError, "%q is a protected field", field)
	}
	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"field": field, "value": value}
		return event.CreateTaskEvent(event.FieldUpdated, taskID, actor, data, event.Options{})
	})
}
