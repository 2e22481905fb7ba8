package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// AddComment appends a comment_added event carrying body and an optional
// role, the evidence internal/config.CheckCompletionPolicy scans for.
func (e *Engine) AddComment(taskID, actor, body, role string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	if body == "" {
		return nil, errs.New(errs.ValidationError, "comment body must not be empty")
	}
	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"body": body}
		if role != "" {
			data["role"] = role
		}
		return event.CreateTaskEvent(event.CommentAdded, taskID, actor, data, event.Options{})
	})
}
