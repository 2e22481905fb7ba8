package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// mutateOne is the shared shape of every single-event, task-must-already-
// exist mutation (status, assignment, field, comment, relationship,
// artifact, branch). build runs inside internal/store.Store.Mutate's
// locked section and receives the task's current snapshot fetched under
// that same lock, so the validation it performs — transition legality,
// duplicate-edge checks, completion-policy gates — and the event it
// returns are never stale by the time they are folded and written.
func (e *Engine) mutateOne(taskID string, build func(current *snapshot.Task) (*event.Event, error)) (*snapshot.Task, error) {
	return e.Store.Mutate(taskID, nil, func(current *snapshot.Task) ([]*event.Event, *snapshot.Task, error) {
		if current == nil {
			return nil, nil, errs.New(errs.NotFound, "task %s not found", taskID)
		}
		ev, err := build(current)
		if err != nil {
			return nil, nil, err
		}
		next, err := snapshot.Apply(current, ev)
		if err != nil {
			return nil, nil, err
		}
		return []*event.Event{ev}, next, nil
	})
}
