package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// LinkBranch records a git branch as linked to taskID.
func (e *Engine) LinkBranch(taskID, actor, branch, repo string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	if branch == "" {
		return nil, errs.New(errs.ValidationError, "branch must not be empty")
	}
	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"branch": branch}
		if repo != "" {
			data["repo"] = repo
		}
		return event.CreateTaskEvent(event.BranchLinked, taskID, actor, data, event.Options{})
	})
}

// UnlinkBranch removes a previously-linked branch. Unlinking a branch that
// is not currently linked succeeds; a branch_unlinked event is still
// appended and the branch list is unchanged.
func (e *Engine) UnlinkBranch(taskID, actor, branch, repo string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"branch": branch}
		if repo != "" {
			data["repo"] = repo
		}
		return event.CreateTaskEvent(event.BranchUnlinked, taskID, actor, data, event.Options{})
	})
}
