package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/archive"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// Archive moves taskID from the active tree to the archive tree. It is an
// engine-level passthrough to internal/archive, which owns its own lock
// ordering distinct from Store.Mutate's.
func (e *Engine) Archive(taskID, actor string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return archive.Archive(e.Store.Root, taskID, actor, e.Store.Config)
}

// Unarchive reverses Archive.
func (e *Engine) Unarchive(taskID, actor string) (*snapshot.Task, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return archive.Unarchive(e.Store.Root, taskID, actor, e.Store.Config)
}
