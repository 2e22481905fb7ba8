package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/artifact"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// AttachArtifactOptions configures a new artifact's metadata beyond its
// required type and title.
type AttachArtifactOptions struct {
	Summary string
	Model   string
	Role    string
	Payload *artifact.Payload
	Tags    []string
}

// AttachArtifact writes a new artifact's metadata to disk, then appends an
// artifact_attached event recording it against taskID. The role, when set,
// is the same completion-policy evidence a comment's role provides. The existence
// check runs first so a typo'd task ID never leaves behind an
// unreferenced artifact file; the event commit itself runs inside
// mutateOne's locked build callback.
func (e *Engine) AttachArtifact(taskID, actor string, artType artifact.Type, title string, opts AttachArtifactOptions) (*snapshot.Task, *artifact.Metadata, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, nil, err
	}
	if !artifact.IsValidType(artType) {
		return nil, nil, errs.New(errs.ValidationError, "artifact type %q is not recognized", artType)
	}

	existing, err := e.Store.ReadSnapshot(taskID)
	if err != nil {
		return nil, nil, err
	}
	if existing == nil {
		return nil, nil, errs.New(errs.NotFound, "task %s not found", taskID)
	}

	meta, err := artifact.New(artType, title, actor, opts.Payload)
	if err != nil {
		return nil, nil, err
	}
	meta.Summary = opts.Summary
	meta.Model = opts.Model
	meta.Tags = opts.Tags
	if err := artifact.Save(e.Store.Root, meta); err != nil {
		return nil, nil, err
	}

	next, err := e.mutateOne(taskID, func(current *snapshot.Task) (*event.Event, error) {
		data := map[string]any{"artifact_id": meta.ID, "artifact_type": string(artType)}
		if opts.Role != "" {
			data["role"] = opts.Role
		}
		return event.CreateTaskEvent(event.ArtifactAttached, taskID, actor, data, event.Options{})
	})
	if err != nil {
		return nil, nil, err
	}
	return next, meta, nil
}
