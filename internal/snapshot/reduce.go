package snapshot

import (
	"fmt"
	"strings"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
)

// Apply is the pure reducer: (prior snapshot or nil, event) -> new snapshot.
// No I/O, no wall-clock reads. The critical invariant — updated_at :=
// event.ts, last_event_id := event.id — holds for every event type so
// replay round-trips byte-identically.
func Apply(prior *Task, e *event.Event) (*Task, error) {
	var t *Task
	if prior == nil {
		t = &Task{}
	} else {
		t = prior.Clone()
	}

	switch e.Type {
	case event.TaskCreated:
		if err := applyCreated(t, e); err != nil {
			return nil, err
		}
	case event.StatusChanged:
		applyStatusChanged(t, e)
	case event.AssignmentChanged:
		applyAssignmentChanged(t, e)
	case event.FieldUpdated:
		if err := applyFieldUpdated(t, e); err != nil {
			return nil, err
		}
	case event.CommentAdded:
		// No snapshot field change beyond last_event_id/updated_at; comments
		// are read from the event log itself.
	case event.RelationshipAdded:
		applyRelationshipAdded(t, e)
	case event.RelationshipRemoved:
		applyRelationshipRemoved(t, e)
	case event.ArtifactAttached:
		applyArtifactAttached(t, e)
	case event.BranchLinked:
		applyBranchLinked(t, e)
	case event.BranchUnlinked:
		applyBranchUnlinked(t, e)
	case event.TaskShortIDAssigned:
		if err := applyShortIDAssigned(t, e); err != nil {
			return nil, err
		}
	case event.TaskArchived, event.TaskUnarchived, event.GitEvent:
		// Touch metadata only (open question resolved in DESIGN.md: no
		// git_context cache field).
	default:
		if !strings.HasPrefix(string(e.Type), event.CustomPrefix) {
			return nil, errs.New(errs.ValidationError, "reducer: unrecognized event type %q", e.Type)
		}
		// x_* custom types: no-op beyond metadata touch.
	}

	t.UpdatedAt = e.TS
	t.LastEventID = e.ID
	return t, nil
}

func applyCreated(t *Task, e *event.Event) error {
	d := e.Data
	t.SchemaVersion = SchemaVersion
	t.ID = e.TaskID
	t.CreatedAt = e.TS
	if title, ok := d["title"].(string); ok {
		t.Title = title
	}
	if status, ok := d["status"].(string); ok {
		t.Status = status
	}
	if description, ok := d["description"].(string); ok {
		t.Description = description
	}
	if priority, ok := d["priority"].(string); ok {
		t.Priority = priority
	}
	if urgency, ok := d["urgency"].(string); ok {
		t.Urgency = urgency
	}
	if typ, ok := d["type"].(string); ok {
		t.Type = typ
	}
	if complexity, ok := d["complexity"].(string); ok {
		t.Complexity = complexity
	}
	if tags, ok := d["tags"].([]any); ok {
		t.Tags = dedupeStrings(toStrings(tags))
	}
	if assignedTo, ok := d["assigned_to"].(string); ok {
		t.AssignedTo = assignedTo
	}
	if createdBy, ok := d["created_by"].(string); ok {
		t.CreatedBy = createdBy
	} else {
		t.CreatedBy = e.Actor
	}
	if t.Title == "" {
		return errs.New(errs.ValidationError, "task_created event %s is missing a title", e.ID)
	}
	return nil
}

func applyStatusChanged(t *Task, e *event.Event) {
	if to, ok := e.Data["to"].(string); ok {
		t.Status = to
		t.LastStatusChangedAt = e.TS
		if to == "done" {
			t.DoneAt = e.TS
		}
	}
}

func applyAssignmentChanged(t *Task, e *event.Event) {
	if to, ok := e.Data["to"].(string); ok {
		t.AssignedTo = to
	}
}

// applyFieldUpdated supports dotted paths into custom_fields, e.g.
// "custom_fields.sprint". Top-level protected fields are rejected.
func applyFieldUpdated(t *Task, e *event.Event) error {
	field, _ := e.Data["field"].(string)
	if field == "" {
		return errs.New(errs.ValidationError, "field_updated event %s is missing a field name", e.ID)
	}
	value := e.Data["value"]

	if strings.HasPrefix(field, "custom_fields.") {
		key := strings.TrimPrefix(field, "custom_fields.")
		if t.CustomFields == nil {
			t.CustomFields = map[string]any{}
		}
		t.CustomFields[key] = value
		return nil
	}

	if ProtectedFields[field] {
		return errs.New(errs.ValidationError, "field_updated event %s: %q is a protected field", e.ID, field)
	}

	switch field {
	case "title":
		t.Title, _ = value.(string)
	case "status":
		t.Status, _ = value.(string)
	case "description":
		t.Description, _ = value.(string)
	case "priority":
		t.Priority, _ = value.(string)
	case "urgency":
		t.Urgency, _ = value.(string)
	case "type":
		t.Type, _ = value.(string)
	case "complexity":
		t.Complexity, _ = value.(string)
	case "assigned_to":
		t.AssignedTo, _ = value.(string)
	case "tags":
		if tags, ok := value.([]any); ok {
			t.Tags = dedupeStrings(toStrings(tags))
		}
	case "updated_at", "done_at", "last_status_changed_at":
		return errs.New(errs.ValidationError, "field_updated event %s: %q is derived, not settable", e.ID, field)
	default:
		if t.CustomFields == nil {
			t.CustomFields = map[string]any{}
		}
		t.CustomFields[field] = value
	}
	return nil
}

func applyRelationshipAdded(t *Task, e *event.Event) {
	rel := Relationship{
		Type:         asString(e.Data["rel_type"]),
		TargetTaskID: asString(e.Data["target_task_id"]),
		CreatedAt:    e.TS,
		CreatedBy:    e.Actor,
		Note:         asString(e.Data["note"]),
	}
	t.RelationshipsOut = append(t.RelationshipsOut, rel)
}

func applyRelationshipRemoved(t *Task, e *event.Event) {
	relType := asString(e.Data["rel_type"])
	target := asString(e.Data["target_task_id"])
	out := t.RelationshipsOut[:0:0]
	for _, r := range t.RelationshipsOut {
		if r.Type == relType && r.TargetTaskID == target {
			continue
		}
		out = append(out, r)
	}
	t.RelationshipsOut = out
}

func applyArtifactAttached(t *Task, e *event.Event) {
	artID := asString(e.Data["artifact_id"])
	if artID == "" {
		return
	}
	for _, existing := range t.ArtifactRefs {
		if existing == artID {
			return
		}
	}
	t.ArtifactRefs = append(t.ArtifactRefs, artID)
}

func applyBranchLinked(t *Task, e *event.Event) {
	link := BranchLink{
		Branch:   asString(e.Data["branch"]),
		Repo:     asString(e.Data["repo"]),
		LinkedAt: e.TS,
		LinkedBy: e.Actor,
	}
	t.BranchLinks = append(t.BranchLinks, link)
}

func applyBranchUnlinked(t *Task, e *event.Event) {
	branch := asString(e.Data["branch"])
	repo := asString(e.Data["repo"])
	out := t.BranchLinks[:0:0]
	for _, l := range t.BranchLinks {
		if l.Branch == branch && l.Repo == repo {
			continue
		}
		out = append(out, l)
	}
	t.BranchLinks = out
}

func applyShortIDAssigned(t *Task, e *event.Event) error {
	shortID := asString(e.Data["short_id"])
	if shortID == "" {
		return errs.New(errs.ValidationError, "task_short_id_assigned event %s is missing short_id", e.ID)
	}
	if t.ShortID != "" {
		return errs.New(errs.ValidationError, "task %s already has short_id %q, cannot reassign to %q", t.ID, t.ShortID, shortID)
	}
	t.ShortID = shortID
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func toStrings(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
