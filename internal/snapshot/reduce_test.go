package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

func createdEvent(t *testing.T, data map[string]any) *event.Event {
	t.Helper()
	e, err := event.CreateTaskEvent(event.TaskCreated, "tsk_1", "human:alice", data, event.Options{ID: "evt_1"})
	require.NoError(t, err)
	return e
}

func TestApplyTaskCreatedSetsFields(t *testing.T) {
	e := createdEvent(t, map[string]any{
		"title": "write docs", "status": "backlog", "priority": "high",
		"tags": []any{"docs", "docs"},
	})
	s, err := snapshot.Apply(nil, e)
	require.NoError(t, err)
	require.Equal(t, "write docs", s.Title)
	require.Equal(t, "backlog", s.Status)
	require.Equal(t, "high", s.Priority)
	require.Equal(t, []string{"docs"}, s.Tags, "tags must be deduped")
	require.Equal(t, "human:alice", s.CreatedBy)
	require.Equal(t, e.TS, s.UpdatedAt)
	require.Equal(t, e.ID, s.LastEventID)
}

func TestApplyTaskCreatedRequiresTitle(t *testing.T) {
	e := createdEvent(t, map[string]any{"status": "backlog"})
	_, err := snapshot.Apply(nil, e)
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ValidationError))
}

func TestApplyStatusChangedSetsDoneAt(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1", Status: "review"}
	e, err := event.CreateTaskEvent(event.StatusChanged, "tsk_1", "human:alice",
		map[string]any{"from": "review", "to": "done"}, event.Options{})
	require.NoError(t, err)

	out, err := snapshot.Apply(s, e)
	require.NoError(t, err)
	require.Equal(t, "done", out.Status)
	require.Equal(t, e.TS, out.DoneAt)
	require.Equal(t, e.TS, out.LastStatusChangedAt)
}

func TestApplyFieldUpdatedRejectsProtectedField(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.FieldUpdated, "tsk_1", "human:alice",
		map[string]any{"field": "id", "value": "tsk_evil"}, event.Options{})
	require.NoError(t, err)

	_, err = snapshot.Apply(s, e)
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ValidationError))
}

func TestApplyFieldUpdatedRejectsDerivedField(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.FieldUpdated, "tsk_1", "human:alice",
		map[string]any{"field": "updated_at", "value": "2020-01-01T00:00:00Z"}, event.Options{})
	require.NoError(t, err)
	_, err = snapshot.Apply(s, e)
	require.Error(t, err)
}

func TestApplyFieldUpdatedAllowsCustomFieldDottedPath(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.FieldUpdated, "tsk_1", "human:alice",
		map[string]any{"field": "custom_fields.sprint", "value": "42"}, event.Options{})
	require.NoError(t, err)
	out, err := snapshot.Apply(s, e)
	require.NoError(t, err)
	require.Equal(t, "42", out.CustomFields["sprint"])
}

func TestApplyFieldUpdatedUnknownFieldGoesToCustomFields(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.FieldUpdated, "tsk_1", "human:alice",
		map[string]any{"field": "story_points", "value": float64(3)}, event.Options{})
	require.NoError(t, err)
	out, err := snapshot.Apply(s, e)
	require.NoError(t, err)
	require.Equal(t, float64(3), out.CustomFields["story_points"])
}

func TestApplyRelationshipAddedThenRemoved(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	addEvt, err := event.CreateTaskEvent(event.RelationshipAdded, "tsk_1", "human:alice",
		map[string]any{"rel_type": snapshot.RelBlocks, "target_task_id": "tsk_2"}, event.Options{})
	require.NoError(t, err)
	s, err = snapshot.Apply(s, addEvt)
	require.NoError(t, err)
	require.Len(t, s.RelationshipsOut, 1)

	removeEvt, err := event.CreateTaskEvent(event.RelationshipRemoved, "tsk_1", "human:alice",
		map[string]any{"rel_type": snapshot.RelBlocks, "target_task_id": "tsk_2"}, event.Options{})
	require.NoError(t, err)
	s, err = snapshot.Apply(s, removeEvt)
	require.NoError(t, err)
	require.Empty(t, s.RelationshipsOut)
}

func TestApplyArtifactAttachedDedupes(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.ArtifactAttached, "tsk_1", "human:alice",
		map[string]any{"artifact_id": "art_1"}, event.Options{})
	require.NoError(t, err)
	s, err = snapshot.Apply(s, e)
	require.NoError(t, err)
	s, err = snapshot.Apply(s, e)
	require.NoError(t, err)
	require.Equal(t, []string{"art_1"}, s.ArtifactRefs)
}

func TestApplyBranchLinkedThenUnlinked(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	linkEvt, err := event.CreateTaskEvent(event.BranchLinked, "tsk_1", "human:alice",
		map[string]any{"branch": "feature/x", "repo": "lattice"}, event.Options{})
	require.NoError(t, err)
	s, err = snapshot.Apply(s, linkEvt)
	require.NoError(t, err)
	require.Len(t, s.BranchLinks, 1)

	unlinkEvt, err := event.CreateTaskEvent(event.BranchUnlinked, "tsk_1", "human:alice",
		map[string]any{"branch": "feature/x", "repo": "lattice"}, event.Options{})
	require.NoError(t, err)
	s, err = snapshot.Apply(s, unlinkEvt)
	require.NoError(t, err)
	require.Empty(t, s.BranchLinks)
}

func TestApplyShortIDAssignedOnce(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.TaskShortIDAssigned, "tsk_1", "human:alice",
		map[string]any{"short_id": "LAT-1"}, event.Options{})
	require.NoError(t, err)
	s, err = snapshot.Apply(s, e)
	require.NoError(t, err)
	require.Equal(t, "LAT-1", s.ShortID)
}

func TestApplyShortIDAssignedRejectsAnyReassignmentEvenToSameValue(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1", ShortID: "LAT-1"}
	e, err := event.CreateTaskEvent(event.TaskShortIDAssigned, "tsk_1", "human:alice",
		map[string]any{"short_id": "LAT-1"}, event.Options{})
	require.NoError(t, err)

	_, err = snapshot.Apply(s, e)
	require.Error(t, err, "re-assigning the same short_id must still be rejected unconditionally")
	require.True(t, errs.OfCode(err, errs.ValidationError))
}

func TestApplyRejectsUnrecognizedEventType(t *testing.T) {
	// Bypass event.CreateTaskEvent's own type validation to exercise the
	// reducer's independent defensive check against a record that somehow
	// reached it with an unrecognized type (e.g. read back from a future
	// schema version).
	s := &snapshot.Task{ID: "tsk_1"}
	e := &event.Event{ID: "evt_bogus", Type: event.Type("bogus_type"), TaskID: "tsk_1", Actor: "human:alice", Data: map[string]any{}}
	_, err := snapshot.Apply(s, e)
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ValidationError))
}

func TestApplyAllowsCustomEventTypeAsMetadataOnlyTouch(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1"}
	e, err := event.CreateTaskEvent(event.Type("x_ci_finished"), "tsk_1", "human:alice", nil, event.Options{})
	require.NoError(t, err)
	out, err := snapshot.Apply(s, e)
	require.NoError(t, err)
	require.Equal(t, e.ID, out.LastEventID)
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	s := &snapshot.Task{ID: "tsk_1", Tags: []string{"a"}, CustomFields: map[string]any{"k": "v"}}
	c := s.Clone()
	c.Tags[0] = "changed"
	c.CustomFields["k"] = "changed"
	require.Equal(t, "a", s.Tags[0])
	require.Equal(t, "v", s.CustomFields["k"])
}
