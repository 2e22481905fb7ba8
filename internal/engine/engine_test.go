package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"tasks", "events", "archive/tasks", "archive/events"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".lattice", dir), 0o755))
	}
	cfg := config.Default()
	cfg.ProjectCode = "DEMO"
	require.NoError(t, config.Save(root, cfg))

	e, err := engine.Open(root)
	require.NoError(t, err)
	return e
}

func TestCreateAssignsShortID(t *testing.T) {
	e := newTestEngine(t)

	task, err := e.Create("write onboarding doc", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, "write onboarding doc", task.Title)
	require.Equal(t, "backlog", task.Status)
	require.Equal(t, "DEMO-1", task.ShortID)
}

func TestCreateIsIdempotentOnSameIDAndPayload(t *testing.T) {
	e := newTestEngine(t)
	taskID := ids.New(ids.PrefixTask)

	first, err := e.Create("ship the release", "human:alice", engine.CreateOptions{ID: taskID})
	require.NoError(t, err)

	second, err := e.Create("ship the release", "human:alice", engine.CreateOptions{ID: taskID})
	require.NoError(t, err)
	require.Equal(t, first.LastEventID, second.LastEventID)
	require.Equal(t, first.ShortID, second.ShortID)

	// a repeated create must never mint a second, orphaned short-ID.
	report, err := e.Doctor()
	require.NoError(t, err)
	require.True(t, report.Clean(), "%+v", report.Findings)
}

func TestCreateWithSameIDDifferentPayloadConflicts(t *testing.T) {
	e := newTestEngine(t)
	taskID := ids.New(ids.PrefixTask)

	_, err := e.Create("ship the release", "human:alice", engine.CreateOptions{ID: taskID})
	require.NoError(t, err)

	_, err = e.Create("ship something else", "human:alice", engine.CreateOptions{ID: taskID})
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.IdempotencyConflict))
}

func TestSetStatusFollowsTransitionGraph(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("plan the migration", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	_, err = e.SetStatus(task.ID, "human:alice", "in_progress", engine.SetStatusOptions{})
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.InvalidTransition))

	next, err := e.SetStatus(task.ID, "human:alice", "in_planning", engine.SetStatusOptions{})
	require.NoError(t, err)
	require.Equal(t, "in_planning", next.Status)
}

func TestSetStatusForceRequiresReason(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("plan the migration", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	_, err = e.SetStatus(task.ID, "human:alice", "in_progress", engine.SetStatusOptions{Force: true})
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ValidationError))

	next, err := e.SetStatus(task.ID, "human:alice", "in_progress", engine.SetStatusOptions{Force: true, Reason: "skip planning for hotfix"})
	require.NoError(t, err)
	require.Equal(t, "in_progress", next.Status)

	// the override's justification lands in both the event data and its
	// provenance.
	events, err := e.Store.ReadEvents(task.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	require.Equal(t, "skip planning for hotfix", last.Data["reason"])
	require.NotNil(t, last.Provenance)
	require.Equal(t, "skip planning for hotfix", last.Provenance.Reason)
}

func TestResolveTaskIDAcceptsShortIDAlias(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("aliased task", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, "DEMO-1", task.ShortID)

	resolved, err := e.ResolveTaskID("demo-1")
	require.NoError(t, err)
	require.Equal(t, task.ID, resolved)

	resolved, err = e.ResolveTaskID(task.ID)
	require.NoError(t, err)
	require.Equal(t, task.ID, resolved)

	_, err = e.ResolveTaskID("DEMO-99")
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.NotFound))

	_, err = e.ResolveTaskID("not/an/id")
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.InvalidID))
}

func TestAddRelationshipRejectsSelfLinkAndDuplicate(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.Create("task a", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	b, err := e.Create("task b", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	_, err = e.AddRelationship(a.ID, "human:alice", "blocks", a.ID, "")
	require.Error(t, err)

	next, err := e.AddRelationship(a.ID, "human:alice", "blocks", b.ID, "")
	require.NoError(t, err)
	require.Len(t, next.RelationshipsOut, 1)

	_, err = e.AddRelationship(a.ID, "human:alice", "blocks", b.ID, "")
	require.Error(t, err)
}

func TestAddCommentSatisfiesCompletionPolicy(t *testing.T) {
	e := newTestEngine(t)
	cfg := e.Store.Config
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {RequireRoles: []string{"reviewer"}},
	}

	task, err := e.Create("fix the bug", "human:alice", engine.CreateOptions{Status: "review"})
	require.NoError(t, err)

	_, err = e.SetStatus(task.ID, "human:alice", "done", engine.SetStatusOptions{})
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.CompletionBlocked))

	_, err = e.AddComment(task.ID, "human:bob", "looks good", "reviewer")
	require.NoError(t, err)

	next, err := e.SetStatus(task.ID, "human:alice", "done", engine.SetStatusOptions{})
	require.NoError(t, err)
	require.Equal(t, "done", next.Status)
}

func TestAttachArtifactRecordsReference(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("summarize the thread", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	next, meta, err := e.AttachArtifact(task.ID, "agent:claude", "conversation", "design discussion", engine.AttachArtifactOptions{})
	require.NoError(t, err)
	require.Contains(t, next.ArtifactRefs, meta.ID)
}

func TestArchiveAndUnarchiveRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("cleanup task", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	_, err = e.Archive(task.ID, "human:alice")
	require.NoError(t, err)

	snap, err := e.Store.ReadSnapshot(task.ID)
	require.NoError(t, err)
	require.Nil(t, snap)

	back, err := e.Unarchive(task.ID, "human:alice")
	require.NoError(t, err)
	require.Equal(t, task.ID, back.ID)
}

// A task walked through create -> (rejected shortcut) -> planning ->
// in_progress -> archive leaves exactly the expected event trail behind,
// and a rebuild over the result is a byte-level no-op.
func TestCreateStatusArchiveFlow(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("first", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	require.Equal(t, "DEMO-1", task.ShortID)

	_, err = e.SetStatus(task.ID, "agent:c", "in_progress", engine.SetStatusOptions{})
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.InvalidTransition))

	for _, s := range []string{"in_planning", "planned", "in_progress"} {
		_, err = e.SetStatus(task.ID, "agent:c", s, engine.SetStatusOptions{})
		require.NoError(t, err)
	}

	_, err = e.Archive(task.ID, "human:alice")
	require.NoError(t, err)

	// created, short-id assignment, three status changes, archived.
	lines, err := fsutil.ReadLines(filepath.Join(e.Store.Root, ".lattice", "archive", "events", task.ID+".jsonl"))
	require.NoError(t, err)
	require.Len(t, lines, 6)

	lifecycle, err := fsutil.ReadLines(filepath.Join(e.Store.Root, ".lattice", "events", "_lifecycle.jsonl"))
	require.NoError(t, err)
	require.Len(t, lifecycle, 2, "lifecycle index should hold task_created and task_archived only")

	data, err := os.ReadFile(filepath.Join(e.Store.Root, ".lattice", "archive", "tasks", task.ID+".json"))
	require.NoError(t, err)
	archived, err := snapshot.Parse(data)
	require.NoError(t, err)
	require.Equal(t, "in_progress", archived.Status)

	result := e.Rebuild()
	for _, r := range result.Tasks {
		require.NoError(t, r.Err)
		require.False(t, r.Changed, "rebuild over a quiesced store must not change bytes")
	}
	require.NoError(t, result.Lifecycle)
	require.NoError(t, result.ShortIDs)
}

func TestRebuildIsStableAfterCreate(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Create("idempotent replay target", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	result := e.Rebuild()
	for _, r := range result.Tasks {
		require.NoError(t, r.Err)
		require.False(t, r.Changed, "rebuild should be a no-op on an untouched store")
	}
	require.NoError(t, result.Lifecycle)
	require.NoError(t, result.ShortIDs)
}
