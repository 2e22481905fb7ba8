package doctor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/doctor"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/resource"
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

func findingCodes(r doctor.Report) map[doctor.Code]int {
	out := map[doctor.Code]int{}
	for _, f := range r.Findings {
		if f.Status != doctor.StatusOK {
			out[f.Code]++
		}
	}
	return out
}

func TestRunOnFreshStoreIsClean(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Create("write the docs", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.True(t, report.Clean(), "%+v", report.Findings)
}

// A writer that died after appending an event but before the snapshot
// rename leaves a stale snapshot behind. Doctor must report the drift,
// and Fix must rebuild the snapshot from the log.
func TestCrashBetweenAppendAndRenameIsDriftThenFixed(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("crashy", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	// Simulate the crash window: append a comment event directly to the
	// log without rewriting the snapshot.
	orphan, err := event.CreateTaskEvent(event.CommentAdded, task.ID, "agent:claude",
		map[string]any{"body": "landed but never materialized"}, event.Options{})
	require.NoError(t, err)
	line, err := event.Serialize(orphan)
	require.NoError(t, err)
	logPath := filepath.Join(e.Store.Root, ".lattice", "events", task.ID+".jsonl")
	require.NoError(t, fsutil.AppendJSONL(logPath, line))

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.Equal(t, 1, findingCodes(report)[doctor.CodeDrift])

	result, err := doctor.Fix(e.Store.Root)
	require.NoError(t, err)
	require.Equal(t, 1, result.SnapshotsRebuilt)
	require.Empty(t, result.Errors)

	snap, err := e.Store.ReadSnapshot(task.ID)
	require.NoError(t, err)
	require.Equal(t, orphan.ID, snap.LastEventID)

	report, err = doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.True(t, report.Clean(), "%+v", report.Findings)
}

func TestTruncatedTailIsWarnedAndDropped(t *testing.T) {
	e := newTestEngine(t)
	task, err := e.Create("torn append", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	logPath := filepath.Join(e.Store.Root, ".lattice", "events", task.ID+".jsonl")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"ev_trunc`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.Equal(t, 1, findingCodes(report)[doctor.CodeTruncatedTail])

	result, err := doctor.Fix(e.Store.Root)
	require.NoError(t, err)
	require.Equal(t, 1, result.TruncatedTailsDropped)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Equal(t, byte('\n'), data[len(data)-1], "fix must leave only complete lines behind")

	report, err = doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.True(t, report.Clean(), "%+v", report.Findings)
}

func TestDanglingRelationshipIsReported(t *testing.T) {
	e := newTestEngine(t)
	a, err := e.Create("task a", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	b, err := e.Create("task b", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	_, err = e.AddRelationship(a.ID, "human:alice", "blocks", b.ID, "")
	require.NoError(t, err)

	// Externally losing B's files (e.g. a bad merge) dangles A's edge.
	require.NoError(t, os.Remove(filepath.Join(e.Store.Root, ".lattice", "tasks", b.ID+".json")))
	require.NoError(t, os.Remove(filepath.Join(e.Store.Root, ".lattice", "events", b.ID+".jsonl")))

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	codes := findingCodes(report)
	require.Equal(t, 1, codes[doctor.CodeDanglingRelation])
}

func TestMissingLifecycleEntriesAreRegenerated(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Create("lifecycle target", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)

	lifecyclePath := filepath.Join(e.Store.Root, ".lattice", "events", "_lifecycle.jsonl")
	require.NoError(t, os.WriteFile(lifecyclePath, nil, 0o644))

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.Equal(t, 1, findingCodes(report)[doctor.CodeLifecycleMissing])

	result, err := doctor.Fix(e.Store.Root)
	require.NoError(t, err)
	require.True(t, result.LifecycleRegenerated)

	report, err = doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.True(t, report.Clean(), "%+v", report.Findings)
}

func TestCorruptArtifactMetadataIsReported(t *testing.T) {
	e := newTestEngine(t)
	metaDir := filepath.Join(e.Store.Root, ".lattice", "artifacts", "meta")
	require.NoError(t, os.MkdirAll(metaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(metaDir, "art_01HZZZZZZZZZZZZZZZZZZZZZZZ.json"), []byte("{broken"), 0o644))

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.NotZero(t, findingCodes(report)[doctor.CodeParseError])
}

func TestResourceEventLogsAreNotTreatedAsTasks(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Create("real task", "human:alice", engine.CreateOptions{})
	require.NoError(t, err)
	_, err = resource.Acquire(e.Store.Root, "gpu-0", "agent:claude", time.Minute, false, 0, false)
	require.NoError(t, err)

	report, err := doctor.Run(e.Store.Root)
	require.NoError(t, err)
	require.True(t, report.Clean(), "resource logs under events/ must not be scanned as task logs: %+v", report.Findings)
}
