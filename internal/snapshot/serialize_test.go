package snapshot_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

func TestSerializeSortsKeysAndIndents(t *testing.T) {
	task := &snapshot.Task{ID: "tsk_1", Title: "write docs", Status: "backlog", CreatedAt: "2026-01-01T00:00:00Z"}
	data, err := snapshot.Serialize(task)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))

	idIdx := strings.Index(string(data), `"id"`)
	statusIdx := strings.Index(string(data), `"status"`)
	titleIdx := strings.Index(string(data), `"title"`)
	require.True(t, idIdx < statusIdx)
	require.True(t, statusIdx < titleIdx)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	task := &snapshot.Task{
		ID: "tsk_1", Title: "write docs", Status: "backlog", CreatedAt: "2026-01-01T00:00:00Z",
		Tags: []string{"a", "b"}, CustomFields: map[string]any{"sprint": "42"},
	}
	data, err := snapshot.Serialize(task)
	require.NoError(t, err)

	parsed, err := snapshot.Parse(data)
	require.NoError(t, err)
	require.Equal(t, task.ID, parsed.ID)
	require.Equal(t, task.Tags, parsed.Tags)
	require.Equal(t, "42", parsed.CustomFields["sprint"])
}

func TestSerializeIsDeterministic(t *testing.T) {
	task := &snapshot.Task{ID: "tsk_1", Title: "t", Status: "backlog"}
	first, err := snapshot.Serialize(task)
	require.NoError(t, err)
	second, err := snapshot.Serialize(task)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := snapshot.Parse([]byte("{not json"))
	require.Error(t, err)
}

func TestIsValidRelationshipType(t *testing.T) {
	require.True(t, snapshot.IsValidRelationshipType(snapshot.RelBlocks))
	require.False(t, snapshot.IsValidRelationshipType("invented_type"))
}
