package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
)

func TestValidateTypeAcceptsBuiltins(t *testing.T) {
	require.NoError(t, event.ValidateType(event.TaskCreated))
	require.NoError(t, event.ValidateType(event.ResourceAcquired))
}

func TestValidateTypeAcceptsValidCustomType(t *testing.T) {
	require.NoError(t, event.ValidateType(event.Type("x_ci_run_finished")))
}

func TestValidateTypeRejectsUnprefixedCustomType(t *testing.T) {
	err := event.ValidateType(event.Type("ci_run_finished"))
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ValidationError))
}

func TestValidateCustomTypeAcceptsXPrefixedBuiltinName(t *testing.T) {
	err := event.ValidateCustomType(event.Type("x_task_created"))
	require.NoError(t, err) // x_task_created itself doesn't collide
	err = event.ValidateType(event.TaskCreated)
	require.NoError(t, err)
}

func TestIsLifecycleOnlyCoversCreateArchiveUnarchive(t *testing.T) {
	require.True(t, event.IsLifecycle(event.TaskCreated))
	require.True(t, event.IsLifecycle(event.TaskArchived))
	require.True(t, event.IsLifecycle(event.TaskUnarchived))
	require.False(t, event.IsLifecycle(event.StatusChanged))
}

func TestCreateTaskEventMintsIDAndTimestampWhenOmitted(t *testing.T) {
	e, err := event.CreateTaskEvent(event.TaskCreated, "tsk_1", "human:alice", nil, event.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.NotEmpty(t, e.TS)
	require.Equal(t, "tsk_1", e.TaskID)
	require.NotNil(t, e.Data)
}

func TestCreateTaskEventRejectsInvalidActor(t *testing.T) {
	_, err := event.CreateTaskEvent(event.TaskCreated, "tsk_1", "bogus", nil, event.Options{})
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.InvalidActor))
}

func TestCreateTaskEventRejectsInvalidType(t *testing.T) {
	_, err := event.CreateTaskEvent(event.Type("not_registered"), "tsk_1", "human:alice", nil, event.Options{})
	require.Error(t, err)
}

func TestCreateResourceEventSetsResourceID(t *testing.T) {
	e, err := event.CreateResourceEvent(event.ResourceCreated, "res_1", "agent:bot", nil, event.Options{})
	require.NoError(t, err)
	require.Equal(t, "res_1", e.ResourceID)
	require.Empty(t, e.TaskID)
}

func TestCreateTaskEventOmitsEmptyOptionalStructs(t *testing.T) {
	e, err := event.CreateTaskEvent(event.TaskCreated, "tsk_1", "human:alice", nil, event.Options{})
	require.NoError(t, err)
	require.Nil(t, e.AgentMeta)
	require.Nil(t, e.Provenance)
	require.Nil(t, e.OTel)
}

func TestCreateTaskEventKeepsPopulatedOptionalStructs(t *testing.T) {
	e, err := event.CreateTaskEvent(event.TaskCreated, "tsk_1", "agent:bot", nil, event.Options{
		AgentMeta: &event.AgentMeta{Model: "claude"},
	})
	require.NoError(t, err)
	require.NotNil(t, e.AgentMeta)
	require.Equal(t, "claude", e.AgentMeta.Model)
}
