package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
)

func TestValidateTransitionAllowsEqualStatesAlways(t *testing.T) {
	cfg := config.Default()
	require.True(t, config.ValidateTransition(cfg, "done", "done"))
}

func TestValidateTransitionFollowsGraph(t *testing.T) {
	cfg := config.Default()
	require.True(t, config.ValidateTransition(cfg, "backlog", "in_planning"))
	require.False(t, config.ValidateTransition(cfg, "backlog", "done"))
}

func TestValidateTransitionReviewReworkPaths(t *testing.T) {
	cfg := config.Default()
	require.True(t, config.ValidateTransition(cfg, "review", "in_progress"))
	require.True(t, config.ValidateTransition(cfg, "review", "in_planning"))
	require.True(t, config.ValidateTransition(cfg, "review", "done"))
}

func statusChangedEvent(from, to string) *event.Event {
	return &event.Event{
		Type: event.StatusChanged,
		Data: map[string]any{"from": from, "to": to},
	}
}

func TestCheckCompletionPolicyNoPolicyIsNoop(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, config.CheckCompletionPolicy(cfg, &config.TaskView{}, "done"))
}

func TestCheckCompletionPolicyBlocksMissingRole(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {RequireRoles: []string{"reviewer"}},
	}
	view := &config.TaskView{}
	err := config.CheckCompletionPolicy(cfg, view, "done")
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.CompletionBlocked))
}

func TestCheckCompletionPolicySatisfiedByCommentRole(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {RequireRoles: []string{"reviewer"}},
	}
	view := &config.TaskView{Events: []*event.Event{
		{Type: event.CommentAdded, Data: map[string]any{"role": "reviewer"}},
	}}
	require.NoError(t, config.CheckCompletionPolicy(cfg, view, "done"))
}

func TestCheckCompletionPolicySatisfiedByArtifactRole(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {RequireRoles: []string{"qa"}},
	}
	view := &config.TaskView{Events: []*event.Event{
		{Type: event.ArtifactAttached, Data: map[string]any{"role": "qa"}},
	}}
	require.NoError(t, config.CheckCompletionPolicy(cfg, view, "done"))
}

func TestCheckReviewCycleLimitIgnoresNonReworkTransitions(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {ReviewCycleLimit: 1},
	}
	require.NoError(t, config.CheckReviewCycleLimit(cfg, &config.TaskView{}, "review", "done"))
	require.NoError(t, config.CheckReviewCycleLimit(cfg, &config.TaskView{}, "in_progress", "review"))
}

func TestCheckReviewCycleLimitNoPolicyIsNoop(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, config.CheckReviewCycleLimit(cfg, &config.TaskView{}, "review", "in_progress"))
}

// A task bounced from review back to in_progress enough times trips the
// configured review_cycle_limit and further rework is blocked until an
// explicit --force override.
func TestCheckReviewCycleLimitBlocksAtConfiguredLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {ReviewCycleLimit: 2},
	}
	view := &config.TaskView{Events: []*event.Event{
		statusChangedEvent("review", "in_progress"),
		statusChangedEvent("review", "in_planning"),
	}}

	err := config.CheckReviewCycleLimit(cfg, view, "review", "in_progress")
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ReviewCycleExceeded))
}

func TestCheckReviewCycleLimitAllowsBelowLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.CompletionPolicies = map[string]config.CompletionPolicy{
		"done": {ReviewCycleLimit: 2},
	}
	view := &config.TaskView{Events: []*event.Event{
		statusChangedEvent("review", "in_progress"),
	}}
	require.NoError(t, config.CheckReviewCycleLimit(cfg, view, "review", "in_planning"))
}
