package config

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
)

// ValidateTransition does an exact lookup in the transition graph. Equal
// states are always accepted without consulting the graph.
func ValidateTransition(cfg *Config, from, to string) bool {
	if from == to {
		return true
	}
	for _, allowed := range cfg.Workflow.Transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TaskView is the event history the completion-policy and review-cycle
// gates need, as internal/event Events. It carries no internal/snapshot
// state, so this package does not depend on the snapshot reducer.
type TaskView struct {
	Events []*event.Event
}

// CheckCompletionPolicy enforces a target status's require_roles gate by
// scanning the task's event history for a comment_added or
// artifact_attached event carrying a matching role. Comments and artifacts
// satisfy a role equally; first match wins. Returns nil if satisfied or if
// the target status has no policy.
func CheckCompletionPolicy(cfg *Config, view *TaskView, targetStatus string) error {
	policy, ok := cfg.Workflow.CompletionPolicies[targetStatus]
	if !ok || len(policy.RequireRoles) == 0 {
		return nil
	}

	satisfied := make(map[string]bool, len(policy.RequireRoles))
	for _, e := range view.Events {
		if e.Type != event.CommentAdded && e.Type != event.ArtifactAttached {
			continue
		}
		role, _ := e.Data["role"].(string)
		if role == "" {
			continue
		}
		satisfied[role] = true
	}

	for _, role := range policy.RequireRoles {
		if !satisfied[role] {
			return errs.New(errs.CompletionBlocked,
				"missing role: %s. satisfy with: attach --role %s or comment --role %s. override with --force --reason", role, role, role)
		}
	}
	return nil
}

// CheckReviewCycleLimit counts transitions of review -> in_progress or
// review -> in_planning in the task's event history. If the count has
// already reached the configured limit, further rework transitions are
// blocked.
func CheckReviewCycleLimit(cfg *Config, view *TaskView, from, to string) error {
	if from != "review" || (to != "in_progress" && to != "in_planning") {
		return nil
	}
	policy, ok := cfg.Workflow.CompletionPolicies["done"]
	if !ok || policy.ReviewCycleLimit <= 0 {
		return nil
	}

	count := 0
	for _, e := range view.Events {
		if e.Type != event.StatusChanged {
			continue
		}
		evFrom, _ := e.Data["from"].(string)
		evTo, _ := e.Data["to"].(string)
		if evFrom == "review" && (evTo == "in_progress" || evTo == "in_planning") {
			count++
		}
	}
	if count >= policy.ReviewCycleLimit {
		return errs.New(errs.ReviewCycleExceeded,
			"review rework limit of %d reached; override with --force --reason", policy.ReviewCycleLimit)
	}
	return nil
}
