package engine

import "github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"

// normalizedPayloadFields are compared to decide whether a repeated
// task_created carries the "same" payload.
var normalizedPayloadFields = []string{
	"title", "type", "priority", "urgency", "status", "description", "assigned_to",
}

// sameCreatePayload compares a task_created event's data against the
// snapshot already on disk for that task ID, folded from its own original
// task_created event. Comparing against the folded snapshot rather than a
// second copy of the raw event keeps this check inside Store.Mutate's
// locked build callback without a second unlocked read of the event log.
func sameCreatePayload(current *snapshot.Task, data map[string]any) bool {
	for _, field := range normalizedPayloadFields {
		if !equalField(current, field, data[field]) {
			return false
		}
	}
	return sameTags(current.Tags, data["tags"])
}

func equalField(current *snapshot.Task, field string, newVal any) bool {
	var existing string
	switch field {
	case "title":
		existing = current.Title
	case "type":
		existing = current.Type
	case "priority":
		existing = current.Priority
	case "urgency":
		existing = current.Urgency
	case "status":
		existing = current.Status
	case "description":
		existing = current.Description
	case "assigned_to":
		existing = current.AssignedTo
	}
	newStr, ok := newVal.(string)
	if !ok {
		return newVal == nil && existing == ""
	}
	return existing == newStr
}

func sameTags(existing []string, newVal any) bool {
	newTags, ok := newVal.([]any)
	if !ok {
		return len(existing) == 0
	}
	if len(existing) != len(newTags) {
		return false
	}
	for i, v := range newTags {
		s, _ := v.(string)
		if s != existing[i] {
			return false
		}
	}
	return true
}
