// Package snapshot implements the pure task-snapshot reducer, the
// materialized Task shape, and its embedded record types.
package snapshot

// Relationship is one outgoing edge from a task. Canonical storage is
// outgoing only; reverse views are derived at read time.
type Relationship struct {
	Type         string `json:"type"`
	TargetTaskID string `json:"target_task_id"`
	CreatedAt    string `json:"created_at"`
	CreatedBy    string `json:"created_by"`
	Note         string `json:"note,omitempty"`
}

// Valid relationship types.
const (
	RelBlocks     = "blocks"
	RelDependsOn  = "depends_on"
	RelSubtaskOf  = "subtask_of"
	RelRelatedTo  = "related_to"
	RelSpawnedBy  = "spawned_by"
	RelDuplicate  = "duplicate_of"
	RelSupersedes = "supersedes"
)

var validRelationshipTypes = map[string]bool{
	RelBlocks: true, RelDependsOn: true, RelSubtaskOf: true, RelRelatedTo: true,
	RelSpawnedBy: true, RelDuplicate: true, RelSupersedes: true,
}

// IsValidRelationshipType reports whether t is one of the closed
// relationship types.
func IsValidRelationshipType(t string) bool { return validRelationshipTypes[t] }

// BranchLink records a linked git branch.
type BranchLink struct {
	Branch   string `json:"branch"`
	Repo     string `json:"repo,omitempty"`
	LinkedAt string `json:"linked_at"`
	LinkedBy string `json:"linked_by"`
}

// Priority values.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Task is the materialized snapshot of one task's current state.
type Task struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	LastEventID   string `json:"last_event_id"`

	ShortID             string         `json:"short_id,omitempty"`
	Description         string         `json:"description,omitempty"`
	Priority            string         `json:"priority,omitempty"`
	Urgency             string         `json:"urgency,omitempty"`
	Type                string         `json:"type,omitempty"`
	Complexity          string         `json:"complexity,omitempty"`
	Tags                []string       `json:"tags,omitempty"`
	AssignedTo          string         `json:"assigned_to,omitempty"`
	CreatedBy           string         `json:"created_by,omitempty"`
	RelationshipsOut    []Relationship `json:"relationships_out,omitempty"`
	ArtifactRefs        []string       `json:"artifact_refs,omitempty"`
	BranchLinks         []BranchLink   `json:"branch_links,omitempty"`
	DoneAt              string         `json:"done_at,omitempty"`
	LastStatusChangedAt string         `json:"last_status_changed_at,omitempty"`
	CustomFields        map[string]any `json:"custom_fields,omitempty"`
}

// SchemaVersion is the current on-disk snapshot schema version.
const SchemaVersion = 1

// ProtectedFields may not be changed by field_updated events.
var ProtectedFields = map[string]bool{
	"id": true, "short_id": true, "schema_version": true,
	"created_at": true, "last_event_id": true,
}

// Clone returns a deep copy of t, safe to mutate independently.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.ArtifactRefs = append([]string(nil), t.ArtifactRefs...)
	c.RelationshipsOut = append([]Relationship(nil), t.RelationshipsOut...)
	c.BranchLinks = append([]BranchLink(nil), t.BranchLinks...)
	if t.CustomFields != nil {
		c.CustomFields = make(map[string]any, len(t.CustomFields))
		for k, v := range t.CustomFields {
			c.CustomFields[k] = v
		}
	}
	return &c
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
