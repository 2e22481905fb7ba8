// Package event defines Lattice's immutable event record: shape, canonical
// serialization, and the closed set of built-in event types.
package event

import (
	"strings"
	"time"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
)

// Type is one of the closed built-in event types, or a custom "x_*" type.
type Type string

// Built-in task event types (closed set).
const (
	TaskCreated         Type = "task_created"
	TaskArchived        Type = "task_archived"
	TaskUnarchived      Type = "task_unarchived"
	StatusChanged       Type = "status_changed"
	AssignmentChanged   Type = "assignment_changed"
	FieldUpdated        Type = "field_updated"
	CommentAdded        Type = "comment_added"
	RelationshipAdded   Type = "relationship_added"
	RelationshipRemoved Type = "relationship_removed"
	ArtifactAttached    Type = "artifact_attached"
	BranchLinked        Type = "branch_linked"
	BranchUnlinked      Type = "branch_unlinked"
	TaskShortIDAssigned Type = "task_short_id_assigned"
	GitEvent            Type = "git_event"
)

// Resource event types (closed set).
const (
	ResourceCreated   Type = "resource_created"
	ResourceAcquired  Type = "resource_acquired"
	ResourceReleased  Type = "resource_released"
	ResourceHeartbeat Type = "resource_heartbeat"
	ResourceExpired   Type = "resource_expired"
	ResourceUpdated   Type = "resource_updated"
)

// CustomPrefix is the required prefix for caller-defined event types.
const CustomPrefix = "x_"

var builtinTaskTypes = map[Type]bool{
	TaskCreated: true, TaskArchived: true, TaskUnarchived: true,
	StatusChanged: true, AssignmentChanged: true, FieldUpdated: true,
	CommentAdded: true, RelationshipAdded: true, RelationshipRemoved: true,
	ArtifactAttached: true, BranchLinked: true, BranchUnlinked: true,
	TaskShortIDAssigned: true, GitEvent: true,
}

var builtinResourceTypes = map[Type]bool{
	ResourceCreated: true, ResourceAcquired: true, ResourceReleased: true,
	ResourceHeartbeat: true, ResourceExpired: true, ResourceUpdated: true,
}

// LifecycleTypes duplicate into the aggregate lifecycle index.
var LifecycleTypes = map[Type]bool{
	TaskCreated: true, TaskArchived: true, TaskUnarchived: true,
}

// IsBuiltinTask reports whether t is one of the closed task event types.
func IsBuiltinTask(t Type) bool { return builtinTaskTypes[t] }

// IsBuiltinResource reports whether t is one of the closed resource event types.
func IsBuiltinResource(t Type) bool { return builtinResourceTypes[t] }

// IsLifecycle reports whether t belongs in the lifecycle index.
func IsLifecycle(t Type) bool { return LifecycleTypes[t] }

// ValidateCustomType fails unless t begins with "x_" and does not collide
// with any built-in task or resource type.
func ValidateCustomType(t Type) error {
	if !strings.HasPrefix(string(t), CustomPrefix) {
		return errs.New(errs.ValidationError, "custom event type %q must start with %q", t, CustomPrefix)
	}
	if builtinTaskTypes[t] || builtinResourceTypes[t] {
		return errs.New(errs.ValidationError, "custom event type %q collides with a built-in type", t)
	}
	return nil
}

// ValidateType fails unless t is a built-in task/resource type or a valid
// custom type.
func ValidateType(t Type) error {
	if builtinTaskTypes[t] || builtinResourceTypes[t] {
		return nil
	}
	return ValidateCustomType(t)
}

// AgentMeta records which model/session produced an event, when known.
type AgentMeta struct {
	Model   string `json:"model,omitempty"`
	Session string `json:"session,omitempty"`
}

func (m *AgentMeta) isEmpty() bool {
	return m == nil || (m.Model == "" && m.Session == "")
}

// Provenance records why an event happened and on whose behalf.
type Provenance struct {
	TriggeredBy string `json:"triggered_by,omitempty"`
	OnBehalfOf  string `json:"on_behalf_of,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (p *Provenance) isEmpty() bool {
	return p == nil || (p.TriggeredBy == "" && p.OnBehalfOf == "" && p.Reason == "")
}

// OTel carries distributed tracing identifiers for an event.
type OTel struct {
	TraceID      string `json:"trace_id,omitempty"`
	SpanID       string `json:"span_id,omitempty"`
	ParentSpanID string `json:"parent_span_id,omitempty"`
}

func (o *OTel) isEmpty() bool {
	return o == nil || (o.TraceID == "" && o.SpanID == "" && o.ParentSpanID == "")
}

// Event is the authoritative, immutable event record.
type Event struct {
	SchemaVersion int            `json:"schema_version"`
	ID            string         `json:"id"`
	TS            string         `json:"ts"`
	Type          Type           `json:"type"`
	Actor         string         `json:"actor"`
	Data          map[string]any `json:"data"`

	TaskID     string `json:"task_id,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`

	AgentMeta  *AgentMeta  `json:"agent_meta,omitempty"`
	Provenance *Provenance `json:"provenance,omitempty"`
	OTel       *OTel       `json:"otel,omitempty"`

	RunID   string         `json:"run_id,omitempty"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// SchemaVersion is the current on-disk event schema version.
const SchemaVersion = 1

// Options configures CreateTaskEvent's and CreateResourceEvent's optional fields.
type Options struct {
	ID         string
	TS         time.Time
	AgentMeta  *AgentMeta
	Provenance *Provenance
	OTel       *OTel
	RunID      string
	Metrics    map[string]any
}

// CreateTaskEvent constructs a task-scoped event record. When opts.ID is
// empty, an event ID is minted via internal/ids. When opts.TS is zero, the
// current UTC time is used. Optional struct fields are omitted (not null)
// when all of their sub-parts are empty.
func CreateTaskEvent(t Type, taskID, actor string, data map[string]any, opts Options) (*Event, error) {
	if err := ValidateType(t); err != nil {
		return nil, err
	}
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	e := build(t, actor, data, opts)
	e.TaskID = taskID
	return e, nil
}

// CreateResourceEvent constructs a resource-scoped event record.
func CreateResourceEvent(t Type, resourceID, actor string, data map[string]any, opts Options) (*Event, error) {
	if err := ValidateType(t); err != nil {
		return nil, err
	}
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	e := build(t, actor, data, opts)
	e.ResourceID = resourceID
	return e, nil
}

func build(t Type, actor string, data map[string]any, opts Options) *Event {
	id := opts.ID
	if id == "" {
		id = ids.New(ids.PrefixEvent)
	}
	ts := opts.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if data == nil {
		data = map[string]any{}
	}

	e := &Event{
		SchemaVersion: SchemaVersion,
		ID:            id,
		TS:            ts.UTC().Format(time.RFC3339),
		Type:          t,
		Actor:         actor,
		Data:          data,
		RunID:         opts.RunID,
		Metrics:       opts.Metrics,
	}
	if !opts.AgentMeta.isEmpty() {
		e.AgentMeta = opts.AgentMeta
	}
	if !opts.Provenance.isEmpty() {
		e.Provenance = opts.Provenance
	}
	if !opts.OTel.isEmpty() {
		e.OTel = opts.OTel
	}
	return e
}
