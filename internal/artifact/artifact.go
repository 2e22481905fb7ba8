// Package artifact implements Lattice's artifact metadata records:
// conversations, prompts, files, logs, and references attached to tasks
// via artifact_attached events. Artifacts are created independently of any
// task and are never moved during archive.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
)

// Type enumerates the closed set of artifact kinds.
type Type string

const (
	TypeConversation Type = "conversation"
	TypePrompt       Type = "prompt"
	TypeFile         Type = "file"
	TypeLog          Type = "log"
	TypeReference    Type = "reference"
)

var validTypes = map[Type]bool{
	TypeConversation: true, TypePrompt: true, TypeFile: true, TypeLog: true, TypeReference: true,
}

// IsValidType reports whether t is one of the closed set of artifact kinds.
func IsValidType(t Type) bool { return validTypes[t] }

// Payload describes where the artifact's content lives, if it has a file
// body distinct from its metadata record.
type Payload struct {
	File        string `json:"file,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// TokenUsage records LLM token accounting for conversation/prompt artifacts.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens,omitempty"`
	CompletionTokens int64 `json:"completion_tokens,omitempty"`
	TotalTokens      int64 `json:"total_tokens,omitempty"`
}

// Metadata is the on-disk shape of artifacts/meta/<art_id>.json.
type Metadata struct {
	SchemaVersion int            `json:"schema_version"`
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	Title         string         `json:"title"`
	Summary       string         `json:"summary,omitempty"`
	CreatedAt     string         `json:"created_at"`
	CreatedBy     string         `json:"created_by"`
	Model         string         `json:"model,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Payload       *Payload       `json:"payload,omitempty"`
	TokenUsage    *TokenUsage    `json:"token_usage,omitempty"`
	Sensitive     bool           `json:"sensitive,omitempty"`
	CustomFields  map[string]any `json:"custom_fields,omitempty"`
}

// SchemaVersion is the current on-disk artifact metadata schema version.
const SchemaVersion = 1

// New builds a Metadata record, always minting a fresh ID and
// validating the artifact type against the closed set.
func New(artType Type, title, createdBy string, payload *Payload) (*Metadata, error) {
	if !IsValidType(artType) {
		return nil, errs.New(errs.ValidationError, "artifact type %q is not one of the recognized kinds", artType)
	}
	if title == "" {
		return nil, errs.New(errs.ValidationError, "artifact title must not be empty")
	}
	if err := ids.ValidateActor(createdBy); err != nil {
		return nil, err
	}
	return &Metadata{
		SchemaVersion: SchemaVersion,
		ID:            ids.New(ids.PrefixArtifact),
		Type:          artType,
		Title:         title,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		CreatedBy:     createdBy,
		Payload:       payload,
	}, nil
}

// Describe returns a one-line human summary of the artifact: its type,
// title, and payload size when one is recorded.
func (m *Metadata) Describe() string {
	if m.Payload != nil && m.Payload.SizeBytes > 0 {
		return fmt.Sprintf("%s %q (%s)", m.Type, m.Title, humanize.IBytes(uint64(m.Payload.SizeBytes)))
	}
	return fmt.Sprintf("%s %q", m.Type, m.Title)
}

func metaPath(root, artID string) string {
	return filepath.Join(root, ".lattice", "artifacts", "meta", artID+".json")
}

// PayloadPath returns the on-disk path for an artifact's payload body,
// given the file extension recorded in its metadata.
func PayloadPath(root, artID, ext string) string {
	return filepath.Join(root, ".lattice", "artifacts", "payload", artID+ext)
}

// Save atomically writes m's metadata in canonical JSON form.
func Save(root string, m *Metadata) error {
	if err := ids.Validate(m.ID, ids.PrefixArtifact); err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return errs.Wrap(errs.IOError, err, "marshal artifact %s", m.ID)
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return errs.Wrap(errs.IOError, err, "canonicalize artifact %s", m.ID)
	}
	data, err := json.MarshalIndent(asMap, "", "  ")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "indent artifact %s", m.ID)
	}
	data = append(data, '\n')
	path := metaPath(root, m.ID)
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return fsutil.AtomicWrite(path, data)
}

// Load reads an artifact's metadata record by ID.
func Load(root, artID string) (*Metadata, error) {
	data, err := os.ReadFile(metaPath(root, artID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.NotFound, "artifact %s not found", artID)
		}
		return nil, errs.Wrap(errs.IOError, err, "read artifact %s", artID)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.Corrupt, err, "parse artifact %s", artID)
	}
	return &m, nil
}
