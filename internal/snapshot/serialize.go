package snapshot

import (
	"bytes"
	"encoding/json"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// Serialize renders t as the canonical snapshot JSON form: UTF-8,
// alphabetically sorted keys, 2-space indent, trailing newline, no
// NaN/Infinity. Deterministic so git diffs of tasks/<id>.json are stable.
func Serialize(t *Task) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "marshal snapshot %s", t.ID)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "unmarshal snapshot %s for canonicalization", t.ID)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sortedMap(m)); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "encode snapshot %s", t.ID)
	}
	return buf.Bytes(), nil
}

// Parse decodes a snapshot JSON document, tolerating unknown fields.
func Parse(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errs.Wrap(errs.Corrupt, err, "parse snapshot")
	}
	return &t, nil
}

// sortedMap returns v unchanged; json.Encoder already sorts map[string]any
// keys alphabetically when encoding, so this exists only to make that
// reliance explicit at the call site for future readers.
func sortedMap(v map[string]any) map[string]any { return v }
