package event

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// Serialize renders e as canonical JSON: sorted keys, no inner whitespace,
// terminated by a single trailing newline. Canonical form is what makes
// replaying a log reproduce snapshots byte-identically.
func Serialize(e *Event) ([]byte, error) {
	// Round-trip through a generic map so key ordering is fully under our
	// control regardless of struct field declaration order. Only Event's
	// own fields are serialized; unknown fields of a record read from disk
	// are not kept.
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "marshal event %s", e.ID)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "unmarshal event %s for canonicalization", e.ID)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, m); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "canonicalize event %s", e.ID)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse decodes one canonical JSONL line into an Event. Unknown top-level
// fields are tolerated for forward compatibility.
func Parse(line []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return nil, errs.Wrap(errs.Corrupt, err, "parse event line")
	}
	return &e, nil
}

// writeCanonical writes v as JSON with map keys sorted alphabetically and no
// extraneous whitespace, recursing into nested maps/slices.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		// json.Encoder.Encode always appends a trailing newline; trim it so
		// callers compose a single line themselves.
		var tmp bytes.Buffer
		tmpEnc := json.NewEncoder(&tmp)
		tmpEnc.SetEscapeHTML(false)
		if err := tmpEnc.Encode(val); err != nil {
			return err
		}
		buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
		return nil
	}
}
