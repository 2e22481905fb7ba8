package resource

import (
	"encoding/json"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// marshalSnapshot renders s as canonical JSON (sorted keys, 2-space
// indent, trailing newline), matching internal/snapshot.Serialize's
// contract for tasks.
func marshalSnapshot(s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "marshal resource %s", s.ID)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "canonicalize resource %s", s.ID)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "indent resource %s", s.ID)
	}
	return append(data, '\n'), nil
}

func unmarshalSnapshot(data []byte, s *Snapshot) error {
	return json.Unmarshal(data, s)
}
