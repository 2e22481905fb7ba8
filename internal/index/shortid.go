// Package index manages ids.json, the derived short-ID index. It is the
// only piece of truly shared monotone state in the store: the next_seq
// counter per project/subproject code, protected by the "ids" lock and
// always rebuildable from task_created/task_short_id_assigned events.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
)

// FileName is the index file name under .lattice/.
const FileName = "ids.json"

// Entry is one short-ID -> task-ID mapping.
type Entry struct {
	ShortID string `json:"short_id"`
	TaskID  string `json:"task_id"`
}

// Index is the parsed shape of ids.json: the full short-ID -> task-ID
// mapping plus the next sequence number to mint per project/subproject
// code pair.
type Index struct {
	SchemaVersion int              `json:"schema_version"`
	Entries       []Entry          `json:"entries"`
	NextSeq       map[string]int64 `json:"next_seq"`
}

// SchemaVersion is the current on-disk index schema version.
const SchemaVersion = 1

// Path returns the on-disk path of ids.json under root.
func Path(root string) string {
	return filepath.Join(root, ".lattice", FileName)
}

// Load reads ids.json under root, returning an empty index if it does not
// exist yet (a fresh .lattice/ has minted no short-IDs).
func Load(root string) (*Index, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{SchemaVersion: SchemaVersion, NextSeq: map[string]int64{}}, nil
		}
		return nil, errs.Wrap(errs.IOError, err, "read ids.json")
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errs.Wrap(errs.Corrupt, err, "parse ids.json")
	}
	if idx.NextSeq == nil {
		idx.NextSeq = map[string]int64{}
	}
	return &idx, nil
}

// Save atomically writes idx to ids.json in canonical form.
func Save(root string, idx *Index) error {
	raw, err := json.Marshal(idx)
	if err != nil {
		return errs.Wrap(errs.IOError, err, "marshal ids.json")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errs.Wrap(errs.IOError, err, "canonicalize ids.json")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "indent ids.json")
	}
	data = append(data, '\n')
	if err := fsutil.EnsureDir(filepath.Dir(Path(root))); err != nil {
		return err
	}
	return fsutil.AtomicWrite(Path(root), data)
}

// seqKey groups next_seq counters by project[-subproject] code, matching
// the namespace a short-ID's prefix is drawn from.
func seqKey(projectCode, subprojectCode string) string {
	if subprojectCode == "" {
		return projectCode
	}
	return projectCode + "-" + subprojectCode
}

// NextSeqFor returns the next sequence number to assign for a project/
// subproject pair without mutating idx.
func (idx *Index) NextSeqFor(projectCode, subprojectCode string) int64 {
	n, ok := idx.NextSeq[seqKey(projectCode, subprojectCode)]
	if !ok || n < 1 {
		return 1
	}
	return n
}

// Assign records a new short-ID -> task-ID mapping and advances next_seq
// past seq. Callers must hold the "ids" lock. Returns a ValidationError if
// shortID is already mapped to a different task.
func (idx *Index) Assign(projectCode, subprojectCode, shortID, taskID string) error {
	for _, e := range idx.Entries {
		if e.ShortID == shortID {
			if e.TaskID == taskID {
				return nil
			}
			return errs.New(errs.ValidationError, "short_id %s already assigned to %s", shortID, e.TaskID)
		}
	}
	idx.Entries = append(idx.Entries, Entry{ShortID: shortID, TaskID: taskID})
	sort.Slice(idx.Entries, func(i, j int) bool { return idx.Entries[i].ShortID < idx.Entries[j].ShortID })

	key := seqKey(projectCode, subprojectCode)
	if idx.NextSeq == nil {
		idx.NextSeq = map[string]int64{}
	}
	current := idx.NextSeq[key]
	if current < 1 {
		current = 1
	}
	var seq int64
	if _, _, s, err := ids.ParseShortID(shortID); err == nil {
		seq = int64(s)
	}
	if seq+1 > current {
		idx.NextSeq[key] = seq + 1
	}
	return nil
}

// TaskFor returns the task ID a short-ID is mapped to, if any.
func (idx *Index) TaskFor(shortID string) (string, bool) {
	for _, e := range idx.Entries {
		if e.ShortID == shortID {
			return e.TaskID, true
		}
	}
	return "", false
}
