// Package doctor implements Lattice's integrity checker: a set of
// independent findings over the on-disk store, each with a severity,
// stable code, human detail, and an optional safe fix. One check per
// store invariant — parseability, snapshot drift, dangling references,
// duplicate edges, lifecycle and short-ID index consistency, truncated
// log tails.
package doctor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/index"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/logging"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/snapshot"
)

// Status is a finding's severity.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Code identifies the kind of finding, stable across releases.
type Code string

const (
	CodeParseError       Code = "PARSE_ERROR"
	CodeTruncatedTail    Code = "TRUNCATED_TAIL"
	CodeDrift            Code = "DRIFT"
	CodeDanglingRelation Code = "DANGLING_RELATIONSHIP"
	CodeSelfLink         Code = "SELF_LINK"
	CodeDuplicateEdge    Code = "DUPLICATE_EDGE"
	CodeMalformedID      Code = "MALFORMED_ID"
	CodeLifecycleMissing Code = "LIFECYCLE_MISSING"
	CodeLifecycleOrphan  Code = "LIFECYCLE_ORPHAN"
	CodeShortIDOrphan    Code = "SHORT_ID_ORPHAN"
	CodeShortIDSeqTooLow Code = "SHORT_ID_SEQ_TOO_LOW"
)

// Finding is one diagnostic result.
type Finding struct {
	Status  Status `json:"status"`
	Code    Code   `json:"code"`
	TaskID  string `json:"task_id,omitempty"`
	Detail  string `json:"detail"`
	Fixable bool   `json:"fixable"`
}

// Report is the full output of a Run.
type Report struct {
	Findings []Finding
}

// Clean reports whether every finding is StatusOK.
func (r Report) Clean() bool {
	for _, f := range r.Findings {
		if f.Status != StatusOK {
			return false
		}
	}
	return true
}

func eventsDir(root string) string        { return filepath.Join(root, ".lattice", "events") }
func archiveEventsDir(root string) string { return filepath.Join(root, ".lattice", "archive", "events") }
func tasksDir(root string) string         { return filepath.Join(root, ".lattice", "tasks") }
func archiveTasksDir(root string) string  { return filepath.Join(root, ".lattice", "archive", "tasks") }

// Run executes every check category over root and returns the aggregate
// report. It never mutates the store; Fix runs its own check and applies
// the safe repairs.
func Run(root string) (Report, error) {
	var findings []Finding

	taskLogs, err := collectTaskLogs(root)
	if err != nil {
		return Report{}, err
	}

	snapshots := map[string]*snapshot.Task{}
	existingTasks := map[string]bool{}

	for taskID, tl := range taskLogs {
		existingTasks[taskID] = true

		lines, truncated, parseErr := readLinesReportingTruncation(tl.path)
		if parseErr != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeParseError, TaskID: taskID, Detail: parseErr.Error()})
			continue
		}
		if truncated {
			findings = append(findings, Finding{Status: StatusWarning, Code: CodeTruncatedTail, TaskID: taskID,
				Detail: "trailing line lacks a terminating newline", Fixable: true})
		}

		if err := ids.Validate(taskID, ids.PrefixTask); err != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeMalformedID, TaskID: taskID, Detail: err.Error()})
		}

		var lastID string
		var snap *snapshot.Task
		for _, line := range lines {
			e, perr := event.Parse(line)
			if perr != nil {
				findings = append(findings, Finding{Status: StatusError, Code: CodeParseError, TaskID: taskID, Detail: perr.Error()})
				continue
			}
			if err := ids.Validate(e.ID, ids.PrefixEvent); err != nil {
				findings = append(findings, Finding{Status: StatusError, Code: CodeMalformedID, TaskID: taskID, Detail: err.Error()})
			}
			lastID = e.ID
			snap, _ = snapshot.Apply(snap, e)
		}
		snapshots[taskID] = snap

		diskSnap, ok, perr := readSnapshot(root, taskID, tl.archived)
		if perr != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeParseError, TaskID: taskID, Detail: perr.Error()})
		} else if ok && diskSnap.LastEventID != lastID {
			findings = append(findings, Finding{Status: StatusError, Code: CodeDrift, TaskID: taskID,
				Detail: "snapshot last_event_id does not match the last event in the log", Fixable: true})
		}
	}

	findings = append(findings, checkRelationships(snapshots, existingTasks)...)

	lifecycleFindings, err := checkLifecycle(root, taskLogs)
	if err != nil {
		return Report{}, err
	}
	findings = append(findings, lifecycleFindings...)

	shortIDFindings, err := checkShortIDIndex(root, taskLogs)
	if err != nil {
		return Report{}, err
	}
	findings = append(findings, shortIDFindings...)

	findings = append(findings, checkArtifacts(root)...)

	if _, err := config.Load(root); err != nil {
		findings = append(findings, Finding{Status: StatusError, Code: CodeParseError, Detail: "config.json: " + err.Error()})
	}

	if len(findings) == 0 {
		findings = append(findings, Finding{Status: StatusOK, Detail: "no issues found"})
	}

	logging.L().Debug().
		Str("tasks_scanned", humanize.Comma(int64(len(taskLogs)))).
		Int("findings", len(findings)).
		Msg("doctor run complete")

	return Report{Findings: findings}, nil
}

type taskLog struct {
	path     string
	archived bool
}

func collectTaskLogs(root string) (map[string]taskLog, error) {
	out := map[string]taskLog{}
	for _, dir := range []struct {
		path     string
		archived bool
	}{{eventsDir(root), false}, {archiveEventsDir(root), true}} {
		entries, err := os.ReadDir(dir.path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, ent := range entries {
			if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".jsonl") {
				continue
			}
			name := strings.TrimSuffix(ent.Name(), ".jsonl")
			// resource logs (res_*) share events/ but are not task state.
			if name == "_lifecycle" || strings.HasPrefix(name, "res_") {
				continue
			}
			out[name] = taskLog{path: filepath.Join(dir.path, ent.Name()), archived: dir.archived}
		}
	}
	return out, nil
}

// readLinesReportingTruncation is like fsutil.ReadLines but also reports
// whether the file's final line was dropped as an incomplete trailing
// record, so callers can surface it as a TRUNCATED_TAIL finding.
func readLinesReportingTruncation(path string) (lines [][]byte, truncated bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	raw := strings.Split(string(data), "\n")
	if raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	} else {
		truncated = true
		raw = raw[:len(raw)-1]
	}
	for _, l := range raw {
		lines = append(lines, []byte(l))
	}
	return lines, truncated, nil
}

func readSnapshot(root, taskID string, archived bool) (*snapshot.Task, bool, error) {
	dir := tasksDir(root)
	if archived {
		dir = archiveTasksDir(root)
	}
	data, err := os.ReadFile(filepath.Join(dir, taskID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var t snapshot.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

func checkRelationships(snapshots map[string]*snapshot.Task, existingTasks map[string]bool) []Finding {
	var findings []Finding
	for taskID, snap := range snapshots {
		if snap == nil {
			continue
		}
		seen := map[string]bool{}
		for _, rel := range snap.RelationshipsOut {
			if rel.TargetTaskID == taskID {
				findings = append(findings, Finding{Status: StatusError, Code: CodeSelfLink, TaskID: taskID,
					Detail: "relationship " + rel.Type + " targets itself"})
			}
			key := rel.Type + "->" + rel.TargetTaskID
			if seen[key] {
				findings = append(findings, Finding{Status: StatusError, Code: CodeDuplicateEdge, TaskID: taskID,
					Detail: "duplicate " + rel.Type + " edge to " + rel.TargetTaskID})
			}
			seen[key] = true
			if !existingTasks[rel.TargetTaskID] {
				findings = append(findings, Finding{Status: StatusError, Code: CodeDanglingRelation, TaskID: taskID,
					Detail: "relationship " + rel.Type + " targets nonexistent task " + rel.TargetTaskID})
			}
		}
	}
	return findings
}

func checkLifecycle(root string, taskLogs map[string]taskLog) ([]Finding, error) {
	var findings []Finding

	perTaskLifecycle := map[string]bool{}
	for _, tl := range taskLogs {
		lines, _, err := readLinesReportingTruncation(tl.path)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			e, err := event.Parse(line)
			if err != nil {
				continue
			}
			if event.IsLifecycle(e.Type) {
				perTaskLifecycle[e.ID] = true
			}
		}
	}

	lifecyclePath := filepath.Join(eventsDir(root), "_lifecycle.jsonl")
	lines, err := fsutil.ReadLines(lifecyclePath)
	if err != nil {
		return nil, err
	}
	inIndex := map[string]bool{}
	for _, line := range lines {
		e, err := event.Parse(line)
		if err != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeParseError, Detail: "_lifecycle.jsonl: " + err.Error()})
			continue
		}
		inIndex[e.ID] = true
		if !perTaskLifecycle[e.ID] {
			findings = append(findings, Finding{Status: StatusError, Code: CodeLifecycleOrphan,
				Detail: "lifecycle event " + e.ID + " has no matching per-task event", Fixable: true})
		}
	}
	for id := range perTaskLifecycle {
		if !inIndex[id] {
			findings = append(findings, Finding{Status: StatusError, Code: CodeLifecycleMissing,
				Detail: "lifecycle event " + id + " is missing from _lifecycle.jsonl", Fixable: true})
		}
	}
	return findings, nil
}

// checkArtifacts verifies every artifact metadata record parses as JSON
// and is filed under a well-formed artifact ID. No fix is offered: a
// corrupt metadata record is not derivable from events and needs a human
// decision.
func checkArtifacts(root string) []Finding {
	dir := filepath.Join(root, ".lattice", "artifacts", "meta")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []Finding{{Status: StatusError, Code: CodeParseError, Detail: "artifacts/meta: " + err.Error()}}
	}
	var findings []Finding
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		artID := strings.TrimSuffix(ent.Name(), ".json")
		if err := ids.Validate(artID, ids.PrefixArtifact); err != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeMalformedID,
				Detail: "artifacts/meta/" + ent.Name() + ": " + err.Error()})
		}
		data, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeParseError,
				Detail: "artifacts/meta/" + ent.Name() + ": " + err.Error()})
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			findings = append(findings, Finding{Status: StatusError, Code: CodeParseError,
				Detail: "artifacts/meta/" + ent.Name() + ": " + err.Error()})
		}
	}
	return findings
}

func checkShortIDIndex(root string, taskLogs map[string]taskLog) ([]Finding, error) {
	var findings []Finding

	assigned := map[string]bool{}
	maxSeq := map[string]int64{}
	for _, tl := range taskLogs {
		lines, _, err := readLinesReportingTruncation(tl.path)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			e, err := event.Parse(line)
			if err != nil {
				continue
			}
			if e.Type != event.TaskCreated && e.Type != event.TaskShortIDAssigned {
				continue
			}
			shortID, _ := e.Data["short_id"].(string)
			if shortID == "" {
				continue
			}
			assigned[shortID] = true
			if proj, sub, seq, perr := ids.ParseShortID(shortID); perr == nil {
				key := proj
				if sub != "" {
					key = proj + "-" + sub
				}
				if int64(seq) > maxSeq[key] {
					maxSeq[key] = int64(seq)
				}
			}
		}
	}

	idx, err := index.Load(root)
	if err != nil {
		return nil, err
	}
	for _, e := range idx.Entries {
		if !assigned[e.ShortID] {
			findings = append(findings, Finding{Status: StatusError, Code: CodeShortIDOrphan,
				Detail: "ids.json maps " + e.ShortID + " with no corresponding assignment event", Fixable: true})
		}
	}
	for key, max := range maxSeq {
		if idx.NextSeq[key] <= max {
			findings = append(findings, Finding{Status: StatusError, Code: CodeShortIDSeqTooLow,
				Detail: "next_seq for " + key + " does not exceed the highest assigned sequence", Fixable: true})
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Detail < findings[j].Detail })
	return findings, nil
}
