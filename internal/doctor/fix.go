package doctor

import (
	"path/filepath"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/rebuild"
)

// FixResult reports the repairs Fix actually applied.
type FixResult struct {
	TruncatedTailsDropped int
	SnapshotsRebuilt      int
	LifecycleRegenerated  bool
	ShortIDIndexRebuilt   bool
	Errors                []error
}

// Fix runs the full check once, then applies every known-safe repair its
// findings imply: it drops truncated trailing lines, reruns rebuild on
// drifted tasks, and regenerates the lifecycle and short-ID indices. It
// returns the repairs applied without checking the store again; it
// never guesses at unsafe repairs (dangling relationships, self-links, and
// duplicate edges are reported but never auto-fixed, since resolving them
// requires a human or agent decision about which edge is wrong).
func Fix(root string) (FixResult, error) {
	var result FixResult

	report, err := Run(root)
	if err != nil {
		return result, err
	}

	taskLogs, err := collectTaskLogs(root)
	if err != nil {
		return result, err
	}

	needsRebuild := map[string]bool{}
	needsLifecycle := false
	needsShortIDIndex := false

	for _, f := range report.Findings {
		if !f.Fixable {
			continue
		}
		switch f.Code {
		case CodeTruncatedTail:
			if tl, ok := taskLogs[f.TaskID]; ok {
				if err := dropTruncatedTail(tl.path); err != nil {
					result.Errors = append(result.Errors, err)
					continue
				}
				result.TruncatedTailsDropped++
			}
			needsRebuild[f.TaskID] = true
		case CodeDrift:
			needsRebuild[f.TaskID] = true
		case CodeLifecycleMissing, CodeLifecycleOrphan:
			needsLifecycle = true
		case CodeShortIDOrphan, CodeShortIDSeqTooLow:
			needsShortIDIndex = true
		}
	}

	timeout := config.LockTimeout()
	for taskID := range needsRebuild {
		tl, ok := taskLogs[taskID]
		if !ok {
			continue
		}
		if _, err := rebuild.RebuildOne(root, taskID, timeout, tl.archived); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.SnapshotsRebuilt++
	}

	if needsLifecycle {
		if err := rebuild.RegenerateLifecycle(root); err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.LifecycleRegenerated = true
		}
	}

	if needsShortIDIndex {
		cfg, err := config.Load(root)
		if err != nil {
			result.Errors = append(result.Errors, err)
		} else if err := rebuild.RegenerateShortIDIndex(root, cfg.ProjectCode, cfg.SubprojectCode); err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.ShortIDIndexRebuilt = true
		}
	}

	return result, nil
}

// dropTruncatedTail removes an incomplete final line from a JSONL file by
// atomically rewriting the file with only its complete lines.
func dropTruncatedTail(path string) error {
	lines, _, err := readLinesReportingTruncation(path)
	if err != nil {
		return err
	}
	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return fsutil.AtomicWrite(path, buf)
}
