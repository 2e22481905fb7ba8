package rebuild

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
)

// AllResult summarizes one RebuildAll run.
type AllResult struct {
	Tasks     []Result
	Lifecycle error
	ShortIDs  error
}

// RebuildAll runs RebuildOne over every active and archived task log, then
// regenerates the lifecycle index and the short-ID index. One task's
// failure does not stop the rest: every task is attempted and reported
// individually.
func RebuildAll(root string, cfg *config.Config) AllResult {
	timeout := config.LockTimeout()
	var out AllResult

	for _, archived := range []bool{false, true} {
		dir := eventsDir(root)
		if archived {
			dir = archiveEventsDir(root)
		}
		taskIDs, err := listTaskIDs(dir)
		if err != nil {
			out.Tasks = append(out.Tasks, Result{Err: err})
			continue
		}
		for _, taskID := range taskIDs {
			res, err := RebuildOne(root, taskID, timeout, archived)
			if err != nil {
				res = Result{TaskID: taskID, Err: err}
			}
			out.Tasks = append(out.Tasks, res)
		}
	}

	out.Lifecycle = RegenerateLifecycle(root)
	out.ShortIDs = RegenerateShortIDIndex(root, cfg.ProjectCode, cfg.SubprojectCode)
	return out
}
