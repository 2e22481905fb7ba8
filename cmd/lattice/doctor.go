package main

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/doctor"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
)

// newDoctorCmd runs Lattice's integrity checker. --fix applies
// every known-safe repair; --watch keeps re-running on every filesystem
// change under .lattice/, for an agent or shell kept open beside a running
// session.
func newDoctorCmd() *cobra.Command {
	var fix, watch bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "check (and optionally repair) the store's integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRoot()
			if err != nil {
				return err
			}
			if watch {
				return watchDoctor(root, fix)
			}
			return runDoctorOnce(root, fix)
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "apply known-safe repairs after reporting")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run on every change under .lattice/ until interrupted")
	return cmd
}

func runDoctorOnce(root string, fix bool) error {
	report, err := doctor.Run(root)
	if err != nil {
		return err
	}
	if err := printReport(report); err != nil {
		return err
	}
	if !fix {
		return nil
	}
	result, err := doctor.Fix(root)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(result)
	}
	fmt.Printf("fix: dropped %d truncated tail(s), rebuilt %d snapshot(s), lifecycle_regenerated=%v, short_id_index_rebuilt=%v\n",
		result.TruncatedTailsDropped, result.SnapshotsRebuilt, result.LifecycleRegenerated, result.ShortIDIndexRebuilt)
	for _, e := range result.Errors {
		fmt.Println(errorColor().Sprint("fix error:"), e)
	}
	return nil
}

// watchDoctor re-runs the integrity check whenever a file under .lattice/
// changes, using fsnotify the way a build tool watches source: one
// watcher over the tasks/, events/, archive/tasks/ and archive/events/
// directories (subdirectories are not watched), debounced by
// draining any events queued while the prior run was in flight.
func watchDoctor(root string, fix bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dirs := []string{
		filepath.Join(fsutil.LatticeDir(root), "tasks"),
		filepath.Join(fsutil.LatticeDir(root), "events"),
		filepath.Join(fsutil.LatticeDir(root), "archive", "tasks"),
		filepath.Join(fsutil.LatticeDir(root), "archive", "events"),
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return err
		}
	}

	return runWatchLoop(watcher, root, fix, nil)
}

// runWatchLoop drives one watcher's event channel until it is closed,
// re-running doctor on every change (debounced via drain) and, if onRun is
// non-nil, invoking it after each run — a hook tests use to observe runs
// without depending on wall-clock timing.
func runWatchLoop(watcher *fsnotify.Watcher, root string, fix bool, onRun func()) error {
	if err := runDoctorOnce(root, fix); err != nil {
		fmt.Println(errorColor().Sprint("error:"), err)
	}
	if onRun != nil {
		onRun()
	}

	for {
		select {
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			drain(watcher)
			if err := runDoctorOnce(root, fix); err != nil {
				fmt.Println(errorColor().Sprint("error:"), err)
			}
			if onRun != nil {
				onRun()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Println(errorColor().Sprint("watch error:"), err)
		}
	}
}

// drain empties any events already queued so a burst of writes (e.g. event
// append + snapshot rename) triggers one doctor run, not one per file.
func drain(watcher *fsnotify.Watcher) {
	for {
		select {
		case <-watcher.Events:
		default:
			return
		}
	}
}
