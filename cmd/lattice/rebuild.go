package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/rebuild"
)

// newRebuildCmd replays every task's event log into a fresh snapshot and
// regenerates the lifecycle and short-ID indices, the recovery path for
// the crash window between event append and snapshot rename.
func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "replay event logs to regenerate snapshots and derived indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRoot()
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			timeout := config.LockTimeout()

			var results []rebuild.Result
			for _, archived := range []bool{false, true} {
				ids, err := listTaskIDs(root, archived)
				if err != nil {
					return err
				}
				for _, id := range ids {
					res, err := rebuild.RebuildOne(root, id, timeout, archived)
					if err != nil {
						res.Err = err
					}
					results = append(results, res)
				}
			}
			if err := rebuild.RegenerateLifecycle(root); err != nil {
				return err
			}
			if cfg.ProjectCode != "" {
				if err := rebuild.RegenerateShortIDIndex(root, cfg.ProjectCode, cfg.SubprojectCode); err != nil {
					return err
				}
			}

			if jsonOut {
				return printJSON(results)
			}
			for _, r := range results {
				switch {
				case r.Err != nil:
					fmt.Printf("%s: error: %v\n", r.TaskID, r.Err)
				case r.Changed:
					fmt.Printf("%s: rebuilt\n", r.TaskID)
				default:
					fmt.Printf("%s: unchanged\n", r.TaskID)
				}
			}
			return nil
		},
	}
}

func listTaskIDs(root string, archived bool) ([]string, error) {
	dir := filepath.Join(root, ".lattice", "events")
	if archived {
		dir = filepath.Join(root, ".lattice", "archive", "events")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".jsonl") {
			continue
		}
		name := strings.TrimSuffix(ent.Name(), ".jsonl")
		if name == "_lifecycle" || strings.HasPrefix(name, "res_") {
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}
