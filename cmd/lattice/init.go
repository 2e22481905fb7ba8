package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
)

func newInitCmd() *cobra.Command {
	var projectCode, subprojectCode string
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "create a new .lattice root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			for _, sub := range []string{"tasks", "events", filepath.Join("archive", "tasks"), filepath.Join("archive", "events")} {
				if err := fsutil.EnsureDir(filepath.Join(fsutil.LatticeDir(dir), sub)); err != nil {
					return err
				}
			}
			cfg := config.Default()
			cfg.ProjectCode = projectCode
			cfg.SubprojectCode = subprojectCode
			if err := config.Save(dir, cfg); err != nil {
				return err
			}
			if jsonOut {
				return printJSON(map[string]string{"root": dir})
			}
			fmt.Printf("initialized %s\n", fsutil.LatticeDir(dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&projectCode, "project-code", "", "project code used to mint short-IDs, e.g. LAT")
	cmd.Flags().StringVar(&subprojectCode, "subproject-code", "", "subproject code (requires --project-code)")
	return cmd
}
