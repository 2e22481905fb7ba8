package main

import (
	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "print a task's current snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			taskID, err := e.ResolveTaskID(args[0])
			if err != nil {
				return err
			}
			task, err := e.Store.ReadSnapshot(taskID)
			if err != nil {
				return err
			}
			if task == nil {
				return errs.New(errs.NotFound, "task %s not found", taskID)
			}
			return printTask(task)
		},
	}
}
