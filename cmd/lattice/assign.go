package main

import (
	"github.com/spf13/cobra"
)

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> [assignee]",
		Short: "reassign a task (omit assignee to unassign)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := requireActor()
			if err != nil {
				return err
			}
			e, err := openEngine()
			if err != nil {
				return err
			}
			assignee := ""
			if len(args) == 2 {
				assignee = args[1]
			}
			taskID, err := e.ResolveTaskID(args[0])
			if err != nil {
				return err
			}
			task, err := e.SetAssignment(taskID, a, assignee)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
}
