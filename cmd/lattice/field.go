package main

import (
	"github.com/spf13/cobra"
)

func newFieldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-field <task-id> <field> <value>",
		Short: "set one field on a task (supports custom_fields.<key>)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := requireActor()
			if err != nil {
				return err
			}
			e, err := openEngine()
			if err != nil {
				return err
			}
			taskID, err := e.ResolveTaskID(args[0])
			if err != nil {
				return err
			}
			task, err := e.UpdateField(taskID, a, args[1], args[2])
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
}
