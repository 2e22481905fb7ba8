package main

import (
	"github.com/spf13/cobra"
)

func newCommentCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "comment <task-id> <body>",
		Short: "add a comment to a task",
		Args:  cobra.ExactArgs(2),
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
			task, err := e.AddComment(taskID, a, args[1], role)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role this comment satisfies for a completion policy's require_roles")
	return cmd
}
