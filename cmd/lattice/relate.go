package main

import (
	"github.com/spf13/cobra"
)

func newRelateCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "relate <task-id> <rel-type> <target-task-id>",
		Short: "add an outgoing relationship edge",
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
			targetID, err := e.ResolveTaskID(args[2])
			if err != nil {
				return err
			}
			task, err := e.AddRelationship(taskID, a, args[1], targetID, note)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-text note attached to the edge")
	return cmd
}

func newUnrelateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unrelate <task-id> <rel-type> <target-task-id>",
		Short: "remove an outgoing relationship edge (succeeds if absent)",
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
			targetID, err := e.ResolveTaskID(args[2])
			if err != nil {
				return err
			}
			task, err := e.RemoveRelationship(taskID, a, args[1], targetID)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
}
