package main

import (
	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
)

func newStatusCmd() *cobra.Command {
	var opts engine.SetStatusOptions
	cmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "transition a task to a new status",
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
			task, err := e.SetStatus(taskID, a, args[1], opts)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "override the transition graph, completion policy, and review-cycle gates")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "required with --force: why the override is justified")
	return cmd
}
