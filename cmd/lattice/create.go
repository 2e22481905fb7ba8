package main

import (
	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
)

func newCreateCmd() *cobra.Command {
	var opts engine.CreateOptions
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "create a new task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := requireActor()
			if err != nil {
				return err
			}
			e, err := openEngine()
			if err != nil {
				return err
			}
			task, err := e.Create(args[0], a, opts)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "explicit task ID, for idempotent create-or-get")
	cmd.Flags().StringVar(&opts.Status, "status", "", "initial status (default: config default_status)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "task description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (default: config default_priority)")
	cmd.Flags().StringVar(&opts.Urgency, "urgency", "", "urgency")
	cmd.Flags().StringVar(&opts.Type, "type", "", "task type, e.g. bug, feature")
	cmd.Flags().StringVar(&opts.Complexity, "complexity", "", "complexity estimate")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.AssignedTo, "assign", "", "initial assignee")
	return cmd
}
