package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/artifact"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

func newAttachCmd() *cobra.Command {
	var opts engine.AttachArtifactOptions
	cmd := &cobra.Command{
		Use:   "attach <task-id> <type> <title>",
		Short: "attach an artifact to a task",
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
			t := artifact.Type(args[1])
			if !artifact.IsValidType(t) {
				return errs.New(errs.ValidationError, "artifact type %q is not recognized", args[1])
			}
			taskID, err := e.ResolveTaskID(args[0])
			if err != nil {
				return err
			}
			task, meta, err := e.AttachArtifact(taskID, a, t, args[2], opts)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(map[string]any{"task": task, "artifact": meta})
			}
			if err := printTask(task); err != nil {
				return err
			}
			fmt.Printf("  artifact: %s  %s\n", meta.ID, meta.Describe())
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "short summary of the artifact's content")
	cmd.Flags().StringVar(&opts.Model, "model", "", "model that produced the artifact, for conversation/prompt types")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role this artifact satisfies for a completion policy's require_roles")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	return cmd
}
