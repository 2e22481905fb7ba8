package main

import (
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "link-branch <task-id> <branch>",
		Short: "link a git branch to a task",
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
			task, err := e.LinkBranch(taskID, a, args[1], repo)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository the branch lives in")
	return cmd
}

func newUnlinkBranchCmd() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "unlink-branch <task-id> <branch>",
		Short: "unlink a previously-linked git branch",
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
			task, err := e.UnlinkBranch(taskID, a, args[1], repo)
			if err != nil {
				return err
			}
			return printTask(task)
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository the branch lives in")
	return cmd
}
