package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/resource"
)

func newResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "coordinate exclusive access to named resources",
	}
	cmd.AddCommand(
		newResourceAcquireCmd(),
		newResourceReleaseCmd(),
		newResourceHeartbeatCmd(),
		newResourceStatusCmd(),
	)
	return cmd
}

func newResourceAcquireCmd() *cobra.Command {
	var opts engine.AcquireResourceOptions
	var waitTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "acquire <name>",
		Short: "take exclusive ownership of a named resource",
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
			opts.WaitTimeout = waitTimeout
			snap, err := e.AcquireResource(args[0], a, opts)
			if err != nil {
				return err
			}
			return printResource(snap)
		},
	}
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "poll until the resource frees up or the wait timeout expires")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 30*time.Second, "how long --wait keeps polling")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "evict the current holder before acquiring")
	return cmd
}

func newResourceReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <name>",
		Short: "relinquish a held resource",
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
			snap, err := e.ReleaseResource(args[0], a)
			if err != nil {
				return err
			}
			return printResource(snap)
		},
	}
}

func newResourceHeartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat <name>",
		Short: "extend the TTL on a held resource",
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
			snap, err := e.HeartbeatResource(args[0], a)
			if err != nil {
				return err
			}
			return printResource(snap)
		},
	}
}

func newResourceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "show who holds a resource, expiring a stale holder first",
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
			snap, err := e.ResourceStatus(args[0], a)
			if err != nil {
				return err
			}
			return printResource(snap)
		},
	}
}

func printResource(s *resource.Snapshot) error {
	if jsonOut {
		return printJSON(s)
	}
	if s == nil {
		fmt.Println("not acquired")
		return nil
	}
	if s.Holder == nil {
		fmt.Printf("%s: free\n", s.Name)
		return nil
	}
	fmt.Printf("%s: held by %s since %s", s.Name, s.Holder.Actor, s.Holder.AcquiredAt)
	if s.Holder.ExpiresAt != "" {
		fmt.Printf(", expires %s", s.Holder.ExpiresAt)
	}
	fmt.Println()
	return nil
}
