package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/engine"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
)

var (
	rootDir string
	actor   string
	jsonOut bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lattice",
		Short:         "a file-based, event-sourced, agent-native work tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rootDir, "root", "", "lattice root directory (default: nearest ancestor containing .lattice/, or $LATTICE_ROOT)")
	root.PersistentFlags().StringVar(&actor, "actor", os.Getenv("LATTICE_ACTOR"), `actor string, e.g. "human:alice" or "agent:claude" (default: $LATTICE_ACTOR)`)
	root.PersistentFlags().BoolVar(&jsonOut, "json", !isTTY(), "emit machine-readable JSON instead of colored text (default: on when stdout is not a terminal)")

	root.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newShowCmd(),
		newStatusCmd(),
		newAssignCmd(),
		newFieldCmd(),
		newCommentCmd(),
		newRelateCmd(),
		newUnrelateCmd(),
		newAttachCmd(),
		newBranchCmd(),
		newUnlinkBranchCmd(),
		newArchiveCmd(),
		newUnarchiveCmd(),
		newResourceCmd(),
		newRebuildCmd(),
		newDoctorCmd(),
	)
	return root
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func errorColor() *color.Color {
	return color.New(color.FgRed, color.Bold)
}

// findRoot resolves the lattice root from --root, falling back to
// $LATTICE_ROOT and then ancestor discovery rooted at the working
// directory.
func findRoot() (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return fsutil.FindRoot(cwd)
}

func openEngine() (*engine.Engine, error) {
	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	return engine.Open(root)
}

func requireActor() (string, error) {
	if actor == "" {
		return "", errs.New(errs.ValidationError, `--actor is required (or set $LATTICE_ACTOR), e.g. "human:alice"`)
	}
	return actor, nil
}
