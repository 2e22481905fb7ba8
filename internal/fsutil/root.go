package fsutil

import (
	"os"
	"path/filepath"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// DirName is the on-disk directory name conventionally holding Lattice's
// state, e.g. ".lattice".
const DirName = ".lattice"

// RootEnvVar overrides root discovery; must point to the directory
// containing DirName.
const RootEnvVar = "LATTICE_ROOT"

// FindRoot honors LATTICE_ROOT first (must point to a directory containing
// .lattice/, else a direct error is raised), otherwise walks ancestors of
// startDir looking for .lattice/. Returns the directory containing .lattice
// (not .lattice itself).
func FindRoot(startDir string) (string, error) {
	if envRoot := os.Getenv(RootEnvVar); envRoot != "" {
		info, err := os.Stat(filepath.Join(envRoot, DirName))
		if err != nil || !info.IsDir() {
			return "", errs.New(errs.NotInitialized, "%s=%q does not contain a %s directory", RootEnvVar, envRoot, DirName)
		}
		return filepath.Clean(envRoot), nil
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errs.Wrap(errs.IOError, err, "resolve absolute path for %q", startDir)
	}
	for {
		info, statErr := os.Stat(filepath.Join(dir, DirName))
		if statErr == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errs.New(errs.NotInitialized, "no %s directory found above %q", DirName, startDir)
		}
		dir = parent
	}
}

// LatticeDir returns the .lattice directory path under root.
func LatticeDir(root string) string {
	return filepath.Join(root, DirName)
}
