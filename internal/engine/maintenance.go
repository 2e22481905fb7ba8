package engine

import (
	"github.com/Stage-11-Agentics/lattice-sub001/internal/doctor"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/rebuild"
)

// Rebuild refolds every task's snapshot from its event log and
// regenerates the lifecycle and short-ID indexes.
func (e *Engine) Rebuild() rebuild.AllResult {
	return rebuild.RebuildAll(e.Store.Root, e.Store.Config)
}

// Doctor runs the full integrity check.
func (e *Engine) Doctor() (doctor.Report, error) {
	return doctor.Run(e.Store.Root)
}

// DoctorFix runs the integrity check and applies known-safe repairs.
func (e *Engine) DoctorFix() (doctor.FixResult, error) {
	return doctor.Fix(e.Store.Root)
}
