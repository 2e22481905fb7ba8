// Command lattice is the thin CLI surface over internal/engine: one cobra
// command per write-path operation, plus doctor/rebuild for the recovery
// path. It holds no domain logic of its own; every RunE body validates
// flags, then calls straight into internal/engine or internal/doctor.
package main

import (
	"fmt"
	"os"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printErr(err)
		os.Exit(exitCode(err))
	}
}

func printErr(err error) {
	if jsonOut {
		code := "ERROR"
		var e *errs.Error
		if errsAs(err, &e) {
			code = string(e.Code)
		}
		_ = printEnvelope(map[string]any{
			"ok":    false,
			"error": map[string]string{"code": code, "message": err.Error()},
		})
		return
	}
	fmt.Fprintln(os.Stderr, errorColor().Sprint("error:"), err)
}

// exitCode maps a stable errs.Code to a process exit status: 0 never
// reaches here, 1 is a user/domain error (a different input might
// succeed), 2 is a system error (lock contention, I/O, corruption).
func exitCode(err error) int {
	var e *errs.Error
	if !errsAs(err, &e) {
		return 1
	}
	switch e.Code {
	case errs.LockTimeout, errs.IOError, errs.Corrupt, errs.Drift:
		return 2
	default:
		return 1
	}
}

func errsAs(err error, target **errs.Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*errs.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
