// Package hook runs the shell commands configured in config.json's hooks
// block after a task mutation durably commits. Hooks run synchronously, but
// failures are only reported to the caller to log, never to block or roll
// back the write that already landed on disk. Hooks are keyed off event
// types and status transitions, and the command is an inline shell string,
// so every hook runs through `sh -c` (`cmd /C` on Windows).
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
)

// DefaultTimeout bounds how long a single hook command may run before its
// process group is killed.
const DefaultTimeout = 10 * time.Second

// Runner executes the hook commands configured for a .lattice root.
type Runner struct {
	root    string
	cfg     config.Hooks
	timeout time.Duration
}

// NewRunner builds a Runner for root using the hooks configured in cfg.
func NewRunner(root string, cfg config.Hooks) *Runner {
	return &Runner{root: root, cfg: cfg, timeout: DefaultTimeout}
}

// Run executes every hook command matching e: the global post_event hook,
// the per-event-type hook in `on`, and — for status_changed events — the
// "from->to" hook in `transitions`. Commands run synchronously in that
// order; a failing command does not stop the rest from running. All errors
// are joined and returned for the caller to log.
func (r *Runner) Run(e *event.Event) error {
	var errs []error

	if cmd := r.cfg.PostEvent; cmd != "" {
		if err := r.runCommand(cmd, e); err != nil {
			errs = append(errs, fmt.Errorf("post_event: %w", err))
		}
	}
	if cmd := r.cfg.On[string(e.Type)]; cmd != "" {
		if err := r.runCommand(cmd, e); err != nil {
			errs = append(errs, fmt.Errorf("on[%s]: %w", e.Type, err))
		}
	}
	if e.Type == event.StatusChanged {
		from, _ := e.Data["from"].(string)
		to, _ := e.Data["to"].(string)
		key := from + "->" + to
		if cmd := r.cfg.Transitions[key]; cmd != "" {
			if err := r.runCommand(cmd, e); err != nil {
				errs = append(errs, fmt.Errorf("transitions[%s]: %w", key, err))
			}
		}
	}

	return errors.Join(errs...)
}

// buildEnv returns the environment variables every hook invocation receives
// in addition to the event JSON on stdin.
func buildEnv(e *event.Event) []string {
	env := []string{
		"LATTICE_EVENT_TYPE=" + string(e.Type),
		"LATTICE_EVENT_ID=" + e.ID,
		"LATTICE_ACTOR=" + e.Actor,
	}
	if e.TaskID != "" {
		env = append(env, "LATTICE_TASK_ID="+e.TaskID)
	}
	if e.ResourceID != "" {
		env = append(env, "LATTICE_RESOURCE_ID="+e.ResourceID)
	}
	return env
}

// eventStdin marshals e for delivery to a hook's stdin.
func eventStdin(e *event.Event) (*bytes.Reader, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
