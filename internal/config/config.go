// Package config implements Lattice's workflow configuration: statuses,
// transitions, completion policies, and the project code used to mint
// short-IDs.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

// FileName is the config file name under .lattice/.
const FileName = "config.json"

// SchemaVersion is the current on-disk config schema version.
const SchemaVersion = 1

// CompletionPolicy gates a transition into a target status on evidence of
// required roles, an optional branch-merge requirement, and an optional
// review-rework cycle limit.
type CompletionPolicy struct {
	RequireRoles        []string `json:"require_roles,omitempty"`
	RequireBranchMerged bool     `json:"require_branch_merged,omitempty"`
	ReviewCycleLimit    int      `json:"review_cycle_limit,omitempty"`
}

// Workflow holds the status graph, WIP limits, and completion policies.
type Workflow struct {
	Statuses           []string                    `json:"statuses"`
	Transitions        map[string][]string         `json:"transitions"`
	WipLimits          map[string]int              `json:"wip_limits,omitempty"`
	CompletionPolicies map[string]CompletionPolicy `json:"completion_policies,omitempty"`
}

// Hooks maps event types and status transitions to shell commands run after
// a durable write.
type Hooks struct {
	PostEvent   string            `json:"post_event,omitempty"`
	On          map[string]string `json:"on,omitempty"`
	Transitions map[string]string `json:"transitions,omitempty"`
}

// Heartbeat configures the expected interval for resource heartbeats.
type Heartbeat struct {
	IntervalSeconds int `json:"interval_seconds,omitempty"`
	TTLSeconds      int `json:"ttl_seconds,omitempty"`
}

// Config is the parsed shape of .lattice/config.json.
type Config struct {
	SchemaVersion   int            `json:"schema_version"`
	DefaultStatus   string         `json:"default_status"`
	DefaultPriority string         `json:"default_priority,omitempty"`
	TaskTypes       []string       `json:"task_types,omitempty"`
	ProjectCode     string         `json:"project_code,omitempty"`
	SubprojectCode  string         `json:"subproject_code,omitempty"`
	Workflow        Workflow       `json:"workflow"`
	Hooks           Hooks          `json:"hooks,omitempty"`
	Resources       map[string]any `json:"resources,omitempty"`
	Heartbeat       *Heartbeat     `json:"heartbeat,omitempty"`
}

// Default returns a minimal, valid configuration: a six-status workflow
// with no gating policies.
func Default() *Config {
	return &Config{
		SchemaVersion:   SchemaVersion,
		DefaultStatus:   "backlog",
		DefaultPriority: "medium",
		TaskTypes:       []string{"task", "bug", "feature", "chore"},
		Workflow: Workflow{
			Statuses: []string{"backlog", "in_planning", "planned", "in_progress", "review", "done"},
			Transitions: map[string][]string{
				"backlog":     {"in_planning"},
				"in_planning": {"planned"},
				"planned":     {"in_progress"},
				"in_progress": {"review"},
				"review":      {"done", "in_progress", "in_planning"},
			},
		},
	}
}

// Path returns the on-disk path of config.json under root.
func Path(root string) string {
	return filepath.Join(root, ".lattice", FileName)
}

// Load reads and validates .lattice/config.json under root, layering
// LATTICE_-prefixed environment overrides on top. config.json stays the
// source of workflow truth; the environment only tweaks scalar defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.NotInitialized, "no config.json found under %q", root)
		}
		return nil, errs.Wrap(errs.IOError, err, "read config.json")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.Corrupt, err, "parse config.json")
	}
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to .lattice/config.json. Callers needing durability
// guarantees across concurrent readers should route through
// internal/fsutil.AtomicWrite directly; Save is a plain write used only
// during `lattice init`, before any other writer can observe the file.
func Save(root string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "marshal config.json")
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(Path(root)), 0o755); err != nil {
		return errs.Wrap(errs.IOError, err, "create .lattice directory")
	}
	if err := os.WriteFile(Path(root), data, 0o644); err != nil {
		return errs.Wrap(errs.IOError, err, "write config.json")
	}
	return nil
}

// applyEnvOverrides layers LATTICE_* environment variables over cfg using
// viper's env-binding conventions, without displacing config.json as the
// source of workflow truth.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("LATTICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if v.IsSet("default_status") {
		if s := v.GetString("default_status"); s != "" {
			cfg.DefaultStatus = s
		}
	}
	if v.IsSet("default_priority") {
		if s := v.GetString("default_priority"); s != "" {
			cfg.DefaultPriority = s
		}
	}
	if v.IsSet("project_code") {
		if s := v.GetString("project_code"); s != "" {
			cfg.ProjectCode = strings.ToUpper(s)
		}
	}
}

// LockTimeout returns the configured lock acquisition timeout, honoring
// LATTICE_LOCK_TIMEOUT (a Go duration string) over the default of 10s.
func LockTimeout() time.Duration {
	if s := os.Getenv("LATTICE_LOCK_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return 10 * time.Second
}

// Validate checks internal consistency of a loaded config.
func Validate(cfg *Config) error {
	if len(cfg.Workflow.Statuses) == 0 {
		return errs.New(errs.ValidationError, "config.json: workflow.statuses must not be empty")
	}
	statusSet := make(map[string]bool, len(cfg.Workflow.Statuses))
	for _, s := range cfg.Workflow.Statuses {
		statusSet[s] = true
	}
	if cfg.DefaultStatus != "" && !statusSet[cfg.DefaultStatus] {
		return errs.New(errs.ValidationError, "config.json: default_status %q is not in workflow.statuses", cfg.DefaultStatus)
	}
	for from, tos := range cfg.Workflow.Transitions {
		if !statusSet[from] {
			return errs.New(errs.ValidationError, "config.json: transition source %q is not in workflow.statuses", from)
		}
		for _, to := range tos {
			if !statusSet[to] {
				return errs.New(errs.ValidationError, "config.json: transition target %q (from %q) is not in workflow.statuses", to, from)
			}
		}
	}
	return nil
}
