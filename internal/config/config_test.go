package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/config"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, config.Validate(config.Default()))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.ProjectCode = "LAT"
	require.NoError(t, config.Save(root, cfg))

	loaded, err := config.Load(root)
	require.NoError(t, err)
	require.Equal(t, "LAT", loaded.ProjectCode)
	require.Equal(t, cfg.Workflow.Statuses, loaded.Workflow.Statuses)
}

func TestLoadMissingConfigReturnsNotInitialized(t *testing.T) {
	_, err := config.Load(t.TempDir())
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.NotInitialized))
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, config.Save(root, config.Default()))

	t.Setenv("LATTICE_PROJECT_CODE", "acme")
	t.Setenv("LATTICE_DEFAULT_STATUS", "in_planning")

	loaded, err := config.Load(root)
	require.NoError(t, err)
	require.Equal(t, "ACME", loaded.ProjectCode)
	require.Equal(t, "in_planning", loaded.DefaultStatus)
}

func TestValidateRejectsEmptyStatuses(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.Statuses = nil
	err := config.Validate(cfg)
	require.Error(t, err)
	require.True(t, errs.OfCode(err, errs.ValidationError))
}

func TestValidateRejectsUnknownDefaultStatus(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultStatus = "nonexistent"
	require.Error(t, config.Validate(cfg))
}

func TestValidateRejectsTransitionToUnknownStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.Transitions["done"] = []string{"nonexistent"}
	require.Error(t, config.Validate(cfg))
}

func TestLockTimeoutDefaultsAndHonorsEnv(t *testing.T) {
	require.Equal(t, 10e9, float64(config.LockTimeout()))

	t.Setenv("LATTICE_LOCK_TIMEOUT", "2s")
	require.Equal(t, float64(2e9), float64(config.LockTimeout()))

	t.Setenv("LATTICE_LOCK_TIMEOUT", "not-a-duration")
	require.Equal(t, 10e9, float64(config.LockTimeout()))
}
