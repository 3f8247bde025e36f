package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ddlocate.db", cfg.Store.DatabaseURL)
	assert.Empty(t, cfg.Model.Path)
	assert.Equal(t, 6.0, cfg.Model.Vp)
	assert.Equal(t, 3.5, cfg.Model.Vs)
	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, 30, cfg.Solver.MaxIterations)
	assert.Equal(t, 1e-4, cfg.Solver.Damping)
	assert.Equal(t, 10.0, cfg.Solver.DampingFactor)
	assert.Equal(t, 2, cfg.Solver.DivergenceLimit)
	assert.Equal(t, 1.0, cfg.Solver.MinStationDistKm)
	assert.False(t, cfg.Solver.RejectOutliers)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentDoublets)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	doc := `store:
  driver: postgres
  database_url: postgres://localhost/ddlocate
model:
  vp: 5.8
solver:
  max_iterations: 50
  reject_outliers: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(dir+"/config.yaml", []byte(doc), 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/ddlocate", cfg.Store.DatabaseURL)
	assert.Equal(t, 5.8, cfg.Model.Vp)
	assert.Equal(t, 3.5, cfg.Model.Vs) // default survives partial file
	assert.Equal(t, 50, cfg.Solver.MaxIterations)
	assert.True(t, cfg.Solver.RejectOutliers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DDLOCATE_STORE_DRIVER", "postgres")
	t.Setenv("DDLOCATE_SOLVER_MAX_ITERATIONS", "99")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 99, cfg.Solver.MaxIterations)
}

func TestLoadBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.yaml", []byte("store: [not a map"), 0o644))
	t.Chdir(dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.ErrorContains(t, InitLogger(LogConfig{Level: "chatty", Format: "json"}), "parse log level")
}
