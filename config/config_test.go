package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/meenmo/ccrfast/ccr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ccr.DefaultOptions(), cfg.Engine.Options())
	assert.Equal(t, 1000, cfg.Simulation.Paths)
	assert.Equal(t, 3, cfg.Simulation.StepMonths)
	assert.Equal(t, "EUR", cfg.Simulation.Currency)
	assert.InDelta(t, 0.95, cfg.Simulation.Quantile, 1e-12)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccrfast.yaml")
	yaml := `
engine:
  include_settle_payments: true
  basket_tolerance: 0.001
simulation:
  paths: 200
  seed: 9
  spot_vol: 0.3
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CCRFAST_SIMULATION_PATHS", "500")

	cfg, err := Load(path)
	require.NoError(t, err)

	opts := cfg.Engine.Options()
	assert.True(t, opts.IncludeSettlePayments)
	assert.False(t, opts.DiscountAccrued)
	assert.InDelta(t, 0.001, opts.BasketTolerance, 1e-12)
	assert.Equal(t, 1, opts.ProtectionGridMonths)

	assert.Equal(t, 500, cfg.Simulation.Paths)
	assert.Equal(t, uint64(9), cfg.Simulation.Seed)

	sim := cfg.Simulation.Config([]string{"SX5E"})
	assert.Equal(t, 500, sim.Paths)
	assert.InDelta(t, 0.3, sim.Model.SpotVol, 1e-12)
	assert.Equal(t, []string{"SX5E"}, sim.Model.Assets)

	log, err := NewLogger(cfg.Logging)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CCRFAST_SIMULATION_QUANTILE", "1.5")
	_, err := Load("")
	assert.ErrorContains(t, err, "simulation.quantile")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
