package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecare/carelinesolver/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSolverConfig().VehicleFixedCost, cfg.VehicleFixedCost)
	assert.Equal(t, model.DefaultSolverConfig().SolverTimeBudget, cfg.SolverTimeBudget)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("CARE_VEHICLE_FIXED_COST", "20000")
	t.Setenv("CARE_SEED", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20000, cfg.VehicleFixedCost)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestLoadPenaltyTableOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penalties.yaml")
	content := "penalties:\n  license: 999\n  smoker: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 999, cfg.PenaltyTable[model.TokenLicense])
	assert.Equal(t, 1, cfg.PenaltyTable[model.TokenSmoker])
}

func TestLoadPenaltyTableRejectsUnknownToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penalties.yaml")
	content := "penalties:\n  not_a_real_token: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
