// Package config is the single place that knows how SolverConfig is
// assembled from the environment: one immutable value built once at
// startup and threaded everywhere else (spec §5, §6). Grounded on
// shivamshaw23-Hintro/config/config.go's mapstructure + viper.SetDefault
// idiom, adapted from HTTP/Postgres/Redis settings to the solver's tuning
// knobs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/homecare/carelinesolver/internal/model"
)

// envPrefix namespaces every recognised option so CARE_SEED etc never
// collides with an unrelated environment variable.
const envPrefix = "CARE"

// Load builds a model.SolverConfig from environment variables (optionally
// backed by a .env file in the working directory), falling back to spec
// §6's defaults for anything unset. penaltyFile, if non-empty, points at a
// YAML/JSON/TOML file overriding the default per-token penalty table (spec
// §6: "PenaltyTable is loaded from a nested config section").
func Load(penaltyFile string) (model.SolverConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // absent .env is not an error; env vars still apply

	defaults := model.DefaultSolverConfig()
	v.SetDefault("SHIFT_START_HOUR", defaults.ShiftStartHour)
	v.SetDefault("SHIFT_END_HOUR", defaults.ShiftEndHour)
	v.SetDefault("DEFAULT_SPEED_KPH", defaults.DefaultSpeedKPH)
	v.SetDefault("TRAVEL_TIME_MULTIPLIER", defaults.TravelTimeMultiplier)
	v.SetDefault("PER_HOP_OVERHEAD_S", defaults.PerHopOverheadS)
	v.SetDefault("MAX_STOPS_PER_WORKER", defaults.MaxStopsPerWorker)
	v.SetDefault("MAX_ROUTE_WAIT_S", defaults.MaxRouteWaitS)
	v.SetDefault("VEHICLE_FIXED_COST", defaults.VehicleFixedCost)
	v.SetDefault("SOLVER_TIME_BUDGET_S", int(defaults.SolverTimeBudget.Seconds()))
	v.SetDefault("SEED", defaults.Seed)

	cfg := model.SolverConfig{
		ShiftStartHour:       v.GetInt("SHIFT_START_HOUR"),
		ShiftEndHour:         v.GetInt("SHIFT_END_HOUR"),
		DefaultSpeedKPH:      v.GetFloat64("DEFAULT_SPEED_KPH"),
		TravelTimeMultiplier: v.GetFloat64("TRAVEL_TIME_MULTIPLIER"),
		PerHopOverheadS:      v.GetInt("PER_HOP_OVERHEAD_S"),
		MaxStopsPerWorker:    v.GetInt("MAX_STOPS_PER_WORKER"),
		MaxRouteWaitS:        v.GetInt("MAX_ROUTE_WAIT_S"),
		VehicleFixedCost:     v.GetInt("VEHICLE_FIXED_COST"),
		SolverTimeBudget:     time.Duration(v.GetInt("SOLVER_TIME_BUDGET_S")) * time.Second,
		Seed:                 v.GetInt64("SEED"),
		PenaltyTable:         model.DefaultPenaltyTable,
	}

	if penaltyFile != "" {
		table, err := loadPenaltyTable(penaltyFile)
		if err != nil {
			return model.SolverConfig{}, fmt.Errorf("failed to load penalty table: %w", err)
		}
		cfg.PenaltyTable = table
	}

	return cfg, nil
}

// loadPenaltyTable reads a standalone config file (any format viper
// supports by extension) whose keys are the token vocabulary and values
// are the per-token drop penalty, overriding model.DefaultPenaltyTable
// wholesale rather than merging field by field.
func loadPenaltyTable(path string) (map[model.Token]int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	raw := v.GetStringMap("penalties")
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: no [penalties] section found", path)
	}

	table := make(map[model.Token]int, len(raw))
	for k, val := range raw {
		token := model.Token(k)
		if !model.IsKnownToken(token) {
			return nil, fmt.Errorf("%s: unknown token %q in penalty table", path, k)
		}
		n, ok := val.(int)
		if !ok {
			if f, isFloat := val.(float64); isFloat {
				n = int(f)
			} else {
				return nil, fmt.Errorf("%s: penalty for %q is not numeric", path, k)
			}
		}
		table[token] = n
	}
	return table, nil
}
