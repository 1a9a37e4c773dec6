package model

import "time"

// SolverConfig is the single immutable configuration value threaded through
// every core component (spec §5: "All configuration is passed as an
// immutable SolverConfig value. No mutable global state."). It is assembled
// once, by internal/config, and never mutated after construction.
type SolverConfig struct {
	ShiftStartHour int
	ShiftEndHour   int

	DefaultSpeedKPH      float64
	TravelTimeMultiplier float64
	PerHopOverheadS      int

	MaxStopsPerWorker int
	MaxRouteWaitS     int

	VehicleFixedCost int

	SolverTimeBudget time.Duration
	Seed             int64

	PenaltyTable map[Token]int
}

// DefaultSolverConfig returns the configuration defaults named in spec §6.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		ShiftStartHour:       8,
		ShiftEndHour:         16,
		DefaultSpeedKPH:      50,
		TravelTimeMultiplier: 1.20,
		PerHopOverheadS:      120,
		MaxStopsPerWorker:    20,
		MaxRouteWaitS:        3600,
		VehicleFixedCost:     10000,
		SolverTimeBudget:     120 * time.Second,
		Seed:                 0,
		PenaltyTable:         DefaultPenaltyTable,
	}
}
