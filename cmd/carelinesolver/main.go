// Command carelinesolver solves one field-worker scheduling scenario
// end-to-end: load, build travel matrices (optionally from a cache), run the
// routing engine, and emit a timetable plus a structured solution record.
// Grounded on the teacher's cmd/server/main.go run()+log.Fatalf entrypoint
// shape, generalised from a long-lived HTTP server to a one-shot CLI command
// in the style other_examples/ xbe-cli shows (a cobra.Command whose flags
// are parsed into an options struct by a dedicated parse function).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/homecare/carelinesolver/internal/cache"
	"github.com/homecare/carelinesolver/internal/compat"
	"github.com/homecare/carelinesolver/internal/config"
	"github.com/homecare/carelinesolver/internal/graph"
	"github.com/homecare/carelinesolver/internal/model"
	"github.com/homecare/carelinesolver/internal/report"
	"github.com/homecare/carelinesolver/internal/routing"
	"github.com/homecare/carelinesolver/internal/scenario"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "carelinesolver",
		Short: "Constrained vehicle routing solver for home-care field scheduling",
	}
	root.AddCommand(newSolveCmd())
	return root
}

type solveOptions struct {
	ScenarioPath string
	PenaltyFile  string
	CachePath    string
	JSONOut      string
	TextOut      string
	Restarts     int
	Parallelism  int
}

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a scenario file and print a worker timetable",
		Long: `Solve reads a scenario document (depot, visits, workers, road graph),
builds travel-time/distance matrices, runs the routing engine under its
configured time budget, and writes a per-worker timetable plus a structured
solution record.

Configuration (shift hours, speed defaults, time budget, penalty weights, ...)
is read from CARE_-prefixed environment variables; see internal/config for
the full list and their defaults.`,
		Example: `  carelinesolver solve --scenario scenario.json --json-out solution.json
  carelinesolver solve --scenario scenario.json --restarts 4 --cache .cache/matrices.db`,
		RunE: runSolve,
	}
	initSolveFlags(cmd)
	return cmd
}

func initSolveFlags(cmd *cobra.Command) {
	cmd.Flags().String("scenario", "", "Path to the scenario JSON document (required)")
	cmd.Flags().String("penalty-file", "", "Optional YAML/JSON/TOML file overriding the default capability-gap penalty table")
	cmd.Flags().String("cache", "", "Path to the SQLite matrix cache (empty disables caching)")
	cmd.Flags().String("json-out", "", "Path to write the structured solution record (empty skips)")
	cmd.Flags().String("text-out", "", "Path to write the worker timetable (empty prints to stdout)")
	cmd.Flags().Int("restarts", 1, "Number of independent construct+improve passes to race")
	cmd.Flags().Int("parallelism", 4, "Max concurrent restarts")
	_ = cmd.MarkFlagRequired("scenario")
}

func parseSolveOptions(cmd *cobra.Command) (solveOptions, error) {
	scenarioPath, _ := cmd.Flags().GetString("scenario")
	penaltyFile, _ := cmd.Flags().GetString("penalty-file")
	cachePath, _ := cmd.Flags().GetString("cache")
	jsonOut, _ := cmd.Flags().GetString("json-out")
	textOut, _ := cmd.Flags().GetString("text-out")
	restarts, _ := cmd.Flags().GetInt("restarts")
	parallelism, _ := cmd.Flags().GetInt("parallelism")

	if scenarioPath == "" {
		return solveOptions{}, fmt.Errorf("--scenario is required")
	}

	return solveOptions{
		ScenarioPath: scenarioPath,
		PenaltyFile:  penaltyFile,
		CachePath:    cachePath,
		JSONOut:      jsonOut,
		TextOut:      textOut,
		Restarts:     restarts,
		Parallelism:  parallelism,
	}, nil
}

func runSolve(cmd *cobra.Command, _ []string) error {
	opts, err := parseSolveOptions(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	log.Printf("[SOLVE] run=%s scenario=%s", runID, opts.ScenarioPath)

	cfg, err := config.Load(opts.PenaltyFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sc, err := scenario.Load(opts.ScenarioPath, cfg.MaxStopsPerWorker)
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	shift, err := model.NewShift(cfg.ShiftStartHour, cfg.ShiftEndHour, cfg.MaxRouteWaitS)
	if err != nil {
		return fmt.Errorf("failed to build shift: %w", err)
	}

	matrices, err := buildMatrices(ctx, cfg, sc, opts.CachePath)
	if err != nil {
		return fmt.Errorf("failed to build travel matrices: %w", err)
	}

	in := routing.Input{
		Visits:   sc.Visits,
		Workers:  sc.Workers,
		Matrices: matrices,
		Shift:    shift,
		Config:   cfg,
		Oracle:   compat.New(cfg.PenaltyTable),
	}

	sol, err := routing.SolveMultiRestart(ctx, in, opts.Restarts, opts.Parallelism)
	var infeasible *routing.InfeasibleScenarioError
	switch {
	case errors.As(err, &infeasible):
		log.Printf("[SOLVE] run=%s: %v", runID, err)
	case errors.Is(err, routing.ErrBudgetExhausted):
		log.Printf("[SOLVE] run=%s: %v", runID, err)
	case err != nil:
		return fmt.Errorf("solve failed: %w", err)
	}

	rep := report.Generate(sol, in)
	text := report.WriteText(rep)
	if opts.TextOut != "" {
		if err := os.WriteFile(opts.TextOut, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to write timetable: %w", err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}

	if opts.JSONOut != "" {
		if err := report.WriteJSON(runID, sol, opts.JSONOut); err != nil {
			return fmt.Errorf("failed to write solution record: %w", err)
		}
	}

	log.Printf("[SOLVE] run=%s done: objective=%d dropped=%d", runID, sol.Objective.Total(), len(sol.Dropped))
	return nil
}

// buildMatrices builds (or fetches, or backfills) the travel-time/distance
// matrices for sc. When cachePath is set, a fingerprint of the depot/visit
// coordinates and road graph is looked up first, so a repeated solve over
// the same scenario never repays the N² Dijkstra fan-out.
func buildMatrices(ctx context.Context, cfg model.SolverConfig, sc scenario.Scenario, cachePath string) (model.Matrices, error) {
	visitCoords := make([]model.Coordinates, len(sc.Visits))
	for i, v := range sc.Visits {
		visitCoords[i] = v.Coord
	}

	if cachePath == "" {
		return graph.NewBuilder(cfg, 4).Build(ctx, sc.Graph, sc.Depot, visitCoords)
	}

	store, err := cache.Open(cachePath)
	if err != nil {
		return model.Matrices{}, fmt.Errorf("failed to open matrix cache: %w", err)
	}
	defer store.Close()

	fp := cache.Fingerprint(sc.Depot, visitCoords, sc.Graph)
	if m, ok, err := store.Get(ctx, fp, len(visitCoords)); err != nil {
		return model.Matrices{}, fmt.Errorf("failed to read matrix cache: %w", err)
	} else if ok {
		log.Printf("[SOLVE] matrix cache hit: fingerprint=%s", fp)
		return m, nil
	}

	m, err := graph.NewBuilder(cfg, 4).Build(ctx, sc.Graph, sc.Depot, visitCoords)
	if err != nil {
		return model.Matrices{}, err
	}
	if err := store.Put(ctx, fp, m); err != nil {
		return model.Matrices{}, fmt.Errorf("failed to write matrix cache: %w", err)
	}
	return m, nil
}
