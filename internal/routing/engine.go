package routing

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/homecare/carelinesolver/internal/model"
)

// Engine runs one or more construction+improvement passes over an Input and
// returns the best Solution found (spec §4.4's state machine: Building ->
// Constructed -> Improving* -> Finalised, with early exit to Infeasible or
// Cancelled). Grounded on the teacher's top-level CalculateRoutes phase
// structure (internal/routing/distance_minimizer.go), generalised from a
// single fixed-weight heuristic to a construct/improve/finalise pipeline
// driven by SolverConfig.
type Engine struct {
	in Input
}

// New creates an Engine for one scenario. Visits, Workers, Matrices, Shift,
// Config and Oracle must already be validated by the caller.
func New(in Input) *Engine {
	return &Engine{in: in}
}

// Solve runs exactly one construct+improve+finalise pass, seeded by
// in.Config.Seed, and returns the resulting Solution together with the
// solver state it ended in. A zero-visit input (already rejected by
// model.ValidateBatch upstream) and a nil ctx are both programmer errors,
// not handled defensively here.
//
// Status, not err, is the distinct result variant spec §7 asks for
// (InfeasibleScenario / Cancelled / Finalised): err is nil for a normal or
// cancelled run, non-nil only to attach structured detail (an
// *InfeasibleScenarioError, or the informational ErrBudgetExhausted
// sentinel) to a Solution the caller should still inspect, never used as a
// bare exception path in place of the returned Solution.
func (e *Engine) Solve(ctx context.Context) (*model.Solution, Status, error) {
	status := StatusBuilding
	log.Printf("[ENGINE] %s: visits=%d workers=%d seed=%d budget=%v",
		status, len(e.in.Visits), len(e.in.Workers), e.in.Config.Seed, e.in.Config.SolverTimeBudget)

	if len(e.in.Visits) > 0 && len(e.in.Workers) == 0 {
		status = StatusInfeasible
		err := &InfeasibleScenarioError{
			Reason:          "no workers available to seat any visit",
			UnassignedCount: len(e.in.Visits),
		}
		sol := e.allUnseatable(err.Reason)
		log.Printf("[ENGINE] %s: %v", status, err)
		return &sol, status, err
	}

	cons := newConstructor(e.in)
	built := cons.run()
	status = StatusConstructed

	sim := &simulator{visits: e.in.Visits, m: e.in.Matrices, shift: e.in.Shift}
	rng := rand.New(rand.NewSource(e.in.Config.Seed))

	status = StatusImproving
	dropPenalty := e.pendingPenalty(built.pending) + droppedPenalty(built.dropped)
	imp := newImprover(e.in, sim, rng)
	routes, exhausted := imp.run(ctx, built.routes, dropPenalty)

	select {
	case <-ctx.Done():
		status = StatusCancelled
		dropped := e.dropCancelledPending(built.pending, built.dropped)
		sol := e.toSolution(routes, dropped, sim)
		sol.CancelledBeforeFinalise = true
		log.Printf("[ENGINE] %s: routes=%d dropped=%d", status, sol.ActiveWorkerCount(), len(sol.Dropped))
		return &sol, status, nil
	default:
	}

	status = StatusFinalised
	sol := e.finalise(routes, built.pending, built.dropped, sim)
	log.Printf("[ENGINE] %s: routes=%d dropped=%d objective=%d",
		status, sol.ActiveWorkerCount(), len(sol.Dropped), sol.Objective.Total())

	if exhausted {
		log.Printf("[ENGINE] %v", ErrBudgetExhausted)
		return &sol, status, ErrBudgetExhausted
	}
	return &sol, status, nil
}

// allUnseatable builds a Solution in which every visit is dropped with the
// same reason, for the case where construction cannot even begin (spec
// §4.4's "cannot even seat the mandatory visits" — here, literally no
// worker exists to assign one to).
func (e *Engine) allUnseatable(reason string) model.Solution {
	dropped := make([]model.DroppedVisit, len(e.in.Visits))
	for i, v := range e.in.Visits {
		dropped[i] = model.DroppedVisit{VisitID: v.ID, Reason: reason}
	}
	return model.Solution{Dropped: dropped}
}

// dropCancelledPending marks every still-pending visit as dropped without
// attempting the finalisation retry, so invariant I1 (every visit is routed
// or dropped) still holds when the engine returns early on cancellation.
func (e *Engine) dropCancelledPending(pending []pendingEntry, dropped []model.DroppedVisit) []model.DroppedVisit {
	cons := &constructor{in: e.in}
	for _, p := range pending {
		dv := model.DroppedVisit{VisitID: e.in.Visits[p.visitPos].ID, Reason: "cancelled-before-finalise"}
		if best := cons.minPenaltyUncovered(p.uncoveredBy); best != nil {
			dv.Uncovered = best.tokens
			dv.Penalty = e.in.Oracle.Penalty(best.tokens)
		}
		dropped = append(dropped, dv)
	}
	return dropped
}

// pendingPenalty charges the best-available (least-bad) compatibility
// penalty to every visit construction could not seat at all, mirroring how
// an outright-dropped visit is scored.
func (e *Engine) pendingPenalty(pending []pendingEntry) int {
	cons := &constructor{in: e.in}
	total := 0
	for _, p := range pending {
		if best := cons.minPenaltyUncovered(p.uncoveredBy); best != nil {
			total += e.in.Oracle.Penalty(best.tokens)
		}
	}
	return total
}

// finalise retries every still-pending visit against the post-improvement
// routes (capacity freed up by relocation may now seat something
// construction could not), then converts the result into a public Solution.
func (e *Engine) finalise(routes []*route, pending []pendingEntry, dropped []model.DroppedVisit, sim *simulator) model.Solution {
	dropped = e.retryPending(routes, pending, dropped, sim)
	return e.toSolution(routes, dropped, sim)
}

// retryPending attempts to insert every still-pending visit into routes,
// recording it as dropped when no feasible slot exists anywhere.
func (e *Engine) retryPending(routes []*route, pending []pendingEntry, dropped []model.DroppedVisit, sim *simulator) []model.DroppedVisit {
	cons := &constructor{in: e.in, sim: sim}
	for _, p := range pending {
		wi, pos, _, found := cons.cheapestAcross(p.compatible, routes, p.visitPos)
		if found {
			cons.insert(routes[wi], pos, p.visitPos)
			continue
		}
		dropped = append(dropped, cons.dropConstraintInfeasible(p.visitPos, cons.minPenaltyUncovered(p.uncoveredBy)))
	}
	return dropped
}

// toSolution converts internal route/dropped state into the public
// Solution shape, valid whether or not retryPending ran.
func (e *Engine) toSolution(routes []*route, dropped []model.DroppedVisit, sim *simulator) model.Solution {
	out := model.Solution{}
	for _, r := range routes {
		if len(r.stops) == 0 {
			continue
		}
		stops := make([]model.Stop, len(r.stops))
		for i, s := range r.stops {
			stops[i] = model.Stop{
				VisitID:       e.in.Visits[s.visitPos].ID,
				ArrivalS:      s.arrivalS,
				ServiceStartS: s.serviceStartS,
				ServiceEndS:   s.serviceEndS,
				DepartureS:    s.departureS,
			}
		}
		out.Routes = append(out.Routes, model.Route{
			WorkerID:     e.in.Workers[r.workerPos].ID,
			Stops:        stops,
			DepartDepotS: 0,
			ReturnDepotS: r.returnDepotS,
		})
	}
	out.Dropped = dropped

	obj := newObjective(e.in.Config, sim)
	out.Objective = obj.evaluate(routes, droppedPenalty(dropped))
	return out
}

// SolveMultiRestart runs `restarts` independent Solve passes, each seeded
// with config.Seed+i so results stay reproducible (P8), fanned out across a
// bounded worker pool (spec §5's parallel-restart allowance), and returns
// the minimum-objective Solution. restarts <= 1 runs a single pass inline.
//
// A restart that finished with ErrBudgetExhausted or StatusCancelled still
// carries a usable Solution and competes on objective like any other; only
// StatusInfeasible (or any other error) disqualifies a restart outright,
// since its Solution is the all-dropped placeholder, not a real candidate.
func SolveMultiRestart(ctx context.Context, in Input, restarts, parallelism int) (model.Solution, error) {
	if restarts <= 1 {
		sol, _, err := New(in).Solve(ctx)
		return *sol, err
	}

	start := time.Now()
	log.Printf("[ENGINE] multi-restart: restarts=%d parallelism=%d", restarts, parallelism)

	results := make([]*model.Solution, restarts)
	statuses := make([]Status, restarts)
	errs := make([]error, restarts)

	p := pool.New().WithMaxGoroutines(parallelism)
	for i := 0; i < restarts; i++ {
		i := i
		p.Go(func() {
			restartIn := in
			restartIn.Config.Seed = in.Config.Seed + int64(i)
			sol, status, err := New(restartIn).Solve(ctx)
			results[i], statuses[i], errs[i] = sol, status, err
		})
	}
	p.Wait()

	bestIdx := -1
	for i, status := range statuses {
		var infeasible *InfeasibleScenarioError
		if errors.As(errs[i], &infeasible) || status == StatusInfeasible {
			continue
		}
		if errs[i] != nil && !errors.Is(errs[i], ErrBudgetExhausted) {
			continue
		}
		if bestIdx == -1 || results[i].Objective.Total() < results[bestIdx].Objective.Total() {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		if results[0] != nil {
			return *results[0], errs[0]
		}
		return model.Solution{}, errs[0]
	}

	log.Printf("[ENGINE] multi-restart done in %v, best=%d objective=%d", time.Since(start), bestIdx, results[bestIdx].Objective.Total())
	return *results[bestIdx], errs[bestIdx]
}
