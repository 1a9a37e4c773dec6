package routing

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// improver runs the tabu-guarded local search of spec §4.4 step 2: relocate
// (move one visit to a different position, same or another route), 2-opt
// (reverse a segment within one route), and cross-exchange (swap one visit
// between two routes), under a wall-clock budget and cooperative
// cancellation. Grounded on the teacher's phase-timed improvement loop
// (internal/routing/distance_minimizer.go's twoOpt/interRouteOptimize),
// generalised from pure-distance deltas to the full feasibility-gated arc
// evaluator and extended with tabu tenure so the search doesn't cycle
// between the same two states.
type improver struct {
	in   Input
	sim  *simulator
	obj  *objective
	tabu *tabuList
	rng  *rand.Rand
}

func newImprover(in Input, sim *simulator, rng *rand.Rand) *improver {
	return &improver{
		in:   in,
		sim:  sim,
		obj:  newObjective(in.Config, sim),
		tabu: newTabuList(10),
		rng:  rng,
	}
}

// move is one proposed local-search step: apply mutates routes in place,
// undo reverts it. delta is the change in total travel cost across the
// routes touched, used to rank candidates.
type move struct {
	visitKey int
	delta    int
	apply    func()
	undo     func()
}

// run executes the loop until ctx is cancelled or the time budget elapses,
// always returning the best feasible routes observed (which may be the
// starting point if no improving, non-tabu move was ever found), plus
// whether the loop exited because the wall-clock budget ran out rather than
// by cancellation or natural convergence (spec §4.4's BudgetExhausted
// result variant).
func (imp *improver) run(ctx context.Context, routes []*route, dropPenalty int) (best []*route, exhausted bool) {
	start := time.Now()
	deadline := start.Add(imp.in.Config.SolverTimeBudget)

	best = cloneRoutes(routes)
	bestCost := imp.obj.evaluate(best, dropPenalty).Total()

	iterations := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("[IMPROVE] cancelled after %d iterations, best_cost=%d", iterations, bestCost)
			return best, false
		default:
		}
		if time.Now().After(deadline) {
			log.Printf("[IMPROVE] time budget exhausted after %d iterations, best_cost=%d", iterations, bestCost)
			return best, true
		}

		candidates := imp.candidates(routes)
		if len(candidates) == 0 {
			break
		}

		chosen, ok := imp.pick(candidates, routes, dropPenalty, bestCost)
		if !ok {
			break
		}

		chosen.apply()
		cost := imp.obj.evaluate(routes, dropPenalty).Total()
		if cost >= bestCost {
			// a move is accepted only if it strictly lowers the objective.
			chosen.undo()
			break
		}
		imp.tabu.forbid(chosen.visitKey)
		imp.tabu.decay()

		bestCost = cost
		best = cloneRoutes(routes)
		iterations++
	}

	log.Printf("[IMPROVE] converged after %d iterations in %v, best_cost=%d", iterations, time.Since(start), bestCost)
	return best, false
}

// pick selects the lowest-delta candidate that is either not tabu, or tabu
// but whose resulting total cost beats the best solution found so far
// (the standard aspiration criterion).
func (imp *improver) pick(candidates []move, routes []*route, dropPenalty, bestCost int) (move, bool) {
	bestIdx := -1
	bestDelta := 0
	for i, c := range candidates {
		if imp.tabu.isTabu(c.visitKey) {
			c.apply()
			aspirational := imp.obj.evaluate(routes, dropPenalty).Total() < bestCost
			c.undo()
			if !aspirational {
				continue
			}
		}
		if bestIdx == -1 || c.delta < bestDelta {
			bestIdx = i
			bestDelta = c.delta
		}
	}
	if bestIdx == -1 {
		return move{}, false
	}
	return candidates[bestIdx], true
}

// candidates generates every relocate, 2-opt and cross-exchange move that
// is feasible from the current routes.
func (imp *improver) candidates(routes []*route) []move {
	var out []move
	out = append(out, imp.relocateMoves(routes)...)
	out = append(out, imp.twoOptMoves(routes)...)
	out = append(out, imp.crossExchangeMoves(routes)...)
	// Shuffle so that ties in delta break differently run to run while
	// remaining reproducible for a fixed seed (P8).
	imp.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// isGrouped reports whether visitPos belongs to a double-staffing group.
// Grouped visits are frozen by local search: any move that changes one
// member's timing risks breaking the cross-route service-interval overlap
// construction already achieved (I5), and the improver has no notion of
// the other member's route to re-synchronise against.
func (imp *improver) isGrouped(visitPos int) bool {
	return imp.in.Visits[visitPos].GroupID != ""
}

// relocateMoves tries moving every stop to every other feasible position,
// in its own route or any other worker's route.
func (imp *improver) relocateMoves(routes []*route) []move {
	var out []move
	for i, ri := range routes {
		orderI := ri.visitPositions()
		for p, visitPos := range orderI {
			if imp.isGrouped(visitPos) {
				continue
			}
			withoutI := removeAt(orderI, p)
			oldCostI := imp.sim.totalTravel(orderI)

			for j, rj := range routes {
				maxStops := imp.in.Workers[rj.workerPos].MaxStops
				orderJ := rj.visitPositions()
				baseJ := orderJ
				if i == j {
					baseJ = withoutI
				}
				oldCostJ := imp.sim.totalTravel(rj.visitPositions())

				for q := 0; q <= len(baseJ); q++ {
					if i == j && q == p {
						continue // no-op
					}
					candidateJ := insertAt(baseJ, q, visitPos)
					resJ := imp.sim.simulate(candidateJ, maxStops)
					if !resJ.feasible {
						continue
					}
					var resI simulateResult
					if i != j {
						resI = imp.sim.simulate(withoutI, imp.in.Workers[ri.workerPos].MaxStops)
						if !resI.feasible {
							continue
						}
					}

					newCostJ := imp.sim.totalTravel(candidateJ)
					delta := (newCostJ - oldCostJ)
					if i != j {
						newCostI := imp.sim.totalTravel(withoutI)
						delta += newCostI - oldCostI
					}

					ri, rj, stopsI, stopsJ := ri, rj, resI.stops, resJ.stops
					out = append(out, move{
						visitKey: visitPos,
						delta:    delta,
						apply: func() {
							if i != j {
								ri.stops = stopsI
								ri.cumulativeWaitS = resI.cumulativeWaitS
								ri.returnDepotS = resI.returnDepotS
							}
							rj.stops = stopsJ
							rj.cumulativeWaitS = resJ.cumulativeWaitS
							rj.returnDepotS = resJ.returnDepotS
						},
						undo: func() {},
					})
				}
			}
		}
	}
	return imp.withUndo(out, routes)
}

// twoOptMoves reverses every segment within each single route.
func (imp *improver) twoOptMoves(routes []*route) []move {
	var out []move
	for _, r := range routes {
		order := r.visitPositions()
		maxStops := imp.in.Workers[r.workerPos].MaxStops
		oldCost := imp.sim.totalTravel(order)
		for i := 0; i < len(order)-1; i++ {
			for j := i + 1; j < len(order); j++ {
				if segmentHasGrouped(imp, order, i, j) {
					continue
				}
				reversed := reverseSegment(order, i, j)
				res := imp.sim.simulate(reversed, maxStops)
				if !res.feasible {
					continue
				}
				newCost := imp.sim.totalTravel(reversed)
				delta := newCost - oldCost
				r := r
				stops := res.stops
				out = append(out, move{
					visitKey: order[i],
					delta:    delta,
					apply: func() {
						r.stops = stops
						r.cumulativeWaitS = res.cumulativeWaitS
						r.returnDepotS = res.returnDepotS
					},
					undo: func() {},
				})
			}
		}
	}
	return imp.withUndo(out, routes)
}

// crossExchangeMoves swaps one stop between two different routes.
func (imp *improver) crossExchangeMoves(routes []*route) []move {
	var out []move
	for i := 0; i < len(routes); i++ {
		for j := i + 1; j < len(routes); j++ {
			ri, rj := routes[i], routes[j]
			orderI, orderJ := ri.visitPositions(), rj.visitPositions()
			oldCostI, oldCostJ := imp.sim.totalTravel(orderI), imp.sim.totalTravel(orderJ)
			maxI, maxJ := imp.in.Workers[ri.workerPos].MaxStops, imp.in.Workers[rj.workerPos].MaxStops

			for pi, vi := range orderI {
				if imp.isGrouped(vi) {
					continue
				}
				for pj, vj := range orderJ {
					if imp.isGrouped(vj) {
						continue
					}
					newI := append(append([]int{}, orderI[:pi]...), append([]int{vj}, orderI[pi+1:]...)...)
					newJ := append(append([]int{}, orderJ[:pj]...), append([]int{vi}, orderJ[pj+1:]...)...)

					resI := imp.sim.simulate(newI, maxI)
					if !resI.feasible {
						continue
					}
					resJ := imp.sim.simulate(newJ, maxJ)
					if !resJ.feasible {
						continue
					}

					delta := (imp.sim.totalTravel(newI) - oldCostI) + (imp.sim.totalTravel(newJ) - oldCostJ)
					ri, rj := ri, rj
					stopsI, stopsJ := resI.stops, resJ.stops
					out = append(out, move{
						visitKey: vi,
						delta:    delta,
						apply: func() {
							ri.stops = stopsI
							ri.cumulativeWaitS = resI.cumulativeWaitS
							ri.returnDepotS = resI.returnDepotS
							rj.stops = stopsJ
							rj.cumulativeWaitS = resJ.cumulativeWaitS
							rj.returnDepotS = resJ.returnDepotS
						},
						undo: func() {},
					})
				}
			}
		}
	}
	return imp.withUndo(out, routes)
}

// withUndo replaces every candidate's undo with one that restores a
// snapshot of every route taken before apply ran, since the per-move undo
// closures above don't capture pre-image state (apply is only ever invoked
// through pick's apply/undo probe or run's single committed move, both of
// which restore from a full route snapshot rather than an inline undo).
func (imp *improver) withUndo(moves []move, routes []*route) []move {
	if len(moves) == 0 {
		return moves
	}
	snapshot := cloneRoutes(routes)
	for i := range moves {
		moves[i].undo = func() {
			restoreRoutes(routes, snapshot)
		}
	}
	return moves
}

// segmentHasGrouped reports whether order[i..j] contains any grouped visit,
// guarding 2-opt's segment reversal the same way relocate/cross-exchange
// are guarded.
func segmentHasGrouped(imp *improver, order []int, i, j int) bool {
	for k := i; k <= j; k++ {
		if imp.isGrouped(order[k]) {
			return true
		}
	}
	return false
}

func reverseSegment(order []int, i, j int) []int {
	out := append([]int{}, order...)
	for i < j {
		out[i], out[j] = out[j], out[i]
		i++
		j--
	}
	return out
}

func cloneStops(stops []stop) []stop {
	out := make([]stop, len(stops))
	copy(out, stops)
	return out
}

// cloneRoutes deep-copies the stop slices of every route so a later
// mutation of the live routes doesn't corrupt a saved snapshot.
func cloneRoutes(routes []*route) []*route {
	out := make([]*route, len(routes))
	for i, r := range routes {
		out[i] = &route{
			workerPos:       r.workerPos,
			stops:           cloneStops(r.stops),
			cumulativeWaitS: r.cumulativeWaitS,
			returnDepotS:    r.returnDepotS,
		}
	}
	return out
}

// restoreRoutes copies every field of snapshot back into the live routes
// slice in place (same worker ordering, same length, by construction).
func restoreRoutes(routes []*route, snapshot []*route) {
	for i, r := range routes {
		r.stops = cloneStops(snapshot[i].stops)
		r.cumulativeWaitS = snapshot[i].cumulativeWaitS
		r.returnDepotS = snapshot[i].returnDepotS
	}
}
