package routing

import (
	"github.com/samber/lo"

	"github.com/homecare/carelinesolver/internal/model"
)

// objective computes the lexicographic-weighted cost of spec §4.4: fixed
// vehicle cost for every active route, total travel time (arc evaluator,
// service time charged to the departing stop), drop penalty for every
// unseated visit, and the early-arrival soft slack accumulated across every
// stop. All four terms share one unit (seconds-equivalent cost) so they sum
// into a single scalar the solver can compare directly.
type objective struct {
	cfg model.SolverConfig
	sim *simulator
}

func newObjective(cfg model.SolverConfig, sim *simulator) *objective {
	return &objective{cfg: cfg, sim: sim}
}

// evaluate scores a full set of routes plus whatever is left pending/dropped.
func (o *objective) evaluate(routes []*route, pendingPenalty int) model.ObjectiveBreakdown {
	activeRoutes := lo.Filter(routes, func(r *route, _ int) bool { return len(r.stops) > 0 })

	fixedCost := len(activeRoutes) * o.cfg.VehicleFixedCost

	travelTotal := lo.SumBy(activeRoutes, func(r *route) int {
		return o.sim.totalTravel(r.visitPositions())
	})

	earlySlack := lo.SumBy(activeRoutes, func(r *route) int {
		return o.routeEarlySlack(r)
	})

	return model.ObjectiveBreakdown{
		FixedCostTotal:   fixedCost,
		TravelTimeTotal:  travelTotal,
		DropPenaltyTotal: pendingPenalty,
		EarlySlackTotal:  earlySlack,
	}
}

// routeEarlySlack sums, per stop, the wait between arrival and the moment
// service actually starts — exactly the early-arrival soft penalty base
// from spec §4.4's objective.
func (o *objective) routeEarlySlack(r *route) int {
	total := 0
	for _, s := range r.stops {
		if wait := s.serviceStartS - s.arrivalS; wait > 0 {
			total += wait
		}
	}
	return total
}

// droppedPenalty sums the penalty of every dropped visit plus every visit
// still sitting in pending once the solver gives up placing it.
func droppedPenalty(dropped []model.DroppedVisit) int {
	return lo.SumBy(dropped, func(d model.DroppedVisit) int { return d.Penalty })
}
