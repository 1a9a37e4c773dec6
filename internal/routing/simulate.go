package routing

import "github.com/homecare/carelinesolver/internal/model"

// simulator replays a route's arc-time arithmetic against the shared
// matrices/visit set. It is stateless beyond the inputs it's handed, so the
// same simulator instance is reused for every route and every candidate
// move during local search.
type simulator struct {
	visits []model.Visit
	m      model.Matrices
	shift  model.Shift
}

// simulateResult is the outcome of walking an ordered list of visit
// positions as one worker's route.
type simulateResult struct {
	stops           []stop
	cumulativeWaitS int
	returnDepotS    int
	feasible        bool
}

// simulate walks depot -> visits[order[0]] -> ... -> visits[order[k-1]] ->
// depot, computing arrival/service/departure seconds and checking the hard
// constraints from spec §4.4: time window upper bound (service_end <=
// window.end), per-route cumulative wait cap, and route span. The lower
// bound on arrival is treated as soft (spec's resolved early-arrival
// interpretation, see SPEC_FULL.md §9): a worker may arrive before
// window.start and must wait, but that wait counts against the cumulative
// slack cap rather than rejecting the route outright.
func (s *simulator) simulate(order []int, maxStops int) simulateResult {
	if len(order) > maxStops {
		return simulateResult{feasible: false}
	}

	stops := make([]stop, 0, len(order))
	clock := 0
	cumulativeWait := 0
	prevIdx := 0 // depot

	for _, pos := range order {
		v := s.visits[pos]
		idx := visitIndex(pos)
		if !s.m.Reachable(prevIdx, idx) {
			return simulateResult{feasible: false}
		}
		travel := s.m.T[prevIdx][idx]
		arrival := clock + travel
		wait := 0
		if arrival < v.Window.StartS {
			wait = v.Window.StartS - arrival
		}
		serviceStart := arrival + wait
		serviceEnd := serviceStart + v.ServiceSeconds
		if serviceEnd > v.Window.EndS {
			return simulateResult{feasible: false}
		}
		cumulativeWait += wait
		if cumulativeWait > s.shift.MaxWaitSeconds {
			return simulateResult{feasible: false}
		}

		stops = append(stops, stop{
			visitPos:      pos,
			arrivalS:      arrival,
			serviceStartS: serviceStart,
			serviceEndS:   serviceEnd,
			departureS:    serviceEnd,
		})
		clock = serviceEnd
		prevIdx = idx
	}

	returnTravel := 0
	if len(order) > 0 {
		if !s.m.Reachable(prevIdx, 0) {
			return simulateResult{feasible: false}
		}
		returnTravel = s.m.T[prevIdx][0]
	}
	returnDepotS := clock + returnTravel
	if returnDepotS > s.shift.MaxRouteSeconds {
		return simulateResult{feasible: false}
	}

	return simulateResult{
		stops:           stops,
		cumulativeWaitS: cumulativeWait,
		returnDepotS:    returnDepotS,
		feasible:        true,
	}
}

// insertionCost returns the marginal arc-cost (spec §4.4's arc evaluator:
// travel_time(i->j) = T[i][j] + service_seconds(i)) of inserting visitPos
// between the arc order[p-1]->order[p] (p==0 means "at the front", right
// after the depot; p==len(order) means "at the back", right before the
// return to depot).
func (s *simulator) insertionCost(order []int, p, visitPos int) int {
	prevIdx := 0
	if p > 0 {
		prevIdx = visitIndex(order[p-1])
	}
	nextIdx := 0
	if p < len(order) {
		nextIdx = visitIndex(order[p])
	}
	newIdx := visitIndex(visitPos)

	oldArc := s.m.T[prevIdx][nextIdx]
	newArc := s.m.T[prevIdx][newIdx] + s.visits[visitPos].ServiceSeconds + s.m.T[newIdx][nextIdx]
	return newArc - oldArc
}

// bestInsertion searches every position in order for the cheapest feasible
// insertion of visitPos, returning (position, cost, ok).
func (s *simulator) bestInsertion(order []int, visitPos int, maxStops int) (int, int, bool) {
	bestPos := -1
	bestCost := 0
	found := false
	for p := 0; p <= len(order); p++ {
		candidate := insertAt(order, p, visitPos)
		res := s.simulate(candidate, maxStops)
		if !res.feasible {
			continue
		}
		cost := s.insertionCost(order, p, visitPos)
		if !found || cost < bestCost {
			bestCost = cost
			bestPos = p
			found = true
		}
	}
	return bestPos, bestCost, found
}

func insertAt(order []int, p, visitPos int) []int {
	out := make([]int, 0, len(order)+1)
	out = append(out, order[:p]...)
	out = append(out, visitPos)
	out = append(out, order[p:]...)
	return out
}

func removeAt(order []int, p int) []int {
	out := make([]int, 0, len(order)-1)
	out = append(out, order[:p]...)
	out = append(out, order[p+1:]...)
	return out
}

// totalTravel sums the arc evaluator (T[i][j] + service_seconds(i), service
// at the origin charged to the arc) across an ordered route including the
// depot legs, used by the objective.
func (s *simulator) totalTravel(order []int) int {
	if len(order) == 0 {
		return 0
	}
	total := 0
	prevIdx := 0
	prevService := 0
	for _, pos := range order {
		idx := visitIndex(pos)
		total += s.m.T[prevIdx][idx] + prevService
		prevIdx = idx
		prevService = s.visits[pos].ServiceSeconds
	}
	total += s.m.T[prevIdx][0] + prevService
	return total
}
