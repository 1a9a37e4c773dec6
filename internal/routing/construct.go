package routing

import (
	"log"
	"sort"

	"github.com/homecare/carelinesolver/internal/model"
)

// constructor runs the cheapest-insertion construction phase of spec §4.4
// step 1: visits ordered by window start; each visit inserted at the
// position, in any compatible worker's partial route, minimising the
// marginal arc cost while respecting windows/capacity/wait. Visits with no
// feasible insertion land in the pending pool. Grounded on the teacher's
// greedyRouter phased-log structure (internal/routing/greedy.go, "Phase 1:
// Seeding" / "Phase 2: Greedy clustering"), generalised from append-only
// nearest-neighbour growth to a true marginal-cost insertion-position
// search.
type constructor struct {
	in  Input
	sim *simulator
}

// result of construction: one route per worker position (some empty),
// plus visits that still need placement.
type constructionResult struct {
	routes  []*route
	pending []pendingEntry
	dropped []model.DroppedVisit // visits with zero compatible workers
}

func newConstructor(in Input) *constructor {
	return &constructor{
		in: in,
		sim: &simulator{
			visits: in.Visits,
			m:      in.Matrices,
			shift:  in.Shift,
		},
	}
}

func (c *constructor) run() constructionResult {
	log.Printf("[CONSTRUCT] Starting: visits=%d workers=%d", len(c.in.Visits), len(c.in.Workers))

	routes := make([]*route, len(c.in.Workers))
	for i := range routes {
		routes[i] = &route{workerPos: i}
	}

	order := make([]int, len(c.in.Visits))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return c.in.Visits[order[i]].Window.StartS < c.in.Visits[order[j]].Window.StartS
	})

	var pending []pendingEntry
	var dropped []model.DroppedVisit

	// Group visits are handled as a batch so that distinctness across
	// workers can be enforced at insertion time (spec I5).
	groups := groupVisitPositions(c.in.Visits)
	handled := make(map[int]bool)

	for _, pos := range order {
		if handled[pos] {
			continue
		}
		v := c.in.Visits[pos]
		if v.GroupID != "" {
			members := groups[v.GroupID]
			for _, m := range members {
				handled[m] = true
			}
			c.placeGroup(members, routes, &pending, &dropped)
			continue
		}
		handled[pos] = true
		c.placeSingle(pos, routes, &pending, &dropped)
	}

	log.Printf("[CONSTRUCT] Done: seated=%d pending=%d dropped=%d", len(c.in.Visits)-len(pending)-len(dropped), len(pending), len(dropped))
	return constructionResult{routes: routes, pending: pending, dropped: dropped}
}

// groupVisitPositions returns, for each non-empty GroupID, the visit
// positions sharing it.
func groupVisitPositions(visits []model.Visit) map[string][]int {
	groups := make(map[string][]int)
	for i, v := range visits {
		if v.GroupID != "" {
			groups[v.GroupID] = append(groups[v.GroupID], i)
		}
	}
	return groups
}

// compatibleWorkers returns the worker positions fully covering v, and the
// uncovered-token map for every worker (used for penalty computation if the
// visit ends up dropped).
func (c *constructor) compatibleWorkers(v model.Visit) (compatible []int, uncoveredBy map[int][]model.Token) {
	uncoveredBy = make(map[int][]model.Token, len(c.in.Workers))
	for wi, w := range c.in.Workers {
		missing := c.in.Oracle.Uncovered(w, v)
		if len(missing) == 0 {
			compatible = append(compatible, wi)
		} else {
			uncoveredBy[wi] = missing
		}
	}
	return compatible, uncoveredBy
}

// placeSingle attempts to seat one ordinary visit into the cheapest
// feasible position across every compatible worker's partial route.
func (c *constructor) placeSingle(pos int, routes []*route, pending *[]pendingEntry, dropped *[]model.DroppedVisit) {
	v := c.in.Visits[pos]
	compatible, uncoveredBy := c.compatibleWorkers(v)

	if len(compatible) == 0 {
		*dropped = append(*dropped, c.dropConstraintInfeasible(pos, c.minPenaltyUncovered(uncoveredBy)))
		return
	}

	bestWorker, bestPos, bestCost, found := c.cheapestAcross(compatible, routes, pos)
	if !found {
		*pending = append(*pending, pendingEntry{visitPos: pos, compatible: compatible, uncoveredBy: uncoveredBy})
		return
	}
	c.insert(routes[bestWorker], bestPos, pos)
	_ = bestCost
}

// cheapestAcross searches every candidate worker's current route for the
// cheapest feasible insertion position of visitPos.
func (c *constructor) cheapestAcross(candidates []int, routes []*route, visitPos int) (worker, pos, cost int, ok bool) {
	found := false
	bestWorker, bestPos, bestCost := -1, -1, 0
	for _, wi := range candidates {
		maxStops := c.in.Workers[wi].MaxStops
		order := routes[wi].visitPositions()
		p, cst, okHere := c.sim.bestInsertion(order, visitPos, maxStops)
		if !okHere {
			continue
		}
		if !found || cst < bestCost {
			found = true
			bestWorker, bestPos, bestCost = wi, p, cst
		}
	}
	return bestWorker, bestPos, bestCost, found
}

func (c *constructor) insert(r *route, pos, visitPos int) {
	order := insertAt(r.visitPositions(), pos, visitPos)
	res := c.sim.simulate(order, c.in.Workers[r.workerPos].MaxStops)
	r.stops = res.stops
	r.cumulativeWaitS = res.cumulativeWaitS
	r.returnDepotS = res.returnDepotS
}

// placeGroup seats a double-staffed visit group onto m distinct workers
// with overlapping service intervals (I5). Each member is independently
// inserted at its cheapest feasible position on a worker not already used
// by another member of the same group; afterwards the achieved service
// intervals are checked for overlap. If fewer than len(members) distinct
// workers can be found, or the achieved intervals do not overlap, the
// entire group is rolled back and dropped together.
func (c *constructor) placeGroup(members []int, routes []*route, pending *[]pendingEntry, dropped *[]model.DroppedVisit) {
	used := make(map[int]bool)
	placements := make([]placement, 0, len(members))

	for _, pos := range members {
		v := c.in.Visits[pos]
		compatible, uncoveredBy := c.compatibleWorkers(v)
		var free []int
		for _, wi := range compatible {
			if !used[wi] {
				free = append(free, wi)
			}
		}
		if len(free) == 0 {
			for _, pl := range placements {
				c.remove(routes[pl.worker], v.GroupID)
			}
			c.dropGroup(members, dropped, uncoveredBy)
			return
		}
		wi, p, _, found := c.cheapestAcross(free, routes, pos)
		if !found {
			// no still-free compatible worker has a feasible slot: roll back
			// the members already seated and drop the whole group together.
			for _, pl := range placements {
				c.remove(routes[pl.worker], v.GroupID)
			}
			c.dropGroup(members, dropped, uncoveredBy)
			return
		}
		used[wi] = true
		placements = append(placements, placement{wi, p})
		c.insert(routes[wi], p, pos)
	}

	if !c.groupOverlaps(members, routes, placements) {
		for _, pl := range placements {
			c.remove(routes[pl.worker], c.in.Visits[members[0]].GroupID)
		}
		for _, pos := range members {
			*dropped = append(*dropped, model.DroppedVisit{
				VisitID: c.in.Visits[pos].ID,
				Reason:  "double-staffing interval could not be synchronised",
				Penalty: 0,
			})
		}
	}
}

// remove takes every stop belonging to groupID out of r and re-simulates.
func (c *constructor) remove(r *route, groupID string) {
	order := r.visitPositions()
	filtered := order[:0]
	for _, pos := range order {
		if c.in.Visits[pos].GroupID != groupID {
			filtered = append(filtered, pos)
		}
	}
	res := c.sim.simulate(filtered, c.in.Workers[r.workerPos].MaxStops)
	r.stops = res.stops
	r.cumulativeWaitS = res.cumulativeWaitS
	r.returnDepotS = res.returnDepotS
}

func (c *constructor) groupOverlaps(members []int, routes []*route, placements []placement) bool {
	var starts, ends []int
	for i, pos := range members {
		r := routes[placements[i].worker]
		for _, s := range r.stops {
			if s.visitPos == pos {
				starts = append(starts, s.serviceStartS)
				ends = append(ends, s.serviceEndS)
			}
		}
	}
	if len(starts) != len(members) {
		return false
	}
	// overlapping iff max(starts) < min(ends).
	maxStart, minEnd := starts[0], ends[0]
	for i := 1; i < len(starts); i++ {
		if starts[i] > maxStart {
			maxStart = starts[i]
		}
		if ends[i] < minEnd {
			minEnd = ends[i]
		}
	}
	return maxStart < minEnd
}

func (c *constructor) dropGroup(members []int, dropped *[]model.DroppedVisit, uncoveredBy map[int][]model.Token) {
	penalty := c.minPenaltyUncovered(uncoveredBy)
	for _, pos := range members {
		*dropped = append(*dropped, c.dropConstraintInfeasible(pos, penalty))
	}
}

func (c *constructor) dropConstraintInfeasible(pos int, best *bestUncovered) model.DroppedVisit {
	compatible, _ := c.compatibleWorkers(c.in.Visits[pos])
	reason := c.dropReason(pos, len(compatible) == 0)
	if best == nil {
		return model.DroppedVisit{VisitID: c.in.Visits[pos].ID, Reason: reason, Penalty: 0}
	}
	return model.DroppedVisit{
		VisitID:   c.in.Visits[pos].ID,
		Reason:    reason,
		Uncovered: best.tokens,
		Penalty:   c.in.Oracle.Penalty(best.tokens),
	}
}

// dropReason distinguishes why a visit could not be seated, per spec §4.1's
// drop-reason taxonomy: an unreachable depot<->visit arc is reported as
// "UnroutableGraph" regardless of compatibility; otherwise a visit with no
// covering worker is "constraint-infeasible"; a visit with a covering
// worker that still couldn't fit any route is "schedule-infeasible".
func (c *constructor) dropReason(pos int, noCompatibleWorker bool) string {
	idx := visitIndex(pos)
	if !c.in.Matrices.Reachable(0, idx) || !c.in.Matrices.Reachable(idx, 0) {
		return "UnroutableGraph"
	}
	if noCompatibleWorker {
		return "constraint-infeasible"
	}
	return "schedule-infeasible"
}

type bestUncovered struct {
	worker int
	tokens []model.Token
}

// placement records where a group member was seated, for rollback/overlap
// checks.
type placement struct {
	worker, pos int
}

// minPenaltyUncovered picks the worker whose missing-token set is
// cheapest to waive, matching "penalty reflecting severity of the missing
// capabilities" — a visit is scored against its best (least bad) worker.
// Worker positions are visited in ascending order (not map order) so that
// a tie between two equally-bad workers always resolves to the same one
// (spec P8: determinism must not depend on Go's randomised map iteration).
func (c *constructor) minPenaltyUncovered(uncoveredBy map[int][]model.Token) *bestUncovered {
	wis := make([]int, 0, len(uncoveredBy))
	for wi := range uncoveredBy {
		wis = append(wis, wi)
	}
	sort.Ints(wis)

	var best *bestUncovered
	bestCost := -1
	for _, wi := range wis {
		tokens := uncoveredBy[wi]
		cost := c.in.Oracle.Penalty(tokens)
		if best == nil || cost < bestCost {
			best = &bestUncovered{worker: wi, tokens: tokens}
			bestCost = cost
		}
	}
	return best
}
