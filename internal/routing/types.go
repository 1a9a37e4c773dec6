// Package routing implements the constrained VRP-with-time-windows engine
// (spec §4.4): cheapest-insertion construction, a tabu-guarded local-search
// improvement loop, and a finalisation pass, orchestrated as the state
// machine Building -> Constructed -> Improving* -> Finalised (with early
// termination -> Infeasible, and cooperative -> Cancelled).
package routing

import (
	"github.com/homecare/carelinesolver/internal/compat"
	"github.com/homecare/carelinesolver/internal/model"
)

// Input bundles everything the engine needs for one Solve call. Matrices
// are indexed depot=0, visits=1..N in the order Visits is given.
type Input struct {
	Visits   []model.Visit
	Workers  []model.Worker
	Matrices model.Matrices
	Shift    model.Shift
	Config   model.SolverConfig
	Oracle   *compat.Oracle
}

// visitIndex returns the 1-based matrix index for visits[i].
func visitIndex(i int) int { return i + 1 }

// stop is one scheduled visit within a route under construction, keyed by
// its position in Input.Visits (not the matrix index, for readability).
type stop struct {
	visitPos      int
	arrivalS      int
	serviceStartS int
	serviceEndS   int
	departureS    int
}

// route is one worker's in-progress tour.
type route struct {
	workerPos       int
	stops           []stop
	cumulativeWaitS int
	returnDepotS    int
}

func (r *route) visitPositions() []int {
	out := make([]int, len(r.stops))
	for i, s := range r.stops {
		out[i] = s.visitPos
	}
	return out
}

// pendingEntry tracks a visit that construction could not seat, along with
// the compatible-worker set computed once up front.
type pendingEntry struct {
	visitPos    int
	compatible  []int // worker positions that fully cover this visit
	uncoveredBy map[int][]model.Token
}
