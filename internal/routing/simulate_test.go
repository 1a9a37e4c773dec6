package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecare/carelinesolver/internal/model"
)

// testMatrices builds a trivial N-point matrix where every arc costs
// travelSeconds, used across routing tests so the arithmetic under test
// stays easy to hand-verify.
func testMatrices(n, travelSeconds int) model.Matrices {
	T := make([][]int, n)
	D := make([][]int, n)
	for i := range T {
		T[i] = make([]int, n)
		D[i] = make([]int, n)
		for j := range T[i] {
			if i != j {
				T[i][j] = travelSeconds
				D[i][j] = travelSeconds * 10
			}
		}
	}
	return model.Matrices{T: T, D: D}
}

func mustVisit(t *testing.T, id string, serviceSeconds int, window model.Window) model.Visit {
	t.Helper()
	v, err := model.NewVisit(id, model.Coordinates{}, serviceSeconds, window, nil, "")
	require.NoError(t, err)
	return v
}

func mustShift(t *testing.T, maxWaitSeconds int) model.Shift {
	t.Helper()
	s, err := model.NewShift(8, 16, maxWaitSeconds)
	require.NoError(t, err)
	return s
}

func TestSimulateFeasibleRoute(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 0, EndS: 28800}),
		mustVisit(t, "v2", 600, model.Window{StartS: 0, EndS: 28800}),
	}
	sim := &simulator{visits: visits, m: testMatrices(3, 300), shift: mustShift(t, 3600)}

	res := sim.simulate([]int{0, 1}, 20)
	require.True(t, res.feasible)
	require.Len(t, res.stops, 2)
	assert.Equal(t, 300, res.stops[0].arrivalS)
	assert.Equal(t, 300, res.stops[0].serviceStartS)
	assert.Equal(t, 900, res.stops[0].serviceEndS)
	assert.Equal(t, 1200, res.stops[1].arrivalS)
}

func TestSimulateRejectsWindowViolation(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 0, EndS: 100}),
	}
	sim := &simulator{visits: visits, m: testMatrices(2, 300), shift: mustShift(t, 3600)}

	res := sim.simulate([]int{0}, 20)
	assert.False(t, res.feasible)
}

func TestSimulateEarlyArrivalWaits(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 1000, EndS: 28800}),
	}
	sim := &simulator{visits: visits, m: testMatrices(2, 300), shift: mustShift(t, 3600)}

	res := sim.simulate([]int{0}, 20)
	require.True(t, res.feasible)
	assert.Equal(t, 300, res.stops[0].arrivalS)
	assert.Equal(t, 1000, res.stops[0].serviceStartS)
	assert.Equal(t, 700, res.cumulativeWaitS)
}

func TestSimulateRejectsExcessiveWait(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 10000, EndS: 28800}),
	}
	sim := &simulator{visits: visits, m: testMatrices(2, 300), shift: mustShift(t, 100)}

	res := sim.simulate([]int{0}, 20)
	assert.False(t, res.feasible)
}

func TestSimulateRejectsTooManyStops(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 0, EndS: 28800}),
		mustVisit(t, "v2", 600, model.Window{StartS: 0, EndS: 28800}),
	}
	sim := &simulator{visits: visits, m: testMatrices(3, 300), shift: mustShift(t, 3600)}

	res := sim.simulate([]int{0, 1}, 1)
	assert.False(t, res.feasible)
}

func TestSimulateRejectsUnreachableArc(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 0, EndS: 28800}),
	}
	m := testMatrices(2, 300)
	m.T[0][1] = model.Sentinel
	sim := &simulator{visits: visits, m: m, shift: mustShift(t, 3600)}

	res := sim.simulate([]int{0}, 20)
	assert.False(t, res.feasible)
}

func TestTotalTravelChargesOriginServiceToArc(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 0, EndS: 28800}),
		mustVisit(t, "v2", 300, model.Window{StartS: 0, EndS: 28800}),
	}
	sim := &simulator{visits: visits, m: testMatrices(3, 100), shift: mustShift(t, 3600)}

	// depot->v1 (100) + v1 service (600) + v1->v2 (100) + v2 service (300) + v2->depot (100)
	assert.Equal(t, 100+600+100+300+100, sim.totalTravel([]int{0, 1}))
}

func TestBestInsertionPicksCheapestFeasiblePosition(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 0, model.Window{StartS: 0, EndS: 28800}),
		mustVisit(t, "v2", 0, model.Window{StartS: 0, EndS: 28800}),
	}
	sim := &simulator{visits: visits, m: testMatrices(3, 100), shift: mustShift(t, 3600)}

	pos, _, ok := sim.bestInsertion([]int{0}, 1, 20)
	require.True(t, ok)
	assert.True(t, pos == 0 || pos == 1)
}

func TestInsertAtAndRemoveAtRoundtrip(t *testing.T) {
	order := []int{1, 3, 5}
	inserted := insertAt(order, 1, 9)
	assert.Equal(t, []int{1, 9, 3, 5}, inserted)
	removed := removeAt(inserted, 1)
	assert.Equal(t, order, removed)
}
