package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecare/carelinesolver/internal/compat"
	"github.com/homecare/carelinesolver/internal/model"
)

// propertyFixture builds a moderately-sized random-ish scenario (fixed, not
// actually randomised, so the property checks below stay deterministic)
// used to exercise P1-P8 against one solved Solution.
func propertyFixture(t *testing.T) Input {
	t.Helper()
	window := model.Window{StartS: 0, EndS: 28800}
	visits := []model.Visit{
		mustVisit(t, "v1", 600, window),
		mustVisit(t, "v2", 600, window),
		mustVisit(t, "v3", 600, window),
		mustVisit(t, "v4", 600, window),
	}
	workers := []model.Worker{
		mustWorker(t, "w1", nil),
		mustWorker(t, "w2", nil),
	}
	return Input{
		Visits:   visits,
		Workers:  workers,
		Matrices: testMatrices(5, 200),
		Shift:    mustShift(t, 3600),
		Config:   shortBudgetConfig(),
		Oracle:   compat.New(nil),
	}
}

func TestPropertyPartition(t *testing.T) {
	in := propertyFixture(t)
	sol, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			require.False(t, seen[s.VisitID], "visit %s serviced twice", s.VisitID)
			seen[s.VisitID] = true
		}
	}
	for _, d := range sol.Dropped {
		require.False(t, seen[d.VisitID], "visit %s both serviced and dropped", d.VisitID)
		seen[d.VisitID] = true
	}
	assert.Len(t, seen, len(in.Visits))
}

func TestPropertyCompatibility(t *testing.T) {
	v, err := model.NewVisit("v1", model.Coordinates{}, 600, model.Window{StartS: 0, EndS: 28800}, []model.Token{model.TokenLicense}, "")
	require.NoError(t, err)
	in := Input{
		Visits:   []model.Visit{v},
		Workers:  []model.Worker{mustWorker(t, "w1", []model.Token{model.TokenLicense})},
		Matrices: testMatrices(2, 200),
		Shift:    mustShift(t, 3600),
		Config:   shortBudgetConfig(),
		Oracle:   compat.New(nil),
	}
	sol, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)
	require.Len(t, sol.Routes, 1)
	for range sol.Routes[0].Stops {
		assert.True(t, in.Oracle.Covers(in.Workers[0], v))
	}
}

func TestPropertyWindow(t *testing.T) {
	in := propertyFixture(t)
	sol, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)

	byID := make(map[string]model.Visit, len(in.Visits))
	for _, v := range in.Visits {
		byID[v.ID] = v
	}
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			v := byID[s.VisitID]
			assert.LessOrEqual(t, v.Window.StartS, s.ServiceStartS)
			assert.LessOrEqual(t, s.ServiceStartS, s.ServiceEndS)
			assert.LessOrEqual(t, s.ServiceEndS, v.Window.EndS)
		}
	}
}

func TestPropertySpan(t *testing.T) {
	in := propertyFixture(t)
	sol, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)

	for _, r := range sol.Routes {
		assert.LessOrEqual(t, r.ReturnDepotS, in.Shift.MaxRouteSeconds)
		worker := findWorker(in.Workers, r.WorkerID)
		assert.LessOrEqual(t, r.StopCount(), worker.MaxStops)
	}
}

func findWorker(workers []model.Worker, id string) model.Worker {
	for _, w := range workers {
		if w.ID == id {
			return w
		}
	}
	return model.Worker{}
}

func TestPropertyGroupIntegrity(t *testing.T) {
	window := model.Window{StartS: 0, EndS: 28800}
	v1, err := model.NewVisit("v1", model.Coordinates{}, 600, window, nil, "g1")
	require.NoError(t, err)
	v2, err := model.NewVisit("v2", model.Coordinates{}, 600, window, nil, "g1")
	require.NoError(t, err)

	in := Input{
		Visits:   []model.Visit{v1, v2},
		Workers:  []model.Worker{mustWorker(t, "w1", nil), mustWorker(t, "w2", nil)},
		Matrices: testMatrices(3, 100),
		Shift:    mustShift(t, 3600),
		Config:   shortBudgetConfig(),
		Oracle:   compat.New(nil),
	}
	sol, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)

	count := 0
	for _, r := range sol.Routes {
		for _, s := range r.Stops {
			if s.VisitID == "v1" || s.VisitID == "v2" {
				count++
			}
		}
	}
	assert.True(t, count == 0 || count == 2, "group g1 appeared %d times, want 0 or 2", count)
}

func TestPropertyMatrixDiagonalAndFloor(t *testing.T) {
	in := propertyFixture(t)
	for i := 0; i < in.Matrices.N()+1; i++ {
		assert.Equal(t, 0, in.Matrices.T[i][i])
	}
	for i := 0; i < in.Matrices.N()+1; i++ {
		for j := 0; j < in.Matrices.N()+1; j++ {
			if i == j {
				continue
			}
			if in.Matrices.Reachable(i, j) {
				assert.GreaterOrEqual(t, in.Matrices.T[i][j], in.Config.PerHopOverheadS)
			}
		}
	}
}

func TestPropertyMonotoneCostRegression(t *testing.T) {
	window := model.Window{StartS: 0, EndS: 28800}
	visits := []model.Visit{
		mustVisit(t, "v1", 300, window),
		mustVisit(t, "v2", 300, window),
		mustVisit(t, "v3", 300, window),
	}
	workers := make([]model.Worker, 10)
	for i := range workers {
		workers[i] = mustWorker(t, string(rune('a'+i)), nil)
	}
	in := Input{
		Visits:   visits,
		Workers:  workers,
		Matrices: testMatrices(4, 50),
		Shift:    mustShift(t, 3600),
		Config:   shortBudgetConfig(),
		Oracle:   compat.New(nil),
	}

	solLow, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)

	doubled := in
	doubled.Config.VehicleFixedCost *= 2
	solHigh, _, err := New(doubled).Solve(context.Background())
	require.NoError(t, err)

	assert.LessOrEqual(t, solHigh.ActiveWorkerCount(), solLow.ActiveWorkerCount())
}

func TestPropertyDeterminism(t *testing.T) {
	in := propertyFixture(t)
	in.Config.Seed = 42

	sol1, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)
	sol2, _, err := New(in).Solve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, sol1.Objective, sol2.Objective)
	assert.Equal(t, len(sol1.Routes), len(sol2.Routes))
	assert.Equal(t, len(sol1.Dropped), len(sol2.Dropped))
}
