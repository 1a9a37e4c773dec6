package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecare/carelinesolver/internal/compat"
	"github.com/homecare/carelinesolver/internal/model"
	"github.com/homecare/carelinesolver/internal/routing"
)

func testMatrices(n, travelSeconds int) model.Matrices {
	size := n + 1
	T := make([][]int, size)
	D := make([][]int, size)
	for i := range T {
		T[i] = make([]int, size)
		D[i] = make([]int, size)
		for j := range T[i] {
			if i != j {
				T[i][j] = travelSeconds
				D[i][j] = travelSeconds * 10
			}
		}
	}
	return model.Matrices{T: T, D: D, NodeIDs: make([]model.NodeID, size)}
}

func TestGenerateAndWriteText(t *testing.T) {
	window := model.Window{StartS: 0, EndS: 3600}
	v, err := model.NewVisit("v1", model.Coordinates{}, 600, window, nil, "")
	require.NoError(t, err)
	w, err := model.NewWorker("w1", nil, 0, model.Window{StartS: 0, EndS: 28800})
	require.NoError(t, err)

	shift, err := model.NewShift(8, 16, 0)
	require.NoError(t, err)
	cfg := model.DefaultSolverConfig()
	cfg.SolverTimeBudget = 0

	in := routing.Input{
		Visits:   []model.Visit{v},
		Workers:  []model.Worker{w},
		Matrices: testMatrices(1, 180),
		Shift:    shift,
		Config:   cfg,
		Oracle:   compat.New(nil),
	}

	sol := model.Solution{
		Routes: []model.Route{
			{
				WorkerID: "w1",
				Stops: []model.Stop{
					{VisitID: "v1", ArrivalS: 180, ServiceStartS: 180, ServiceEndS: 780, DepartureS: 780},
				},
				DepartDepotS: 0,
				ReturnDepotS: 960,
			},
		},
	}

	rep := Generate(sol, in)
	require.Len(t, rep.Timetables, 1)
	tt := rep.Timetables[0]
	assert.Equal(t, 360, tt.TravelSeconds) // two legs of 180s each
	assert.Equal(t, 600, tt.ServiceSeconds)
	assert.Equal(t, 0, tt.WaitSeconds)
	assert.Equal(t, 960, tt.TotalRouteSeconds)
	assert.Equal(t, 3600, tt.DistanceMeters)

	assert.Equal(t, 1, rep.Fleet.ActiveWorkers)
	assert.Equal(t, 960, rep.Fleet.TotalRouteSeconds)

	text := WriteText(rep)
	assert.True(t, strings.Contains(text, "Worker w1"))
	assert.True(t, strings.Contains(text, "08:03")) // 8h + 180s arrival
	assert.True(t, strings.Contains(text, "Fleet summary"))
}
