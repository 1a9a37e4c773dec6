package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecare/carelinesolver/internal/model"
)

func TestWriteJSONRoundtrips(t *testing.T) {
	sol := model.Solution{
		Routes: []model.Route{
			{
				WorkerID: "w1",
				Stops: []model.Stop{
					{VisitID: "v1", ArrivalS: 100, ServiceStartS: 100, ServiceEndS: 200, DepartureS: 200},
				},
				ReturnDepotS: 300,
			},
		},
		Dropped: []model.DroppedVisit{
			{VisitID: "v2", Reason: "constraint-infeasible", Uncovered: []model.Token{model.TokenLicense}, Penalty: 500},
		},
		Objective: model.ObjectiveBreakdown{FixedCostTotal: 10000, TravelTimeTotal: 300, DropPenaltyTotal: 500},
	}

	path := filepath.Join(t.TempDir(), "solution.json")
	require.NoError(t, WriteJSON("run-123", sol, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec solutionRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "run-123", rec.RunID)
	require.Len(t, rec.Routes, 1)
	assert.Equal(t, "w1", rec.Routes[0].WorkerID)
	require.Len(t, rec.Dropped, 1)
	assert.Equal(t, 500, rec.Dropped[0].Penalty)
	assert.Equal(t, 10800, rec.Objective.Total)
}
