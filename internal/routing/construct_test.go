package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecare/carelinesolver/internal/compat"
	"github.com/homecare/carelinesolver/internal/model"
)

func mustWorker(t *testing.T, id string, caps []model.Token) model.Worker {
	t.Helper()
	w, err := model.NewWorker(id, caps, 20, model.Window{StartS: 0, EndS: 28800})
	require.NoError(t, err)
	return w
}

func TestConstructSeatsSimpleVisit(t *testing.T) {
	visits := []model.Visit{
		mustVisit(t, "v1", 600, model.Window{StartS: 0, EndS: 28800}),
	}
	workers := []model.Worker{mustWorker(t, "w1", nil)}
	in := Input{
		Visits:   visits,
		Workers:  workers,
		Matrices: testMatrices(2, 300),
		Shift:    mustShift(t, 3600),
		Config:   model.DefaultSolverConfig(),
		Oracle:   compat.New(nil),
	}

	res := newConstructor(in).run()
	require.Empty(t, res.dropped)
	require.Empty(t, res.pending)
	require.Len(t, res.routes[0].stops, 1)
}

func TestConstructDropsIncompatibleVisit(t *testing.T) {
	v, err := model.NewVisit("v1", model.Coordinates{}, 600, model.Window{StartS: 0, EndS: 28800}, []model.Token{model.TokenLicense}, "")
	require.NoError(t, err)
	workers := []model.Worker{mustWorker(t, "w1", nil)} // no license capability

	in := Input{
		Visits:   []model.Visit{v},
		Workers:  workers,
		Matrices: testMatrices(2, 300),
		Shift:    mustShift(t, 3600),
		Config:   model.DefaultSolverConfig(),
		Oracle:   compat.New(nil),
	}

	res := newConstructor(in).run()
	require.Len(t, res.dropped, 1)
	assert.Equal(t, "v1", res.dropped[0].VisitID)
	assert.Equal(t, model.DefaultPenaltyTable[model.TokenLicense], res.dropped[0].Penalty)
}

func TestConstructHandlesDoubleStaffingGroup(t *testing.T) {
	window := model.Window{StartS: 0, EndS: 28800}
	v1, err := model.NewVisit("v1", model.Coordinates{}, 600, window, nil, "g1")
	require.NoError(t, err)
	v2, err := model.NewVisit("v2", model.Coordinates{}, 600, window, nil, "g1")
	require.NoError(t, err)
	// The uniform matrix puts both group members the same travel time from
	// the depot, so their service intervals can actually overlap.
	visits := []model.Visit{v1, v2}

	workers := []model.Worker{mustWorker(t, "w1", nil), mustWorker(t, "w2", nil)}
	m := testMatrices(3, 100)
	// Both visits sit at the same distance from depot and from each other
	// is irrelevant here since each worker only ever carries one of them.
	in := Input{
		Visits:   visits,
		Workers:  workers,
		Matrices: m,
		Shift:    mustShift(t, 3600),
		Config:   model.DefaultSolverConfig(),
		Oracle:   compat.New(nil),
	}

	res := newConstructor(in).run()
	seated := 0
	for _, r := range res.routes {
		seated += len(r.stops)
	}
	// Either both members land on distinct workers with overlapping service
	// (since both windows/arrival times are identical, they do), or the
	// group is dropped together — never partially seated.
	if seated > 0 {
		assert.Equal(t, 2, seated)
	} else {
		require.Len(t, res.dropped, 2)
	}
}

func TestValidateGroupsRejectsSingleMemberGroup(t *testing.T) {
	v, err := model.NewVisit("v1", model.Coordinates{}, 600, model.Window{StartS: 0, EndS: 28800}, nil, "solo-group")
	require.NoError(t, err)
	err = model.ValidateGroups([]model.Visit{v})
	assert.Error(t, err)
}
