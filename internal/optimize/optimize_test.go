package optimize

import (
	"context"
	"testing"

	"github.com/jra3/scheduled/internal/model"
	"github.com/stretchr/testify/require"
)

func chainTask(id, outline string, hours int) model.Task {
	return model.Task{ID: id, OutlineNumber: outline, Duration: formatTestHours(hours)}
}

func formatTestHours(hours int) string {
	digits := []byte{}
	n := hours
	if n == 0 {
		digits = []byte{'0'}
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return "PT" + string(digits) + "H0M0S"
}

func TestProposeLagReductionOnCriticalLink(t *testing.T) {
	tasks := []model.Task{
		chainTask("t1", "1", 16),
		chainTask("t2", "2", 16),
	}
	preds := []model.Predecessor{
		{TaskID: "t2", PredecessorOutline: "1", Type: model.LinkFS, Lag: 5, LagFormat: 7},
	}

	proposals, err := Propose(context.Background(), tasks, preds, DefaultParams())
	require.NoError(t, err)

	var found *Proposal
	for i := range proposals {
		if proposals[i].Kind == KindLagReduction {
			found = &proposals[i]
		}
	}
	require.NotNil(t, found, "expected a lag reduction proposal on the critical link")
	require.Less(t, found.ReducedLag, found.CurrentLag)
	require.Greater(t, found.DaysSaved, 0.0)
	require.Zero(t, found.Cost)
}

func TestProposeCompressionOnCriticalTask(t *testing.T) {
	tasks := []model.Task{
		chainTask("t1", "1", 80),
	}

	proposals, err := Propose(context.Background(), tasks, nil, DefaultParams())
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	require.Equal(t, KindCompression, proposals[0].Kind)
	require.Greater(t, proposals[0].Cost, 0.0)
}

func TestCompressionNeverGoesBelowMinimum(t *testing.T) {
	tasks := []model.Task{
		chainTask("t1", "1", 1),
	}
	params := DefaultParams()
	params.CompressionMinHours = 1

	proposals, err := Propose(context.Background(), tasks, nil, params)
	require.NoError(t, err)
	require.Empty(t, proposals, "a one hour task already at the floor should not be proposed for compression")
}

func TestMilestonesAreNeverCompressed(t *testing.T) {
	tasks := []model.Task{
		{ID: "t1", OutlineNumber: "1", Duration: "PT0H0M0S", Milestone: true},
	}

	proposals, err := Propose(context.Background(), tasks, nil, DefaultParams())
	require.NoError(t, err)
	require.Empty(t, proposals)
}

func TestApplyLagReductionRevalidates(t *testing.T) {
	tasks := []model.Task{
		{ID: "t1", ProjectID: "p1", Name: "A", OutlineNumber: "1", OutlineLevel: 1, Duration: "PT16H0M0S"},
		{ID: "t2", ProjectID: "p1", Name: "B", OutlineNumber: "2", OutlineLevel: 1, Duration: "PT16H0M0S"},
	}
	preds := []model.Predecessor{
		{TaskID: "t2", PredecessorOutline: "1", Type: model.LinkFS, Lag: 5, LagFormat: 7},
	}

	proposal := Proposal{
		Kind:               KindLagReduction,
		TaskOutlineNumber:  "2",
		PredecessorOutline: "1",
		ReducedLag:         3,
		ReducedLagFormat:   7,
	}

	newTasks, newPreds, err := Apply(proposal, tasks, preds)
	require.NoError(t, err)
	require.Equal(t, 3, newPreds[0].Lag)
	require.Equal(t, tasks, newTasks) // tasks unaffected by a lag proposal
}

func TestApplyUnknownTaskReturnsNotFound(t *testing.T) {
	proposal := Proposal{Kind: KindCompression, TaskOutlineNumber: "99", NewDuration: "PT4H0M0S"}
	_, _, err := Apply(proposal, []model.Task{{ID: "t1", OutlineNumber: "1"}}, nil)
	require.Error(t, err)
}
