package xmlcodec

import (
	"strings"
	"testing"

	"github.com/jra3/scheduled/internal/model"
	"github.com/stretchr/testify/require"
)

const trivialProject = `<Project>
<Name>Trivial</Name>
<StartDate>2026-01-05T08:00:00</StartDate>
<StatusDate>2026-01-05T08:00:00</StatusDate>
<Tasks>
<Task>
<UID>1</UID>
<ID>1</ID>
<Name>Task One</Name>
<OutlineNumber>1</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT8H0M0S</Duration>
<Milestone>0</Milestone>
<Summary>0</Summary>
<PercentComplete>0</PercentComplete>
</Task>
<Task>
<UID>2</UID>
<ID>2</ID>
<Name>Task Two</Name>
<OutlineNumber>2</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT8H0M0S</Duration>
<Milestone>0</Milestone>
<Summary>0</Summary>
<PercentComplete>0</PercentComplete>
<PredecessorLink>
<PredecessorUID>1</PredecessorUID>
<Type>1</Type>
<LinkLag>0</LinkLag>
<LagFormat>7</LagFormat>
</PredecessorLink>
</Task>
</Tasks>
</Project>`

func TestParseTrivialProject(t *testing.T) {
	parsed, err := Parse(strings.NewReader(trivialProject))
	require.NoError(t, err)
	require.Len(t, parsed.Tasks, 2)
	require.Len(t, parsed.Predecessors, 1)
	require.Equal(t, "1", parsed.Predecessors[0].PredecessorOutline)
	require.Equal(t, "2", parsed.Predecessors[0].TaskID, "TaskID holds the successor's outline number until the caller resolves it to a store ID")
	require.Equal(t, model.LinkFS, parsed.Predecessors[0].Type)
	require.Equal(t, 0, parsed.Predecessors[0].Lag)
	require.Equal(t, 7, parsed.Predecessors[0].LagFormat)
}

func TestZeroLagSurvivesRoundTrip(t *testing.T) {
	parsed, err := Parse(strings.NewReader(trivialProject))
	require.NoError(t, err)

	tasks := parsed.Tasks
	tasks[1].ID = "t2"
	preds := []model.Predecessor{{
		TaskID:             "t2",
		PredecessorOutline: "1",
		Type:               model.LinkFS,
		Lag:                0,
		LagFormat:           7,
	}}

	out, err := Render(parsed.Project.XMLTemplate, parsed.Project, tasks, preds)
	require.NoError(t, err)
	require.Contains(t, string(out), "<LinkLag>0</LinkLag>")
	require.Contains(t, string(out), "<LagFormat>7</LagFormat>")
	require.NotContains(t, string(out), "48000")
}

func TestMilestoneZeroDurationSurvivesEmptySource(t *testing.T) {
	const src = `<Project><Name>P</Name><StartDate></StartDate><StatusDate></StatusDate><Tasks>
<Task><UID>1</UID><ID>1</ID><Name>M</Name><OutlineNumber>1</OutlineNumber><OutlineLevel>1</OutlineLevel>
<Duration></Duration><Milestone>1</Milestone><Summary>0</Summary><PercentComplete>0</PercentComplete></Task>
</Tasks></Project>`

	parsed, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "PT0H0M0S", parsed.Tasks[0].Duration)
}

func TestRoundTripPreservesTaskCount(t *testing.T) {
	first, err := Parse(strings.NewReader(trivialProject))
	require.NoError(t, err)
	first.Tasks[0].ID = "t1"
	first.Tasks[1].ID = "t2"
	for i := range first.Predecessors {
		first.Predecessors[i].TaskID = "t2"
	}

	rendered, err := Render(first.Project.XMLTemplate, first.Project, first.Tasks, first.Predecessors)
	require.NoError(t, err)

	second, err := Parse(strings.NewReader(string(rendered)))
	require.NoError(t, err)
	require.Len(t, second.Tasks, len(first.Tasks))
	require.Len(t, second.Predecessors, len(first.Predecessors))
}
