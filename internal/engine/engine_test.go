package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jra3/scheduled/internal/optimize"
	"github.com/jra3/scheduled/internal/store"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<Project>
<Name>Sample</Name>
<StartDate>2026-01-05T08:00:00</StartDate>
<StatusDate>2026-01-05T08:00:00</StatusDate>
<Tasks>
<Task>
<UID>1</UID>
<Name>Design</Name>
<OutlineNumber>1</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT16H0M0S</Duration>
<Milestone>0</Milestone>
<Summary>0</Summary>
<PercentComplete>0</PercentComplete>
</Task>
<Task>
<UID>2</UID>
<Name>Build</Name>
<OutlineNumber>2</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT24H0M0S</Duration>
<Milestone>0</Milestone>
<Summary>0</Summary>
<PercentComplete>0</PercentComplete>
<PredecessorLink>
<PredecessorUID>1</PredecessorUID>
<Type>1</Type>
<LinkLag>8</LinkLag>
<LagFormat>7</LagFormat>
</PredecessorLink>
</Task>
</Tasks>
</Project>`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, optimize.DefaultParams())
}

func TestIngestXMLPersistsAndActivates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.IngestXML(ctx, "Sample", strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Equal(t, 2, result.TaskCount)
	require.Equal(t, 1, result.PredCount)

	active, err := e.GetActiveProject(ctx)
	require.NoError(t, err)
	require.Equal(t, result.Project.ID, active.ID)

	tasks, err := e.ListTasks(ctx, active.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
}

func TestIngestXMLRejectsInvalidSchedule(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	const cyclical = `<Project><Name>Bad</Name><StartDate></StartDate><StatusDate></StatusDate><Tasks>
<Task><UID>1</UID><Name>A</Name><OutlineNumber>1</OutlineNumber><OutlineLevel>1</OutlineLevel>
<Duration>PT8H0M0S</Duration><Milestone>0</Milestone><Summary>0</Summary><PercentComplete>0</PercentComplete>
<PredecessorLink><PredecessorUID>2</PredecessorUID><Type>1</Type><LinkLag>0</LinkLag><LagFormat>7</LagFormat></PredecessorLink>
</Task>
<Task><UID>2</UID><Name>B</Name><OutlineNumber>2</OutlineNumber><OutlineLevel>1</OutlineLevel>
<Duration>PT8H0M0S</Duration><Milestone>0</Milestone><Summary>0</Summary><PercentComplete>0</PercentComplete>
<PredecessorLink><PredecessorUID>1</PredecessorUID><Type>1</Type><LinkLag>0</LinkLag><LagFormat>7</LagFormat></PredecessorLink>
</Task>
</Tasks></Project>`

	_, err := e.IngestXML(ctx, "Bad", strings.NewReader(cyclical))
	require.Error(t, err)
}

func TestExportXMLRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.IngestXML(ctx, "Sample", strings.NewReader(sampleXML))
	require.NoError(t, err)

	out, err := e.ExportXML(ctx, result.Project.ID)
	require.NoError(t, err)
	require.Contains(t, string(out), "<LinkLag>8</LinkLag>")
	require.Contains(t, string(out), "Build")
}

func TestComputeCPMOnIngestedProject(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.IngestXML(ctx, "Sample", strings.NewReader(sampleXML))
	require.NoError(t, err)

	cpmResult, err := e.ComputeCPM(ctx, result.Project.ID)
	require.NoError(t, err)
	require.NotEmpty(t, cpmResult.CriticalPath)
	require.Equal(t, []string{"1", "2"}, cpmResult.CriticalPath)
}

func TestOptimizeProposalAndApply(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.IngestXML(ctx, "Sample", strings.NewReader(sampleXML))
	require.NoError(t, err)

	proposals, err := e.OptimizeProposal(ctx, result.Project.ID)
	require.NoError(t, err)
	require.NotEmpty(t, proposals)

	require.NoError(t, e.OptimizeApply(ctx, result.Project.ID, proposals[0]))

	revalidated, err := e.Validate(ctx, result.Project.ID)
	require.NoError(t, err)
	require.True(t, revalidated.Valid())
}

func TestDeleteActiveProjectPromotesAnother(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.CreateProject(ctx, "First")
	require.NoError(t, err)
	second, err := e.CreateProject(ctx, "Second")
	require.NoError(t, err)

	active, err := e.GetActiveProject(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)

	require.NoError(t, e.DeleteProject(ctx, second.ID))

	active, err = e.GetActiveProject(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, active.ID)
}
