// Package integration drives the Engine API end-to-end against a real
// on-disk SQLite file, the way the teacher's internal/integration suite
// drove the full sync pipeline against a real cache database rather than
// mocking any layer.
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jra3/scheduled/internal/engine"
	"github.com/jra3/scheduled/internal/optimize"
	"github.com/jra3/scheduled/internal/store"
)

const threeTaskXML = `<Project>
<Name>Rollout</Name>
<StartDate>2026-02-02T08:00:00</StartDate>
<StatusDate>2026-02-02T08:00:00</StatusDate>
<Tasks>
<Task>
<UID>1</UID>
<Name>Plan</Name>
<OutlineNumber>1</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT8H0M0S</Duration>
<Milestone>0</Milestone>
<Summary>0</Summary>
<PercentComplete>0</PercentComplete>
</Task>
<Task>
<UID>2</UID>
<Name>Build</Name>
<OutlineNumber>2</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT40H0M0S</Duration>
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
<Task>
<UID>3</UID>
<Name>Ship</Name>
<OutlineNumber>3</OutlineNumber>
<OutlineLevel>1</OutlineLevel>
<Duration>PT0H0M0S</Duration>
<Milestone>1</Milestone>
<Summary>0</Summary>
<PercentComplete>0</PercentComplete>
<PredecessorLink>
<PredecessorUID>2</PredecessorUID>
<Type>1</Type>
<LinkLag>0</LinkLag>
<LagFormat>7</LagFormat>
</PredecessorLink>
</Task>
</Tasks>
</Project>`

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "integration.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return engine.New(s, optimize.DefaultParams())
}

// TestFullLifecycleAcrossProjects ingests two independent projects into
// the same store, verifies they never see each other's tasks, runs CPM
// and optimization on one, reopens the store at the same path to confirm
// durability, then deletes a project and checks active-project promotion.
func TestFullLifecycleAcrossProjects(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "lifecycle.db")

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	e := engine.New(s, optimize.DefaultParams())

	rollout, err := e.IngestXML(ctx, "Rollout", strings.NewReader(threeTaskXML))
	require.NoError(t, err)
	require.Equal(t, 3, rollout.TaskCount)
	require.Equal(t, 2, rollout.PredCount)

	sandbox, err := e.CreateProject(ctx, "Sandbox")
	require.NoError(t, err)

	active, err := e.GetActiveProject(ctx)
	require.NoError(t, err)
	require.Equal(t, sandbox.ID, active.ID)

	sandboxTasks, err := e.ListTasks(ctx, sandbox.ID)
	require.NoError(t, err)
	require.Empty(t, sandboxTasks)

	rolloutTasks, err := e.ListTasks(ctx, rollout.Project.ID)
	require.NoError(t, err)
	require.Len(t, rolloutTasks, 3)

	result, err := e.Validate(ctx, rollout.Project.ID)
	require.NoError(t, err)
	require.True(t, result.Valid())

	cpmResult, err := e.ComputeCPM(ctx, rollout.Project.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, cpmResult.CriticalPath)
	require.InDelta(t, 6.0, cpmResult.ProjectDays, 0.01)

	proposals, err := e.OptimizeProposal(ctx, rollout.Project.ID)
	require.NoError(t, err)
	require.NotEmpty(t, proposals)
	require.NoError(t, e.OptimizeApply(ctx, rollout.Project.ID, proposals[0]))

	require.NoError(t, e.ReEncodeTemplate(ctx, rollout.Project.ID))
	exported, err := e.ExportXML(ctx, rollout.Project.ID)
	require.NoError(t, err)
	require.Contains(t, string(exported), "Build")

	require.NoError(t, s.Close())

	reopened, err := store.Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	e2 := engine.New(reopened, optimize.DefaultParams())

	projects, err := e2.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	require.NoError(t, e2.DeleteProject(ctx, sandbox.ID))
	promoted, err := e2.GetActiveProject(ctx)
	require.NoError(t, err)
	require.Equal(t, rollout.Project.ID, promoted.ID)

	remainingTasks, err := e2.ListTasks(ctx, rollout.Project.ID)
	require.NoError(t, err)
	require.Len(t, remainingTasks, 3)
}
