package renamer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/tvrenamer/internal/library/organizer"
	"github.com/slipstream/tvrenamer/internal/testutil"
)

func TestExecute_DryRunDoesNotTouchFiles(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.S01E01.mkv")
	target := filepath.Join(dir, "A.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], target)})
	out, err := svc.Execute(context.Background(), plan, false)
	require.NoError(t, err)

	assert.Equal(t, StatusPlanned, out.Operations[0].Status)
	assert.FileExists(t, paths[0])
	assert.NoFileExists(t, target)
}

func TestExecute_AppliesAndSequences(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv", "b.mkv")

	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], filepath.Join(dir, "A.mkv")),
		resolvedTo(paths[1], filepath.Join(dir, "B.mkv")),
	})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	for i, op := range plan.Operations {
		assert.Equal(t, StatusApplied, op.Status)
		assert.Equal(t, i+1, op.Seq)
	}
	assert.Equal(t, "a.mkv", testutil.ReadFile(t, filepath.Join(dir, "A.mkv")))
	assert.Equal(t, "b.mkv", testutil.ReadFile(t, filepath.Join(dir, "B.mkv")))
}

func TestExecute_ChainRunsDependentsFirst(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv", "b.mkv")
	c := filepath.Join(dir, "c.mkv")

	// a -> b must wait until b -> c has moved b away.
	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], paths[1]),
		resolvedTo(paths[1], c),
	})
	require.Equal(t, 2, plan.Summary().Planned)

	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	assert.Equal(t, StatusApplied, plan.Operations[0].Status)
	assert.Equal(t, StatusApplied, plan.Operations[1].Status)
	assert.Equal(t, 2, plan.Operations[0].Seq)
	assert.Equal(t, 1, plan.Operations[1].Seq)
	assert.Equal(t, "a.mkv", testutil.ReadFile(t, paths[1]))
	assert.Equal(t, "b.mkv", testutil.ReadFile(t, c))
	assert.NoFileExists(t, paths[0])
}

func TestExecute_SwapCycleFails(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	_, paths := testutil.MediaTree(t, "a.mkv", "b.mkv")

	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], paths[1]),
		resolvedTo(paths[1], paths[0]),
	})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	for _, op := range plan.Operations {
		assert.Equal(t, StatusFailed, op.Status)
		assert.Equal(t, ReasonIOFailed, op.Reason)
		assert.Contains(t, op.ErrorDetail, "cycle")
	}
	assert.Equal(t, "a.mkv", testutil.ReadFile(t, paths[0]))
	assert.Equal(t, "b.mkv", testutil.ReadFile(t, paths[1]))
}

func TestExecute_TargetAppearsAfterPlanning(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv", "b.mkv")
	taken := filepath.Join(dir, "A.mkv")

	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], taken),
		resolvedTo(paths[1], filepath.Join(dir, "B.mkv")),
	})
	testutil.WriteFile(t, taken, "late")

	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, plan.Operations[0].Status)
	assert.Equal(t, ReasonTargetExists, plan.Operations[0].Reason)
	assert.Equal(t, "late", testutil.ReadFile(t, taken))
	assert.Equal(t, StatusApplied, plan.Operations[1].Status, "one failure does not stop the batch")
}

func TestExecute_SourceVanished(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], filepath.Join(dir, "A.mkv"))})
	require.NoError(t, os.Remove(paths[0]))

	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, plan.Operations[0].Status)
	assert.Equal(t, ReasonIOFailed, plan.Operations[0].Reason)
}

func TestExecute_OverwriteReplaces(t *testing.T) {
	svc, _ := newTestService(t, Options{OverwriteExisting: true})
	_, paths := testutil.MediaTree(t, "a.mkv", "Taken.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], paths[1])})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	assert.Equal(t, StatusApplied, plan.Operations[0].Status)
	assert.Equal(t, "a.mkv", testutil.ReadFile(t, paths[1]))
}

func TestExecute_CancelledLeavesPlanned(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], filepath.Join(dir, "A.mkv"))})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Execute(ctx, plan, true)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StatusPlanned, plan.Operations[0].Status)
	assert.FileExists(t, paths[0])
}

func TestExecute_NoopIsAppliedButNotJournaled(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	history := &fakeHistory{}
	svc.SetHistory(history)
	_, paths := testutil.MediaTree(t, "Canonical.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], paths[0])})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	assert.Equal(t, StatusApplied, plan.Operations[0].Status)
	assert.Empty(t, history.renames)
	assert.FileExists(t, paths[0])
}

func TestUndo_RevertsInReverseOrder(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	history := &fakeHistory{}
	svc.SetHistory(history)
	dir, paths := testutil.MediaTree(t, "a.mkv", "b.mkv")
	c := filepath.Join(dir, "c.mkv")

	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], paths[1]),
		resolvedTo(paths[1], c),
	})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)

	_, err = svc.Undo(context.Background(), plan)
	require.NoError(t, err)

	for _, op := range plan.Operations {
		assert.Equal(t, StatusRolledBack, op.Status)
	}
	assert.Equal(t, "a.mkv", testutil.ReadFile(t, paths[0]))
	assert.Equal(t, "b.mkv", testutil.ReadFile(t, paths[1]))
	assert.NoFileExists(t, c)
	assert.Equal(t, []string{paths[1], c}, history.rolledBack)
}

func TestUndo_FailsWhenRenamedFileIsGone(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv")
	target := filepath.Join(dir, "A.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], target)})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	require.NoError(t, os.Remove(target))

	_, err = svc.Undo(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, plan.Operations[0].Status)
	assert.Contains(t, plan.Operations[0].ErrorDetail, "no longer exists")
}

func TestUndo_FailsWhenOriginalNameIsTaken(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.mkv")
	target := filepath.Join(dir, "A.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], target)})
	_, err := svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	testutil.WriteFile(t, paths[0], "new occupant")

	_, err = svc.Undo(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, plan.Operations[0].Status)
	assert.Equal(t, ReasonTargetExists, plan.Operations[0].Reason)
	assert.Equal(t, "new occupant", testutil.ReadFile(t, paths[0]))
	assert.FileExists(t, target)
}

func TestApplyOrder(t *testing.T) {
	a := &Operation{Source: RawFile{Path: "/x/a"}, Target: "/x/b", Status: StatusPlanned}
	b := &Operation{Source: RawFile{Path: "/x/b"}, Target: "/x/c", Status: StatusPlanned}
	c := &Operation{Source: RawFile{Path: "/x/c"}, Target: "/x/d", Status: StatusPlanned}
	skip := &Operation{Source: RawFile{Path: "/x/e"}, Target: "/x/f", Status: StatusConflict}
	loop1 := &Operation{Source: RawFile{Path: "/x/p"}, Target: "/x/q", Status: StatusPlanned}
	loop2 := &Operation{Source: RawFile{Path: "/x/q"}, Target: "/x/p", Status: StatusPlanned}

	order, cycles := applyOrder([]*Operation{a, skip, b, loop1, c, loop2})
	assert.Equal(t, []*Operation{c, b, a}, order)
	assert.ElementsMatch(t, []*Operation{loop1, loop2}, cycles)
}

func TestExecute_WithoutResolver(t *testing.T) {
	logger := testutil.NewTestLogger(t)
	naming := organizer.DefaultNamingConfig()
	svc := NewService(nil, organizer.NewService(&naming, &logger), Options{}, &logger)

	dir, paths := testutil.MediaTree(t, "a.S01E01.mkv")
	target := filepath.Join(dir, "A - S01E01.mkv")

	_, _, err := svc.ResolveBatch(context.Background(), rawFiles(paths...))
	require.ErrorIs(t, err, ErrNoResolver)

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], target)})
	_, err = svc.Execute(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, plan.Operations[0].Status)
	assert.FileExists(t, target)

	_, err = svc.Undo(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StatusRolledBack, plan.Operations[0].Status)
	assert.FileExists(t, paths[0])
}
