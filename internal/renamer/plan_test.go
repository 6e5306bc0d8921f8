package renamer

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/tvrenamer/internal/library/scanner"
	"github.com/slipstream/tvrenamer/internal/metadata"
	"github.com/slipstream/tvrenamer/internal/testutil"
)

func resolvedTo(source, target string) Resolved {
	return Resolved{File: RawFile{Path: source}, Target: target}
}

func TestBuildPlan_IdenticalTargetsFailClosed(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	// Two spellings of the same episode with the same extension.
	dir, paths := testutil.MediaTree(t, "The.Office.US.S02E01.mkv", "The Office US - 2x01.mkv")
	target := filepath.Join(dir, "The Office - S02E01 - The Dundies.mkv")

	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], target),
		resolvedTo(paths[1], target),
	})

	require.Len(t, plan.Operations, 2)
	for _, op := range plan.Operations {
		assert.Equal(t, StatusConflict, op.Status)
		assert.Equal(t, ReasonConflict, op.Reason)
		assert.Contains(t, op.ErrorDetail, "2 files")
	}

	executed, err := svc.Execute(t.Context(), plan, true)
	require.NoError(t, err)
	assert.Zero(t, executed.Summary().Applied)
	assert.NoFileExists(t, target)
}

func TestBuildPlan_FailedResolutionsKeepReason(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	amb := &metadata.AmbiguousShowError{
		Hint:       "The Office",
		Threshold:  0.6,
		Candidates: []metadata.ShowCandidate{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}},
	}
	plan := svc.BuildPlan([]Resolved{
		{File: RawFile{Path: "/tv/a.txt"}, Err: fmt.Errorf("%w: %q", scanner.ErrUnsupportedFormat, ".txt")},
		{File: RawFile{Path: "/tv/Unknown File.mkv"}, Err: scanner.ErrUnrecognizedFormat},
		{File: RawFile{Path: "/tv/The.Office.S01E01.mkv"}, Err: amb},
		{File: RawFile{Path: "/tv/x.S09E09.mkv"}, Err: &metadata.EpisodeNotFoundError{ShowID: "1", Season: 9, Episode: 9}},
		{File: RawFile{Path: "/tv/y.S01E01.mkv"}, Err: fmt.Errorf("%w: boom", metadata.ErrProvider)},
	})

	want := []Reason{
		ReasonUnsupportedFormat,
		ReasonUnrecognizedFormat,
		ReasonAmbiguousShow,
		ReasonEpisodeNotFound,
		ReasonProviderError,
	}
	require.Len(t, plan.Operations, len(want))
	for i, op := range plan.Operations {
		assert.Equal(t, StatusConflict, op.Status, op.Source.Path)
		assert.Equal(t, want[i], op.Reason, op.Source.Path)
		assert.NotEmpty(t, op.ErrorDetail)
		assert.Empty(t, op.Target)
	}
	assert.Len(t, plan.Operations[2].Candidates, 2)
	assert.NotEmpty(t, plan.ID)
}

func TestBuildPlan_DuplicateSource(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.S01E01.mkv")

	plan := svc.BuildPlan([]Resolved{
		resolvedTo(paths[0], filepath.Join(dir, "A.mkv")),
		resolvedTo(paths[0], filepath.Join(dir, "B.mkv")),
	})
	for _, op := range plan.Operations {
		assert.Equal(t, StatusConflict, op.Status)
		assert.Equal(t, ReasonConflict, op.Reason)
	}
}

func TestBuildPlan_ExistingTarget(t *testing.T) {
	dir, paths := testutil.MediaTree(t, "a.S01E01.mkv", "Taken.mkv")

	t.Run("conflicts without overwrite", func(t *testing.T) {
		svc, _ := newTestService(t, Options{})
		plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], paths[1])})
		assert.Equal(t, StatusConflict, plan.Operations[0].Status)
		assert.Equal(t, ReasonTargetExists, plan.Operations[0].Reason)
	})

	t.Run("planned with overwrite", func(t *testing.T) {
		svc, _ := newTestService(t, Options{OverwriteExisting: true})
		plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], paths[1])})
		assert.Equal(t, StatusPlanned, plan.Operations[0].Status)
		assert.True(t, plan.Overwrite)
	})

	t.Run("freed by another planned rename", func(t *testing.T) {
		svc, _ := newTestService(t, Options{})
		plan := svc.BuildPlan([]Resolved{
			resolvedTo(paths[0], paths[1]),
			resolvedTo(paths[1], filepath.Join(dir, "Elsewhere.mkv")),
		})
		assert.Equal(t, StatusPlanned, plan.Operations[0].Status)
		assert.Equal(t, StatusPlanned, plan.Operations[1].Status)
	})

	t.Run("mover that cannot run does not free its source", func(t *testing.T) {
		svc, _ := newTestService(t, Options{})
		third := testutil.WriteFile(t, filepath.Join(dir, "Third.mkv"), "x")
		plan := svc.BuildPlan([]Resolved{
			resolvedTo(paths[0], paths[1]),
			resolvedTo(paths[1], third),
		})
		assert.Equal(t, ReasonTargetExists, plan.Operations[1].Reason)
		assert.Equal(t, ReasonTargetExists, plan.Operations[0].Reason)
	})
}

func TestBuildPlan_AlreadyCanonicalIsPlanned(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	_, paths := testutil.MediaTree(t, "Breaking Bad - S01E01 - Pilot.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], paths[0])})
	op := plan.Operations[0]
	assert.Equal(t, StatusPlanned, op.Status)
	assert.True(t, op.IsNoop())
}

func TestDetectConflicts_NoSharedPlannedTargets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dir := t.TempDir()

	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(12)
		ops := make([]*Operation, n)
		for i := range ops {
			ops[i] = &Operation{
				Source: RawFile{Path: filepath.Join(dir, fmt.Sprintf("src-%d-%d.mkv", round, i))},
				Target: filepath.Join(dir, fmt.Sprintf("target-%d.mkv", rng.Intn(n))),
				Status: StatusPlanned,
			}
		}
		detectConflicts(ops, false)

		seen := map[string]bool{}
		for _, op := range ops {
			if op.Status != StatusPlanned {
				continue
			}
			require.False(t, seen[op.Target], "round %d: two planned operations share %s", round, op.Target)
			seen[op.Target] = true
		}
	}
}

func TestDetectConflicts_OrderIndependent(t *testing.T) {
	dir, paths := testutil.MediaTree(t, "a.mkv", "b.mkv", "c.mkv")
	build := func() []*Operation {
		return []*Operation{
			{Source: RawFile{Path: paths[0]}, Target: paths[1], Status: StatusPlanned},
			{Source: RawFile{Path: paths[1]}, Target: paths[2], Status: StatusPlanned},
			{Source: RawFile{Path: paths[2]}, Target: filepath.Join(dir, "d.mkv"), Status: StatusPlanned},
		}
	}

	forward := build()
	detectConflicts(forward, false)

	backward := build()
	reversed := []*Operation{backward[2], backward[1], backward[0]}
	detectConflicts(reversed, false)

	for i := range forward {
		assert.Equal(t, forward[i].Status, backward[i].Status)
	}
	assert.Equal(t, StatusPlanned, forward[0].Status)
}

func TestRecheck_PicksUpNewFiles(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	dir, paths := testutil.MediaTree(t, "a.S01E01.mkv")
	target := filepath.Join(dir, "A.mkv")

	plan := svc.BuildPlan([]Resolved{resolvedTo(paths[0], target)})
	require.Equal(t, StatusPlanned, plan.Operations[0].Status)

	testutil.WriteFile(t, target, "someone else")
	svc.Recheck(plan)
	assert.Equal(t, ReasonTargetExists, plan.Operations[0].Reason)
}
