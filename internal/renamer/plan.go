package renamer

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/slipstream/tvrenamer/internal/library/organizer"
	"github.com/slipstream/tvrenamer/internal/metadata"
)

// BuildPlan turns resolution results into a plan with one operation per
// input, in input order. Failed resolutions become conflicts carrying their
// reason; successful ones are planned and then checked for collisions.
func (s *Service) BuildPlan(resolved []Resolved) *Plan {
	plan := &Plan{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Overwrite:  s.options.OverwriteExisting,
		Operations: make([]*Operation, 0, len(resolved)),
	}

	for _, r := range resolved {
		op := &Operation{
			Source:     r.File,
			Status:     StatusPending,
			Token:      r.Token,
			Resolution: r.Resolution,
		}
		if r.Err != nil {
			op.fail(StatusConflict, reasonFor(r.Err), r.Err.Error())
			var amb *metadata.AmbiguousShowError
			if errors.As(r.Err, &amb) {
				op.Candidates = amb.Candidates
			}
		} else {
			op.Target = r.Target
			op.Status = StatusPlanned
		}
		plan.Operations = append(plan.Operations, op)
	}

	detectConflicts(plan.Operations, plan.Overwrite)

	summary := plan.Summary()
	s.logger.Info().
		Str("plan", plan.ID).
		Int("total", summary.Total).
		Int("planned", summary.Planned).
		Int("conflicts", summary.Conflict).
		Msg("Built rename plan")

	return plan
}

// Recheck re-runs collision detection against the current filesystem, for a
// plan built earlier and loaded from disk.
func (s *Service) Recheck(plan *Plan) {
	detectConflicts(plan.Operations, plan.Overwrite)
}

// detectConflicts marks planned operations that cannot safely run. Duplicate
// sources and shared targets fail closed: every operation involved becomes a
// conflict. A target already on disk conflicts unless overwrite is set or
// the file there is the source of another planned operation (and so will
// have moved away first). The result does not depend on operation order.
func detectConflicts(ops []*Operation, overwrite bool) {
	bySource := make(map[string][]*Operation)
	byTarget := make(map[string][]*Operation)
	for _, op := range ops {
		if op.Status != StatusPlanned {
			continue
		}
		src := filepath.Clean(op.Source.Path)
		bySource[src] = append(bySource[src], op)
		byTarget[filepath.Clean(op.Target)] = append(byTarget[filepath.Clean(op.Target)], op)
	}

	for src, group := range bySource {
		if len(group) > 1 {
			for _, op := range group {
				op.fail(StatusConflict, ReasonConflict, fmt.Sprintf("%s: %s is listed %d times", ErrConflict, src, len(group)))
			}
		}
	}
	for target, group := range byTarget {
		if len(group) < 2 {
			continue
		}
		for _, op := range group {
			op.fail(StatusConflict, ReasonConflict, fmt.Sprintf("%s: %d files would be renamed to %s", ErrConflict, len(group), target))
		}
	}

	if overwrite {
		return
	}

	// A target freed by another planned operation stays free only while that
	// operation is still planned, so iterate until nothing changes.
	for changed := true; changed; {
		changed = false
		for _, op := range ops {
			if op.Status != StatusPlanned || op.IsNoop() {
				continue
			}
			target := filepath.Clean(op.Target)
			if !organizer.FileExists(target) || organizer.SameFile(op.Source.Path, target) {
				continue
			}
			if mover := plannedSource(bySource, target); mover != nil && mover != op {
				continue
			}
			op.fail(StatusConflict, ReasonTargetExists, fmt.Sprintf("%s: %s", organizer.ErrTargetExists, target))
			changed = true
		}
	}
}

func plannedSource(bySource map[string][]*Operation, path string) *Operation {
	for _, op := range bySource[path] {
		if op.Status == StatusPlanned {
			return op
		}
	}
	return nil
}
