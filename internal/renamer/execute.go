package renamer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/slipstream/tvrenamer/internal/library/organizer"
	"github.com/slipstream/tvrenamer/internal/progress"
)

// Execute applies the plan's planned operations when apply is set. A dry run
// returns the plan untouched. Conflicts are never executed. A failed rename
// is recorded on its operation and the batch continues; nothing already
// applied is rolled back. A cancelled ctx stops further renames and the
// remaining operations stay planned.
func (s *Service) Execute(ctx context.Context, plan *Plan, apply bool) (*Plan, error) {
	if !apply {
		s.logger.Info().Str("plan", plan.ID).Msg("Dry run, no files renamed")
		return plan, nil
	}
	if err := ctx.Err(); err != nil {
		return plan, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	order, cycles := applyOrder(plan.Operations)
	for _, op := range cycles {
		op.fail(StatusFailed, ReasonIOFailed, "rename cycle: target is the source of another rename in a loop")
	}

	s.progress.Start(plan.ID, progress.ActivityTypeApply, "Applying renames", len(order))
	seq := lastSeq(plan.Operations)
	for _, op := range order {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Str("plan", plan.ID).Msg("Apply cancelled")
			s.progress.Cancel(plan.ID)
			return plan, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		err := s.organizer.RenameFile(op.Source.Path, op.Target, plan.Overwrite)
		s.progress.Advance(plan.ID, op.Source.Name())
		if err != nil {
			op.fail(StatusFailed, reasonFor(err), err.Error())
			s.logger.Warn().Err(err).Str("source", op.Source.Path).Msg("Rename failed")
			continue
		}

		seq++
		op.Status = StatusApplied
		op.Seq = seq
		s.logRenameToHistory(ctx, plan.ID, op)
	}
	s.progress.Complete(plan.ID, "Applied renames")

	summary := plan.Summary()
	s.logger.Info().
		Str("plan", plan.ID).
		Int("applied", summary.Applied).
		Int("failed", summary.Failed).
		Int("conflicts", summary.Conflict).
		Msg("Executed rename plan")

	return plan, nil
}

// applyOrder returns planned operations in plan order, except that an
// operation whose target is the source of another planned operation comes
// after it. Operations on a dependency loop are returned separately.
func applyOrder(ops []*Operation) (order, cycles []*Operation) {
	bySource := make(map[string]*Operation)
	for _, op := range ops {
		if op.Status == StatusPlanned {
			bySource[filepath.Clean(op.Source.Path)] = op
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Operation]int)
	inCycle := make(map[*Operation]bool)

	var visit func(op *Operation)
	visit = func(op *Operation) {
		state[op] = visiting
		if dep := bySource[filepath.Clean(op.Target)]; dep != nil && dep != op {
			switch state[dep] {
			case unvisited:
				visit(dep)
			case visiting:
				// Mark the whole loop, dep back to op.
				for cur := dep; !inCycle[cur]; cur = bySource[filepath.Clean(cur.Target)] {
					inCycle[cur] = true
				}
			}
			if inCycle[dep] {
				inCycle[op] = true
			}
		}
		state[op] = done
		if !inCycle[op] {
			order = append(order, op)
		}
	}

	for _, op := range ops {
		if op.Status == StatusPlanned && state[op] == unvisited {
			visit(op)
		}
	}
	for _, op := range ops {
		if inCycle[op] {
			cycles = append(cycles, op)
		}
	}
	return order, cycles
}

func lastSeq(ops []*Operation) int {
	n := 0
	for _, op := range ops {
		if op.Seq > n {
			n = op.Seq
		}
	}
	return n
}

// Undo reverts applied operations in reverse apply order, renaming each
// target back to its source. An operation is left failed when its renamed
// file is gone or its original name is taken again.
func (s *Service) Undo(ctx context.Context, plan *Plan) (*Plan, error) {
	applied := make([]*Operation, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		if op.Status == StatusApplied {
			applied = append(applied, op)
		}
	}
	sort.SliceStable(applied, func(i, j int) bool { return applied[i].Seq > applied[j].Seq })

	activity := "undo-" + plan.ID
	s.progress.Start(activity, progress.ActivityTypeUndo, "Undoing renames", len(applied))
	defer s.progress.Complete(activity, "Undid renames")

	for _, op := range applied {
		if err := ctx.Err(); err != nil {
			s.progress.Cancel(activity)
			return plan, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		s.progress.Advance(activity, op.Source.Name())

		if op.IsNoop() {
			op.Status = StatusRolledBack
			continue
		}
		if !organizer.FileExists(op.Target) {
			op.fail(StatusFailed, ReasonIOFailed, fmt.Sprintf("cannot undo: %s no longer exists", op.Target))
			continue
		}

		if err := s.organizer.RenameFile(op.Target, op.Source.Path, false); err != nil {
			reason := reasonFor(err)
			detail := err.Error()
			if errors.Is(err, organizer.ErrTargetExists) {
				detail = fmt.Sprintf("cannot undo: original name %s is taken", op.Source.Path)
			}
			op.fail(StatusFailed, reason, detail)
			continue
		}

		op.Status = StatusRolledBack
		op.Reason = ReasonNone
		op.ErrorDetail = ""
		if s.history != nil {
			if err := s.history.MarkRolledBack(ctx, plan.ID, op.Target); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to mark rename as rolled back")
			}
		}
	}

	summary := plan.Summary()
	s.logger.Info().
		Str("plan", plan.ID).
		Int("rolledBack", summary.RolledBack).
		Int("failed", summary.Failed).
		Msg("Undid rename plan")

	return plan, nil
}

// logRenameToHistory journals an applied rename.
func (s *Service) logRenameToHistory(ctx context.Context, batchID string, op *Operation) {
	if s.history == nil || op.IsNoop() {
		return
	}
	if err := s.history.RecordRename(context.WithoutCancel(ctx), batchID, op.Seq, op.Source.Path, op.Target); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to log rename to history")
	}
}
