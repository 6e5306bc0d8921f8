// Package history journals applied renames in SQLite so a batch can be
// listed and undone after the process that applied it has exited.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/slipstream/tvrenamer/internal/library/scanner"
	"github.com/slipstream/tvrenamer/internal/renamer"
)

// Service provides rename journal functionality.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordRename journals one applied rename. The batch row is created on the
// first rename recorded for it.
func (s *Service) RecordRename(ctx context.Context, batchID string, seq int, source, target string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO rename_batches (id, created_at) VALUES (?, ?)`,
		batchID, now); err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rename_journal (batch_id, seq, source_path, target_path, status, renamed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batchID, seq, source, target, string(StatusApplied), now); err != nil {
		return fmt.Errorf("failed to record rename: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal entry: %w", err)
	}

	s.logger.Debug().Str("batch", batchID).Int("seq", seq).Str("target", target).Msg("Journaled rename")
	return nil
}

// MarkRolledBack flags the applied rename of batchID that produced target as
// undone.
func (s *Service) MarkRolledBack(ctx context.Context, batchID, target string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rename_journal SET status = ?, rolled_back_at = ?
		 WHERE batch_id = ? AND target_path = ? AND status = ?`,
		string(StatusRolledBack), s.now(), batchID, target, string(StatusApplied))
	if err != nil {
		return fmt.Errorf("failed to mark rename rolled back: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: batch %s target %s", ErrEntryNotFound, batchID, target)
	}
	return nil
}

// List lists batches, newest first, with pagination.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	offset := (opts.Page - 1) * opts.PageSize

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rename_batches`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.created_at,
		       COALESCE(SUM(CASE WHEN j.status = 'applied' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN j.status = 'rolled_back' THEN 1 ELSE 0 END), 0)
		FROM rename_batches b
		LEFT JOIN rename_journal j ON j.batch_id = b.id
		GROUP BY b.id, b.created_at
		ORDER BY b.created_at DESC, b.id
		LIMIT ? OFFSET ?`, opts.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	items := make([]*Batch, 0, opts.PageSize)
	for rows.Next() {
		b := &Batch{}
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Applied, &b.RolledBack); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int(total) / opts.PageSize
	if int(total)%opts.PageSize > 0 {
		totalPages++
	}

	return &ListResponse{
		Items:      items,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// GetBatch returns the journal entries of a batch in apply order.
func (s *Service) GetBatch(ctx context.Context, batchID string) ([]*Entry, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rename_batches WHERE id = ?`, batchID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up batch: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, seq, source_path, target_path, status, renamed_at, rolled_back_at
		FROM rename_journal WHERE batch_id = ? ORDER BY seq, id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var status string
		var rolledBack sql.NullTime
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Seq, &e.Source, &e.Target, &status, &e.RenamedAt, &rolledBack); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		if rolledBack.Valid {
			t := rolledBack.Time
			e.RolledBackAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UndoPlan rebuilds a plan holding the still-applied renames of a batch, in
// the shape renamer.Service.Undo expects.
func (s *Service) UndoPlan(ctx context.Context, batchID string) (*renamer.Plan, error) {
	entries, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	plan := &renamer.Plan{ID: batchID, Operations: make([]*renamer.Operation, 0, len(entries))}
	for _, e := range entries {
		if plan.CreatedAt.IsZero() || e.RenamedAt.Before(plan.CreatedAt) {
			plan.CreatedAt = e.RenamedAt
		}
		if e.Status != StatusApplied {
			continue
		}
		plan.Operations = append(plan.Operations, &renamer.Operation{
			Source: renamer.RawFile{Path: e.Source},
			Target: e.Target,
			Status: renamer.StatusApplied,
			Seq:    e.Seq,
		})
	}
	return plan, nil
}

// LastBatchID returns the most recent batch that still has applied renames.
func (s *Service) LastBatchID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT b.id FROM rename_batches b
		WHERE EXISTS (SELECT 1 FROM rename_journal j WHERE j.batch_id = b.id AND j.status = 'applied')
		ORDER BY b.created_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrBatchNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find last batch: %w", err)
	}
	return id, nil
}

// isJournaled reports whether path was produced by an applied rename, so
// the scanner can skip files a previous batch already handled.
func (s *Service) isJournaled(ctx context.Context, path string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rename_journal WHERE target_path = ? AND status = 'applied'`, path).Scan(&n)
	return n > 0, err
}

// FilterJournaled drops files that an applied batch already renamed.
func (s *Service) FilterJournaled(ctx context.Context, files []scanner.FoundFile) ([]scanner.FoundFile, error) {
	kept := files[:0:0]
	for _, f := range files {
		done, err := s.isJournaled(ctx, f.Path)
		if err != nil {
			return nil, err
		}
		if !done {
			kept = append(kept, f)
		}
	}
	return kept, nil
}
