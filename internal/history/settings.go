package history

import (
	"context"
	"fmt"
)

// DefaultRetentionDays is how long journal entries are kept when the
// configuration does not say otherwise.
const DefaultRetentionDays = 365

// CleanupOldEntries deletes batches older than retentionDays. Zero or a
// negative value keeps everything.
func (s *Service) CleanupOldEntries(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	// Journal rows first; the cascade only fires with foreign_keys on.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM rename_journal WHERE batch_id IN (SELECT id FROM rename_batches WHERE created_at < ?)`,
		cutoff); err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM rename_batches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune batches: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if n > 0 {
		s.logger.Info().Int64("batches", n).Int("retentionDays", retentionDays).Msg("Pruned rename journal")
	}
	return n, nil
}
