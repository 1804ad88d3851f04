package store

import (
	"context"
	"sort"

	"github.com/rcliao/wingo/internal/model"
)

// ExportAll returns every override version, grouped by serial in version order.
func (s *SQLStore) ExportAll(ctx context.Context) ([]model.Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, serial, color, size, version, supersedes, chat_id, created_at
		FROM overrides ORDER BY serial, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOverrides(rows)
}

// Import replays overrides from an export. Versions of one serial are applied
// oldest first, so the last one in the export becomes the current override.
func (s *SQLStore) Import(ctx context.Context, overrides []model.Override) (int, error) {
	sorted := make([]model.Override, len(overrides))
	copy(sorted, overrides)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Serial != sorted[j].Serial {
			return sorted[i].Serial < sorted[j].Serial
		}
		return sorted[i].Version < sorted[j].Version
	})

	imported := 0
	for _, o := range sorted {
		_, err := s.PutOverride(ctx, OverrideParams{
			Serial:  o.Serial,
			Outcome: o.Outcome,
			ChatID:  o.ChatID,
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
