package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetWatermark returns the stored high-water mark for a source, with ok=false
// when the source has never synced.
func (r *Repo) GetWatermark(ctx context.Context, source string) (string, bool, error) {
	query := `SELECT watermark FROM sync_watermarks WHERE source = $1`

	var watermark string
	err := r.pool.QueryRow(ctx, query, source).Scan(&watermark)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get sync watermark: %w", err)
	}

	return watermark, true, nil
}

// SetWatermark stores the high-water mark for a source.
func (r *Repo) SetWatermark(ctx context.Context, source, value string) error {
	query := `
		INSERT INTO sync_watermarks (source, watermark)
		VALUES ($1, $2)
		ON CONFLICT (source) DO UPDATE SET watermark = EXCLUDED.watermark, updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, source, value); err != nil {
		return fmt.Errorf("set sync watermark: %w", err)
	}

	return nil
}

// Compile-time check that Repo implements WatermarkStore.
var _ WatermarkStore = (*Repo)(nil)
