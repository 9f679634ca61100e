package recipes

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"recipehub/internal/search"
	"recipehub/pkg/models"
)

const DefaultRefreshChunk = 500

type RefreshOptions struct {
	// MissingOnly limits the run to rows whose search_reading is NULL or empty.
	MissingOnly bool
	Chunk       int
	DryRun      bool
	// NoTouch writes search_reading without bumping updated_at.
	NoTouch bool
}

type RefreshStats struct {
	Scanned   int `json:"scanned"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// RefreshReadings recomputes search_reading for existing rows in primary key
// batches, trashed rows included. progress, if set, is called after every
// batch.
func RefreshReadings(ctx context.Context, db *gorm.DB, ix *search.Indexer, opts RefreshOptions, progress func(RefreshStats)) (RefreshStats, error) {
	if opts.Chunk <= 0 {
		opts.Chunk = DefaultRefreshChunk
	}

	var stats RefreshStats
	q := db.WithContext(ctx).Unscoped().Model(&models.Recipe{})
	if opts.MissingOnly {
		q = q.Where("(search_reading IS NULL OR search_reading = '')")
	}

	var batch []models.Recipe
	res := q.FindInBatches(&batch, opts.Chunk, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			rec := &batch[i]
			stats.Scanned++

			next := ix.Reading(ctx, search.FieldsOf(rec))
			if rec.SearchReading != nil && *rec.SearchReading == next {
				stats.Unchanged++
				continue
			}
			stats.Updated++
			if opts.DryRun {
				continue
			}

			row := db.WithContext(ctx).Unscoped().Model(&models.Recipe{}).Where("id = ?", rec.ID)
			var err error
			if opts.NoTouch {
				err = row.UpdateColumn("search_reading", next).Error
			} else {
				err = row.Update("search_reading", next).Error
			}
			if err != nil {
				return fmt.Errorf("update recipe %d: %w", rec.ID, err)
			}
		}
		if progress != nil {
			progress(stats)
		}
		return ctx.Err()
	})
	if res.Error != nil {
		return stats, fmt.Errorf("refresh search readings: %w", res.Error)
	}
	return stats, nil
}
