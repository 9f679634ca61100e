package recipes

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{
	"id", "title", "genre", "servings", "ingredients", "instructions", "image_url",
	"is_published", "views_count", "likes_count", "search_reading", "created_at", "deleted_at",
}

// ExportCSV writes every recipe, trashed rows included, with its stored
// search_reading. The output is accepted by ImportCSV.
func ExportCSV(ctx context.Context, db *sql.DB, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, genre, servings, ingredients, instructions, image_url,
		       is_published, views_count, likes_count, search_reading, created_at, deleted_at
		FROM recipes
		ORDER BY id
	`)
	if err != nil {
		return 0, fmt.Errorf("export query: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			id                   int64
			title, genre         string
			servings, ingr, inst string
			imageURL             string
			published            bool
			views, likes         int
			searchReading        sql.NullString
			createdAt, deletedAt sql.NullTime
		)
		if err := rows.Scan(&id, &title, &genre, &servings, &ingr, &inst, &imageURL,
			&published, &views, &likes, &searchReading, &createdAt, &deletedAt); err != nil {
			return n, fmt.Errorf("export scan: %w", err)
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			title,
			genre,
			servings,
			ingr,
			inst,
			imageURL,
			strconv.FormatBool(published),
			strconv.Itoa(views),
			strconv.Itoa(likes),
			searchReading.String,
			formatTime(createdAt),
			formatTime(deletedAt),
		}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("export rows: %w", err)
	}

	w.Flush()
	return n, w.Error()
}

func formatTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339)
}
