package recipes

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"recipehub/pkg/models"
)

type ImportStats struct {
	Imported int
	Skipped  int
}

// ImportCSV creates one recipe per CSV row through Repo.Create, so every row
// is indexed like an API save. The header names the columns: title,
// servings, ingredients and instructions are required; genre, image_url and
// is_published are optional. Rows failing validation are skipped.
func ImportCSV(ctx context.Context, repo *Repo, in io.Reader, adminID int64) (ImportStats, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return ImportStats{}, fmt.Errorf("read header: %w", err)
	}
	for _, col := range []string{"title", "servings", "ingredients", "instructions"} {
		if _, ok := header[col]; !ok {
			return ImportStats{}, fmt.Errorf("missing column %q", col)
		}
	}

	var stats ImportStats
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}

		req := recipeReq{
			Title:        valueAt(header, row, "title"),
			Genre:        valueAt(header, row, "genre"),
			Servings:     valueAt(header, row, "servings"),
			Ingredients:  valueAt(header, row, "ingredients"),
			Instructions: valueAt(header, row, "instructions"),
			ImageURL:     valueAt(header, row, "image_url"),
		}
		if raw := valueAt(header, row, "is_published"); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				stats.Skipped++
				continue
			}
			req.IsPublished = &b
		}
		if msg := req.validate(); msg != "" {
			stats.Skipped++
			continue
		}

		rec := models.Recipe{AdminID: adminID, IsPublished: true}
		req.applyTo(&rec)
		if err := repo.Create(ctx, &rec); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		stats.Imported++
	}
	return stats, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(strings.TrimPrefix(name, "\uFEFF")))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
