package search

import (
	"context"
	"log/slog"
	"strings"

	"recipehub/pkg/models"
)

// Normalizer produces the hiragana reading of a string.
type Normalizer interface {
	Normalize(ctx context.Context, s string) (string, error)
}

// Fields are the recipe texts that feed search_reading.
type Fields struct {
	Title        string
	Genre        string
	Ingredients  string
	Instructions string
}

func FieldsOf(r *models.Recipe) Fields {
	return Fields{
		Title:        r.Title,
		Genre:        r.Genre,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
	}
}

// Plain joins the non-empty fields with single spaces.
func (f Fields) Plain() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{f.Title, f.Genre, f.Ingredients, f.Instructions} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

type Indexer struct {
	Normalizer Normalizer
	Logger     *slog.Logger
}

func NewIndexer(n Normalizer, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{Normalizer: n, Logger: logger}
}

// Reading builds the search_reading value: "<reading> <plain text>". If the
// normalizer fails only the plain text is stored. It never fails.
func (ix *Indexer) Reading(ctx context.Context, f Fields) string {
	plain := f.Plain()
	if plain == "" || ix.Normalizer == nil {
		return plain
	}

	hira, err := ix.Normalizer.Normalize(ctx, plain)
	if err != nil {
		ix.Logger.Warn("search reading normalization failed, storing plain text",
			"error", err)
		return plain
	}
	return strings.TrimSpace(hira + " " + plain)
}

// Apply recomputes r.SearchReading in place.
func (ix *Indexer) Apply(ctx context.Context, r *models.Recipe) {
	v := ix.Reading(ctx, FieldsOf(r))
	r.SearchReading = &v
}
