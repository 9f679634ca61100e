package search

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// Columns compared per token. search_reading is matched twice: against the
// raw token and against the token's hiragana reading.
var rawColumns = []string{
	"recipes.title",
	"recipes.genre",
	"recipes.ingredients",
	"recipes.search_reading",
}

const readingColumn = "recipes.search_reading"

// Tokenize splits keyword on runs of whitespace, including the ideographic
// space U+3000, and drops empty tokens.
func Tokenize(keyword string) []string {
	return strings.FieldsFunc(keyword, func(r rune) bool {
		return unicode.IsSpace(r) || r == '　'
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps s for a substring LIKE ... ESCAPE '\' match, escaping the
// LIKE wildcards so user input is always literal.
func LikePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func likeClause(column string) string {
	return column + ` LIKE ? ESCAPE '\'`
}

// Filter is a WHERE fragment with its bind args. The zero Filter matches
// everything.
type Filter struct {
	SQL  string
	Args []any
}

func (f Filter) Empty() bool { return f.SQL == "" }

// Scope applies the filter to db; usable with (*gorm.DB).Scopes.
func (f Filter) Scope(db *gorm.DB) *gorm.DB {
	if f.Empty() {
		return db
	}
	return db.Where(f.SQL, f.Args...)
}

type Matcher struct {
	Normalizer Normalizer
	Logger     *slog.Logger
}

func NewMatcher(n Normalizer, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{Normalizer: n, Logger: logger}
}

// Filter builds the predicate for keyword: every token must match (AND), and
// a token matches when any column contains it (OR).
func (m *Matcher) Filter(ctx context.Context, keyword string) Filter {
	tokens := Tokenize(keyword)
	if len(tokens) == 0 {
		return Filter{}
	}

	where := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)*(len(rawColumns)+1))

	for _, tok := range tokens {
		ors := make([]string, 0, len(rawColumns)+1)
		raw := LikePattern(tok)
		for _, col := range rawColumns {
			ors = append(ors, likeClause(col))
			args = append(args, raw)
		}

		if hira := m.reading(ctx, tok); hira != "" && hira != tok {
			ors = append(ors, likeClause(readingColumn))
			args = append(args, LikePattern(hira))
		}

		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	return Filter{SQL: strings.Join(where, " AND "), Args: args}
}

// Apply narrows base to the recipes matching keyword. An empty keyword
// returns base unchanged.
func (m *Matcher) Apply(ctx context.Context, base *gorm.DB, keyword string) *gorm.DB {
	return m.Filter(ctx, keyword).Scope(base)
}

// reading returns the token's hiragana form, or "" when it cannot be
// computed; the token then matches on raw text only.
func (m *Matcher) reading(ctx context.Context, tok string) string {
	if m.Normalizer == nil {
		return ""
	}
	hira, err := m.Normalizer.Normalize(ctx, tok)
	if err != nil {
		m.Logger.Warn("search token normalization failed, raw match only",
			"token", tok, "error", err)
		return ""
	}
	return hira
}
