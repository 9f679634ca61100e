package search

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"gorm.io/gorm"

	"recipehub/internal/reading"
	"recipehub/pkg/models"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"カレー", []string{"カレー"}},
		{"鶏肉 カレー", []string{"鶏肉", "カレー"}},
		{"鶏肉　カレー", []string{"鶏肉", "カレー"}},
		{" 鶏肉\t　 カレー\n", []string{"鶏肉", "カレー"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct{ in, want string }{
		{"カレー", "%カレー%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		if got := LikePattern(tt.in); got != tt.want {
			t.Errorf("LikePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatcherFilter_Shape(t *testing.T) {
	m := NewMatcher(reading.New(nil), nil)
	ctx := context.Background()

	if f := m.Filter(ctx, " 　 "); !f.Empty() {
		t.Fatalf("blank keyword produced %q", f.SQL)
	}

	// Already hiragana: no separate phonetic clause.
	f := m.Filter(ctx, "かれー")
	if got := strings.Count(f.SQL, "LIKE"); got != 4 || len(f.Args) != 4 {
		t.Fatalf("hiragana token: %d clauses, %d args", got, len(f.Args))
	}

	f = m.Filter(ctx, "鶏肉 カレー")
	if strings.Count(f.SQL, " AND ") != 1 {
		t.Fatalf("want one AND between tokens: %q", f.SQL)
	}
	if len(f.Args) != 9 {
		t.Fatalf("args = %d, want 4 + 5", len(f.Args))
	}
	if f.Args[len(f.Args)-1] != "%かれー%" {
		t.Fatalf("last arg = %v, want hiragana pattern", f.Args[len(f.Args)-1])
	}
}

func TestMatcherFilter_TokenFailureDegrades(t *testing.T) {
	m := NewMatcher(stubNormalizer{err: errors.New("down")}, nil)
	f := m.Filter(context.Background(), "カレー")
	if len(f.Args) != 4 {
		t.Fatalf("args = %d, want raw clauses only", len(f.Args))
	}
}

func search(t *testing.T, db *gorm.DB, m *Matcher, keyword string) []string {
	t.Helper()
	var rows []models.Recipe
	q := m.Apply(context.Background(), db.Model(&models.Recipe{}).Where("recipes.is_published = ?", true), keyword)
	if err := q.Order("recipes.id").Find(&rows).Error; err != nil {
		t.Fatalf("search %q: %v", keyword, err)
	}
	titles := make([]string, 0, len(rows))
	for _, r := range rows {
		titles = append(titles, r.Title)
	}
	sort.Strings(titles)
	return titles
}

func TestMatcher_Scenarios(t *testing.T) {
	n := reading.New(nil)
	db := openTestDB(t, n)
	m := NewMatcher(n, nil)

	saveRecipe(t, db, models.Recipe{Title: "チキンカレー", Genre: "洋食", Ingredients: "鶏肉 玉ねぎ"})
	saveRecipe(t, db, models.Recipe{Title: "鶏肉カレー", Ingredients: "鶏肉"})
	saveRecipe(t, db, models.Recipe{Title: "鶏肉炒め", Ingredients: "鶏肉 ピーマン"})
	saveRecipe(t, db, models.Recipe{Title: "100%オレンジゼリー", Ingredients: "オレンジ"})
	saveRecipe(t, db, models.Recipe{Title: "ｶﾚｰうどん", Ingredients: "うどん"})

	tests := []struct {
		name    string
		keyword string
		want    []string
	}{
		{"katakana title from hiragana query", "ちきんかれー", []string{"チキンカレー"}},
		{"multi-token AND", "鶏肉 カレー", []string{"チキンカレー", "鶏肉カレー"}},
		{"full-width separator", "鶏肉　炒め", []string{"鶏肉炒め"}},
		{"half-width kana folded at index time", "かれーうどん", []string{"ｶﾚｰうどん"}},
		{"genre hit", "洋食", []string{"チキンカレー"}},
		{"percent is literal", "100%", []string{"100%オレンジゼリー"}},
		{"percent alone matches only literal percent", "%", []string{"100%オレンジゼリー"}},
		{"underscore is literal", "_", nil},
		{"no match", "存在しない文字列", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := search(t, db, m, tt.keyword)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("search(%q) = %q, want %q", tt.keyword, got, want)
			}
		})
	}
}

func TestMatcher_EmptyKeywordPassthrough(t *testing.T) {
	n := reading.New(nil)
	db := openTestDB(t, n)
	m := NewMatcher(n, nil)

	saveRecipe(t, db, models.Recipe{Title: "親子丼"})
	saveRecipe(t, db, models.Recipe{Title: "カツ丼"})
	hidden := saveRecipe(t, db, models.Recipe{Title: "牛丼"})
	if err := db.Model(&hidden).Update("is_published", false).Error; err != nil {
		t.Fatalf("unpublish: %v", err)
	}

	var base int64
	if err := db.Model(&models.Recipe{}).Where("is_published = ?", true).Count(&base).Error; err != nil {
		t.Fatal(err)
	}
	for _, kw := range []string{"", "  ", "　"} {
		if got := search(t, db, m, kw); int64(len(got)) != base {
			t.Fatalf("search(%q) returned %d rows, base has %d", kw, len(got), base)
		}
	}
}

// A kanji title is reachable from a kana query once the analyzer reads it.
func TestMatcher_PhoneticMatchWithAnalyzer(t *testing.T) {
	n := stubNormalizer{readings: map[string]string{
		"鶏肉のカレー にんじん": "とりにくのかれー にんじん",
	}}
	db := openTestDB(t, n)
	m := NewMatcher(n, nil)

	saveRecipe(t, db, models.Recipe{Title: "鶏肉のカレー", Ingredients: "にんじん"})
	saveRecipe(t, db, models.Recipe{Title: "親子丼"})

	for _, kw := range []string{"とりにく", "トリニク", "とりにく かれー"} {
		got := search(t, db, m, kw)
		if len(got) != 1 || got[0] != "鶏肉のカレー" {
			t.Errorf("search(%q) = %q", kw, got)
		}
	}
}

func TestMatcher_Kagome(t *testing.T) {
	k, err := reading.NewKagomeAnalyzer()
	if err != nil {
		t.Skipf("kagome: %v", err)
	}
	n := reading.New(k)
	db := openTestDB(t, n)
	m := NewMatcher(n, nil)

	saveRecipe(t, db, models.Recipe{Title: "猫まんま", Ingredients: "ご飯"})

	if got := search(t, db, m, "ねこ"); len(got) != 1 {
		t.Fatalf("search(ねこ) = %q", got)
	}
	if got := search(t, db, m, "ネコ"); len(got) != 1 {
		t.Fatalf("search(ネコ) = %q", got)
	}
}

func TestMatcher_KagomeKanaRoundTrip(t *testing.T) {
	k, err := reading.NewKagomeAnalyzer()
	if err != nil {
		t.Skipf("kagome: %v", err)
	}
	n := reading.New(k)
	db := openTestDB(t, n)
	m := NewMatcher(n, nil)

	saveRecipe(t, db, models.Recipe{Title: "チキンカレー", Ingredients: "鶏肉"})
	saveRecipe(t, db, models.Recipe{Title: "ちきんかれー丼"})
	saveRecipe(t, db, models.Recipe{Title: "親子丼"})

	for _, kw := range []string{"ちきんかれー", "チキンカレー", "ﾁｷﾝｶﾚｰ"} {
		got := search(t, db, m, kw)
		if len(got) != 2 {
			t.Errorf("search(%q) = %q, want both curry recipes", kw, got)
		}
	}
}
