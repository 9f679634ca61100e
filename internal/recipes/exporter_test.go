package recipes

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"recipehub/internal/reading"
	"recipehub/internal/search"
	"recipehub/internal/testutil"
	"recipehub/pkg/models"
)

func TestExportCSV_RoundTripsThroughImport(t *testing.T) {
	ctx := context.Background()
	n := reading.New(nil)

	src := testutil.OpenDB(t)
	srcGorm := testutil.Gorm(t, src)
	if err := search.RegisterHook(srcGorm, search.NewIndexer(n, nil)); err != nil {
		t.Fatal(err)
	}
	admin := testutil.SeedUser(t, src, "admin", "Admin", models.RoleAdmin)
	srcRepo := NewRepo(srcGorm, search.NewMatcher(n, nil))
	for _, title := range []string{"チキンカレー", "親子丼, 卵とじ"} {
		rec := models.Recipe{Title: title, Servings: "2人分", Ingredients: "鶏肉", Instructions: "煮る", AdminID: admin, IsPublished: true}
		if err := srcRepo.Create(ctx, &rec); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	count, err := ExportCSV(ctx, src, &buf)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if count != 2 {
		t.Fatalf("exported %d rows", count)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := records[1][10]; !strings.HasPrefix(got, "ちきんかれー") {
		t.Fatalf("search_reading column = %q", got)
	}

	dst := testutil.OpenDB(t)
	dstGorm := testutil.Gorm(t, dst)
	if err := search.RegisterHook(dstGorm, search.NewIndexer(n, nil)); err != nil {
		t.Fatal(err)
	}
	dstAdmin := testutil.SeedUser(t, dst, "admin", "Admin", models.RoleAdmin)
	stats, err := ImportCSV(ctx, NewRepo(dstGorm, nil), &buf, dstAdmin)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if stats.Imported != 2 || stats.Skipped != 0 {
		t.Fatalf("import stats = %+v", stats)
	}
}
