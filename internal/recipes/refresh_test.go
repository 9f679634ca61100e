package recipes

import (
	"context"
	"testing"
	"time"

	"recipehub/internal/reading"
	"recipehub/internal/search"
	"recipehub/internal/testutil"
	"recipehub/pkg/models"
)

func TestRefreshReadings(t *testing.T) {
	sqlDB := testutil.OpenDB(t)
	gdb := testutil.Gorm(t, sqlDB)
	admin := testutil.SeedUser(t, sqlDB, "admin-uid", "Admin", models.RoleAdmin)

	// Rows written outside gorm carry a stale or missing reading.
	stale := testutil.SeedRecipe(t, sqlDB, admin, "チキンカレー", true)
	missing := testutil.SeedRecipe(t, sqlDB, admin, "カツ丼", true)
	if _, err := sqlDB.Exec(`UPDATE recipes SET search_reading = NULL WHERE id = ?`, missing); err != nil {
		t.Fatal(err)
	}
	trashed := testutil.SeedRecipe(t, sqlDB, admin, "オムライス", false)
	if _, err := sqlDB.Exec(`UPDATE recipes SET deleted_at = CURRENT_TIMESTAMP, search_reading = '' WHERE id = ?`, trashed); err != nil {
		t.Fatal(err)
	}

	ix := search.NewIndexer(reading.New(nil), nil)
	ctx := context.Background()

	readingOf := func(id int64) string {
		t.Helper()
		var s *string
		if err := sqlDB.QueryRow(`SELECT search_reading FROM recipes WHERE id = ?`, id).Scan(&s); err != nil {
			t.Fatal(err)
		}
		if s == nil {
			return "<nil>"
		}
		return *s
	}
	updatedAt := func(id int64) time.Time {
		t.Helper()
		var ts time.Time
		if err := sqlDB.QueryRow(`SELECT updated_at FROM recipes WHERE id = ?`, id).Scan(&ts); err != nil {
			t.Fatal(err)
		}
		return ts
	}

	t.Run("dry run writes nothing", func(t *testing.T) {
		stats, err := RefreshReadings(ctx, gdb, ix, RefreshOptions{DryRun: true}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Scanned != 3 || stats.Updated != 3 {
			t.Fatalf("stats = %+v", stats)
		}
		if got := readingOf(missing); got != "<nil>" {
			t.Fatalf("dry run wrote %q", got)
		}
	})

	t.Run("missing only, no touch", func(t *testing.T) {
		before := updatedAt(missing)
		var batches int
		stats, err := RefreshReadings(ctx, gdb, ix, RefreshOptions{MissingOnly: true, Chunk: 1, NoTouch: true},
			func(RefreshStats) { batches++ })
		if err != nil {
			t.Fatal(err)
		}
		if stats.Scanned != 2 || stats.Updated != 2 || batches != 2 {
			t.Fatalf("stats = %+v, batches = %d", stats, batches)
		}
		if got := readingOf(missing); got != "かつ丼 材料 作り方 カツ丼 材料 作り方" {
			t.Fatalf("missing row = %q", got)
		}
		if got := readingOf(trashed); got == "" {
			t.Fatal("trashed row not refreshed")
		}
		if got := readingOf(stale); got != "チキンカレー" {
			t.Fatalf("stale row touched by missing-only run: %q", got)
		}
		if after := updatedAt(missing); !after.Equal(before) {
			t.Fatalf("updated_at moved: %v -> %v", before, after)
		}
	})

	t.Run("full run converges", func(t *testing.T) {
		stats, err := RefreshReadings(ctx, gdb, ix, RefreshOptions{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Updated != 1 || stats.Unchanged != 2 {
			t.Fatalf("stats = %+v", stats)
		}
		if got := readingOf(stale); got != "ちきんかれー 材料 作り方 チキンカレー 材料 作り方" {
			t.Fatalf("stale row = %q", got)
		}

		stats, err = RefreshReadings(ctx, gdb, ix, RefreshOptions{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Updated != 0 || stats.Unchanged != 3 {
			t.Fatalf("second run stats = %+v", stats)
		}
	})
}
