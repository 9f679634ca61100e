// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"recipehub/pkg/database"
	"recipehub/pkg/models"
)

// OpenDB returns a migrated sqlite database under t.TempDir, closed on cleanup.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func Gorm(t testing.TB, db *sql.DB) *gorm.DB {
	t.Helper()
	gdb, err := database.Gorm(db)
	if err != nil {
		t.Fatalf("gorm: %v", err)
	}
	return gdb
}

// SeedUser inserts a user with the given uid and role and returns its id.
func SeedUser(t testing.TB, db *sql.DB, uid, name, role string) int64 {
	t.Helper()
	if role == "" {
		role = models.RoleUser
	}
	res, err := db.Exec(`INSERT INTO users (uid, name, email, role) VALUES (?, ?, ?, ?)`,
		uid, name, uid+"@example.com", role)
	if err != nil {
		t.Fatalf("seed user %s: %v", uid, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed user id: %v", err)
	}
	return id
}

// SeedRecipe inserts a recipe row directly, bypassing gorm hooks.
func SeedRecipe(t testing.TB, db *sql.DB, adminID int64, title string, published bool) int64 {
	t.Helper()
	res, err := db.Exec(`
		INSERT INTO recipes (title, servings, ingredients, instructions, admin_id, is_published, search_reading, created_at, updated_at)
		VALUES (?, '2人分', '材料', '作り方', ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, title, adminID, published, title)
	if err != nil {
		t.Fatalf("seed recipe %q: %v", title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed recipe id: %v", err)
	}
	return id
}
