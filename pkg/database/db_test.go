package database

import (
	"path/filepath"
	"testing"
)

func TestOpenMigrateIdempotent(t *testing.T) {
	cfg := Config{Path: filepath.Join(t.TempDir(), "nested", "data.db")}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(db); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM recipes WHERE search_reading IS NULL`).Scan(&n); err != nil {
		t.Fatalf("recipes table missing search_reading: %v", err)
	}
}

func TestGormSharesPool(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "data.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO users (uid, name) VALUES ('u1', 'Alice')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	gdb, err := Gorm(db)
	if err != nil {
		t.Fatalf("Gorm: %v", err)
	}
	var count int64
	if err := gdb.Table("users").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
