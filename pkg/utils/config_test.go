package utils

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultConfig()
	if cfg.Addr != def.Addr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, def.Addr)
	}
	if cfg.Reading.Analyzer != "kagome" {
		t.Errorf("Reading.Analyzer = %q, want kagome", cfg.Reading.Analyzer)
	}
	if cfg.Reading.Timeout != 300*time.Millisecond {
		t.Errorf("Reading.Timeout = %v, want 300ms", cfg.Reading.Timeout)
	}
	if cfg.Reading.MaxInputRunes != 1000 {
		t.Errorf("Reading.MaxInputRunes = %d, want 1000", cfg.Reading.MaxInputRunes)
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
addr: ":9000"
db_path: "/tmp/recipes.db"
auth:
  jwt_issuer: "idp"
reading:
  analyzer: "mecab"
  timeout: 150ms
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECIPEHUB_DB_PATH", "/data/override.db")
	t.Setenv("RECIPEHUB_READING_MAX_INPUT", "200")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "/data/override.db" {
		t.Errorf("DBPath = %q, want env override", cfg.DBPath)
	}
	if cfg.Auth.JWTIssuer != "idp" {
		t.Errorf("JWTIssuer = %q", cfg.Auth.JWTIssuer)
	}
	if cfg.Auth.JWTSecret != "dev-secret-change-me" {
		t.Errorf("JWTSecret should keep default, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Reading.Analyzer != "mecab" || cfg.Reading.Timeout != 150*time.Millisecond {
		t.Errorf("Reading = %+v", cfg.Reading)
	}
	if cfg.Reading.MaxInputRunes != 200 {
		t.Errorf("MaxInputRunes = %d, want 200", cfg.Reading.MaxInputRunes)
	}
}

func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("RECIPEHUB_READING_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		l := NewLogger(tt.level)
		if !l.Enabled(context.Background(), tt.want) {
			t.Errorf("NewLogger(%q) should enable %v", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-4) {
			t.Errorf("NewLogger(%q) should not enable %v", tt.level, tt.want-4)
		}
	}
}
