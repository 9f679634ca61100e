package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string        `yaml:"addr"`
	DBPath   string        `yaml:"db_path"`
	LogLevel string        `yaml:"log_level"`
	Auth     AuthConfig    `yaml:"auth"`
	Reading  ReadingConfig `yaml:"reading"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
	// bcrypt hash of the code required by POST /api/admin/register.
	AdminCodeHash string `yaml:"admin_code_hash"`
	// Hosts allowed in profile avatar URLs; empty allows any http(s) host.
	AvatarHosts []string `yaml:"avatar_hosts"`
}

type ReadingConfig struct {
	// kagome, mecab or none
	Analyzer      string        `yaml:"analyzer"`
	Command       string        `yaml:"command"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxInputRunes int           `yaml:"max_input_runes"`
}

func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Addr:     ":8080",
		DBPath:   filepath.Join(home, ".recipehub", "data.db"),
		LogLevel: "info",
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "recipehub",
			AvatarHosts: []string{"firebasestorage.googleapis.com"},
		},
		Reading: ReadingConfig{
			Analyzer:      "kagome",
			Command:       "mecab -O yomi",
			Timeout:       300 * time.Millisecond,
			MaxInputRunes: 1000,
		},
	}
}

// Load reads the YAML file at path on top of DefaultConfig, then applies
// RECIPEHUB_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Addr, "RECIPEHUB_ADDR")
	setString(&cfg.DBPath, "RECIPEHUB_DB_PATH")
	setString(&cfg.LogLevel, "RECIPEHUB_LOG_LEVEL")
	setString(&cfg.Auth.JWTSecret, "RECIPEHUB_JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "RECIPEHUB_JWT_ISSUER")
	setString(&cfg.Auth.AdminCodeHash, "RECIPEHUB_ADMIN_CODE_HASH")
	if v := strings.TrimSpace(os.Getenv("RECIPEHUB_AVATAR_HOSTS")); v != "" {
		cfg.Auth.AvatarHosts = strings.Split(v, ",")
	}
	setString(&cfg.Reading.Analyzer, "RECIPEHUB_READING_ANALYZER")
	setString(&cfg.Reading.Command, "RECIPEHUB_READING_COMMAND")

	if v := os.Getenv("RECIPEHUB_READING_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RECIPEHUB_READING_TIMEOUT: %w", err)
		}
		cfg.Reading.Timeout = d
	}
	if v := os.Getenv("RECIPEHUB_READING_MAX_INPUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RECIPEHUB_READING_MAX_INPUT: %w", err)
		}
		cfg.Reading.MaxInputRunes = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
