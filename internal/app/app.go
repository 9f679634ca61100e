// Package app wires the storage and search stack shared by the binaries.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"recipehub/internal/reading"
	"recipehub/internal/search"
	"recipehub/pkg/database"
	"recipehub/pkg/utils"
)

type App struct {
	Config     utils.Config
	Logger     *slog.Logger
	DB         *sql.DB
	Gorm       *gorm.DB
	Normalizer *reading.Normalizer
	Indexer    *search.Indexer
	Matcher    *search.Matcher
}

// Open connects and migrates the database and builds the reading stack. An
// analyzer that cannot start is logged and replaced by script folding; it
// never blocks startup.
func Open(cfg utils.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = utils.NewLogger(cfg.LogLevel)
	}

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	gdb, err := database.Gorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	analyzer, err := reading.NewAnalyzer(cfg.Reading.Analyzer, cfg.Reading.Command)
	if err != nil {
		logger.Warn("reading analyzer unavailable, using script folding only",
			"analyzer", cfg.Reading.Analyzer, "error", err)
		analyzer = nil
	}
	norm := reading.New(analyzer,
		reading.WithTimeout(cfg.Reading.Timeout),
		reading.WithMaxInputRunes(cfg.Reading.MaxInputRunes),
		reading.WithLogger(logger),
	)
	logger.Info("reading normalizer ready", "analyzer", norm.AnalyzerName())

	ix := search.NewIndexer(norm, logger)
	if err := search.RegisterHook(gdb, ix); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Gorm:       gdb,
		Normalizer: norm,
		Indexer:    ix,
		Matcher:    search.NewMatcher(norm, logger),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
