package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"recipehub/internal/app"
	"recipehub/internal/recipes"
	"recipehub/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to YAML config (optional)")
		missing    = flag.Bool("missing", false, "only rows whose search_reading is empty")
		chunk      = flag.Int("chunk", recipes.DefaultRefreshChunk, "rows per batch")
		dry        = flag.Bool("dry", false, "report what would change without writing")
		noTouch    = flag.Bool("no-touch", false, "do not bump updated_at")
	)
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := utils.NewLogger(cfg.LogLevel)

	a, err := app.Open(cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := recipes.RefreshOptions{
		MissingOnly: *missing,
		Chunk:       *chunk,
		DryRun:      *dry,
		NoTouch:     *noTouch,
	}
	logger.Info("refreshing search readings",
		"missing_only", opts.MissingOnly, "chunk", opts.Chunk, "dry_run", opts.DryRun, "no_touch", opts.NoTouch,
		"analyzer", a.Normalizer.AnalyzerName())

	stats, err := recipes.RefreshReadings(ctx, a.Gorm, a.Indexer, opts, func(s recipes.RefreshStats) {
		logger.Info("batch done", "scanned", s.Scanned, "updated", s.Updated, "unchanged", s.Unchanged)
	})
	if err != nil {
		logger.Error("refresh failed", "error", err, "scanned", stats.Scanned, "updated", stats.Updated)
		_ = a.Close()
		os.Exit(1)
	}

	verb := "updated"
	if opts.DryRun {
		verb = "would update"
	}
	logger.Info("refresh complete", "scanned", stats.Scanned, verb, stats.Updated, "unchanged", stats.Unchanged)
}
