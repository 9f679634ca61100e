package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"recipehub/internal/recipes"
	"recipehub/pkg/database"
	"recipehub/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to YAML config (optional)")
		out        = flag.String("recipes", "data/recipes.csv", "output CSV path for recipes")
	)
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db := database.MustOpen(database.Config{Path: cfg.DBPath})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	defer f.Close()

	n, err := recipes.ExportCSV(ctx, db, f)
	if err != nil {
		log.Fatalf("export recipes failed: %v", err)
	}
	logger.Info("exported recipes", "path", *out, "rows", n)
}
