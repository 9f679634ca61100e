package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"recipehub/internal/app"
	"recipehub/internal/auth"
	"recipehub/internal/recipes"
	"recipehub/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to YAML config (optional)")
		in         = flag.String("recipes", "data/recipes.csv", "input CSV path for recipes")
		adminUID   = flag.String("admin-uid", "", "identity UID of the admin that owns the imported recipes")
	)
	flag.Parse()
	if *adminUID == "" {
		log.Fatal("-admin-uid is required")
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	owner, err := auth.NewRepo(a.DB).GetByUID(ctx, *adminUID)
	if err != nil {
		log.Fatalf("load admin: %v", err)
	}
	if owner == nil || !owner.IsAdmin() {
		log.Fatalf("no admin with uid %q", *adminUID)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("open %s: %v", *in, err)
	}
	defer f.Close()

	stats, err := recipes.ImportCSV(ctx, recipes.NewRepo(a.Gorm, a.Matcher), f, owner.ID)
	if err != nil {
		log.Fatalf("import recipes failed after %d rows: %v", stats.Imported, err)
	}
	logger.Info("imported recipes", "path", *in, "imported", stats.Imported, "skipped", stats.Skipped)
}
