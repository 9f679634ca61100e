package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"recipehub/internal/app"
	"recipehub/internal/auth"
	"recipehub/internal/comments"
	"recipehub/internal/likes"
	"recipehub/internal/live"
	"recipehub/internal/recipes"
	"recipehub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config (optional)")
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

	router := gin.New()
	router.Use(gin.Recovery(), app.RequestLogger(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := live.NewHub(logger)
	router.GET("/ws", live.Handler(hub))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"analyzer":   a.Normalizer.AnalyzerName(),
			"ws_clients": hub.Count(),
		})
	})

	tokens := auth.TokenService{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.JWTIssuer,
	}
	authRepo := auth.NewRepo(a.DB)
	authed := auth.Middleware(tokens, authRepo)

	api := router.Group("/api")
	protected := api.Group("", authed)
	admin := api.Group("/admin", authed, auth.AdminOnly())

	authHandler := auth.NewHandler(authRepo, tokens, cfg.Auth.AdminCodeHash, logger)
	authHandler.AvatarHosts = cfg.Auth.AvatarHosts
	authHandler.RegisterRoutes(api)

	likeRepo := likes.NewRepo(a.DB)
	likeHandler := likes.NewHandler(likeRepo, hub, logger)
	likeHandler.RegisterProtectedRoutes(protected)
	likeHandler.RegisterAdminRoutes(admin)

	recipeHandler := recipes.NewHandler(recipes.NewRepo(a.Gorm, a.Matcher), likeRepo, logger)
	recipeHandler.RegisterPublicRoutes(api)
	recipeHandler.RegisterProtectedRoutes(protected)
	recipeHandler.RegisterAdminRoutes(admin)

	commentHandler := comments.NewHandler(comments.NewRepo(a.DB), hub, logger)
	commentHandler.RegisterProtectedRoutes(protected)
	commentHandler.RegisterAdminRoutes(admin)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API server listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
