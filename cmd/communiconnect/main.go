package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/communiconnect/insights/internal/analytics"
	"github.com/communiconnect/insights/internal/api"
	"github.com/communiconnect/insights/internal/config"
	"github.com/communiconnect/insights/internal/events"
	"github.com/communiconnect/insights/internal/gamification"
	"github.com/communiconnect/insights/internal/logging"
	"github.com/communiconnect/insights/internal/moderation"
	"github.com/communiconnect/insights/internal/recommend"
	"github.com/communiconnect/insights/internal/repository"
	"github.com/communiconnect/insights/internal/scheduler"
	"github.com/communiconnect/insights/internal/scoring"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	analyzer, err := moderation.New(cfg.Analyzer)
	if err != nil {
		logging.Fatalf("Failed to initialize content analyzer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scorer := scoring.NewScorer(db)
	game := gamification.NewEngine(db, db)
	rec := recommend.NewEngine(db, db, cfg.Cache.RecommendationTTL)
	an := analytics.NewService(db)

	bus := events.NewBus()
	dispatcher := events.NewDispatcher(cfg, bus, db, scorer, game, analyzer)
	dispatcher.Start(ctx)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(db, db, scorer, game)
		if err := sched.Start(cfg.Scheduler.RecomputeSchedule); err != nil {
			logging.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	handler := api.NewHandler(db, rec, an, game, bus, cfg.Cache.LeaderboardTTL)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	if sched != nil {
		sched.Stop()
	}
	dispatcher.Stop()
	bus.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
