// Command backfill recomputes reliability scores and achievements for all
// recently active users in one pass, then exits. Useful after changing the
// scoring weights or importing historical data.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/communiconnect/insights/internal/config"
	"github.com/communiconnect/insights/internal/gamification"
	"github.com/communiconnect/insights/internal/logging"
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

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	scorer := scoring.NewScorer(db)
	game := gamification.NewEngine(db, db)
	sched := scheduler.New(db, db, scorer, game)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	sched.Recompute(ctx)
	slog.Info("backfill complete", "elapsed", time.Since(start))
}
