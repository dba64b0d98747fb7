package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/communiconnect/insights/internal/gamification"
	"github.com/communiconnect/insights/internal/repository"
	"github.com/communiconnect/insights/internal/scoring"
)

// Scheduler periodically recomputes reliability scores and achievements for
// recently active users, so scores converge even for users who stop posting.
type Scheduler struct {
	c      *cron.Cron
	alerts repository.AlertRepository
	store  repository.GamificationRepository
	scorer *scoring.Scorer
	engine *gamification.Engine
}

func New(alerts repository.AlertRepository, store repository.GamificationRepository, scorer *scoring.Scorer, engine *gamification.Engine) *Scheduler {
	return &Scheduler{
		c:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		alerts: alerts,
		store:  store,
		scorer: scorer,
		engine: engine,
	}
}

// Start registers the recompute job under the given cron expression and
// starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.c.AddFunc(schedule, func() {
		s.Recompute(context.Background())
	})
	if err != nil {
		return err
	}
	s.c.Start()
	slog.Info("scheduler started", "schedule", schedule)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

// Recompute refreshes alert reliability and achievements for every user
// active in the trailing 30 days. Per-user failures are logged and skipped.
func (s *Scheduler) Recompute(ctx context.Context) {
	since := time.Now().UTC().AddDate(0, 0, -30)
	ids, err := s.store.ActiveUserIDs(ctx, since)
	if err != nil {
		slog.Error("error listing active users", "error", err)
		return
	}

	var rescored, unlocked int
	for _, id := range ids {
		n, err := s.rescoreUser(ctx, id)
		if err != nil {
			slog.Error("error rescoring user", "user_id", id, "error", err)
			continue
		}
		rescored += n

		granted, err := s.engine.EvaluateUnlocks(ctx, id)
		if err != nil {
			slog.Error("error evaluating achievements", "user_id", id, "error", err)
			continue
		}
		unlocked += len(granted)
	}

	slog.Info("recompute complete", "users", len(ids), "alerts_rescored", rescored, "achievements_unlocked", unlocked)
}

func (s *Scheduler) rescoreUser(ctx context.Context, userID string) (int, error) {
	score := s.scorer.Score(ctx, userID)

	alerts, err := s.alerts.ListAlertsByAuthor(ctx, userID)
	if err != nil {
		return 0, err
	}

	var n int
	for _, a := range alerts {
		if err := s.alerts.SetAlertReliability(ctx, a.ID, score); err != nil {
			slog.Error("error updating alert score", "alert_id", a.ID, "error", err)
			continue
		}
		n++
	}
	return n, nil
}
