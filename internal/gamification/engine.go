// Package gamification derives points, levels and achievements from alert
// history. Everything here is recomputed from the append-only tables; stored
// levels are a cache of this derivation, never a source of truth.
package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/communiconnect/insights/internal/models"
	"github.com/communiconnect/insights/internal/repository"
)

// UserStats is the aggregate shape every predicate and the point formula read.
type UserStats struct {
	TotalAlerts     int
	ConfirmedAlerts int
	FalseAlarms     int
	ResolvedAlerts  int
	HelpOffers      int
	AvgReliability  float64
	AchievementPts  int
}

// Points recomputes the user's score from the aggregate, floored at 0.
func (s UserStats) Points() int {
	pts := s.AchievementPts +
		int(math.Round(s.AvgReliability*0.5)) +
		s.HelpOffers*10 +
		s.ConfirmedAlerts*5 -
		s.FalseAlarms*20
	if pts < 0 {
		return 0
	}
	return pts
}

// LevelFor maps a point total onto the 1-6 ordinal.
func LevelFor(points int) int {
	switch {
	case points < 50:
		return 1
	case points < 100:
		return 2
	case points < 250:
		return 3
	case points < 500:
		return 4
	case points < 1000:
		return 5
	default:
		return 6
	}
}

// achievementRule pairs a point award with its unlock predicate.
type achievementRule struct {
	Type    models.AchievementType
	Points  int
	Unlocks func(UserStats) bool
}

// catalog is the fixed set of ten achievement kinds.
var catalog = []achievementRule{
	{models.AchievementFirstAlert, 10, func(s UserStats) bool {
		return s.TotalAlerts >= 1
	}},
	{models.AchievementActiveReporter, 25, func(s UserStats) bool {
		return s.TotalAlerts >= 5
	}},
	{models.AchievementWatchfulEye, 50, func(s UserStats) bool {
		return s.TotalAlerts >= 25
	}},
	{models.AchievementReliableUser, 75, func(s UserStats) bool {
		return s.TotalAlerts >= 10 &&
			float64(s.ConfirmedAlerts) >= 0.8*float64(s.TotalAlerts)
	}},
	{models.AchievementVerifiedExpert, 150, func(s UserStats) bool {
		return s.TotalAlerts >= 50 && s.ConfirmedAlerts >= 47 && s.FalseAlarms <= 2
	}},
	{models.AchievementFirstHelp, 10, func(s UserStats) bool {
		return s.HelpOffers >= 1
	}},
	{models.AchievementHelpfulCitizen, 40, func(s UserStats) bool {
		return s.HelpOffers >= 10
	}},
	{models.AchievementLocalHero, 100, func(s UserStats) bool {
		return s.HelpOffers >= 50
	}},
	{models.AchievementProblemSolver, 60, func(s UserStats) bool {
		return s.ResolvedAlerts >= 10
	}},
	{models.AchievementPillar, 200, func(s UserStats) bool {
		return s.TotalAlerts >= 20 && s.HelpOffers >= 20 && s.AvgReliability >= 80
	}},
}

type Engine struct {
	alerts repository.AlertRepository
	store  repository.GamificationRepository
}

func NewEngine(alerts repository.AlertRepository, store repository.GamificationRepository) *Engine {
	return &Engine{alerts: alerts, store: store}
}

func (e *Engine) stats(ctx context.Context, userID string) (UserStats, error) {
	counts, err := e.alerts.AuthorStatusCounts(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("status counts: %w", err)
	}
	helps, err := e.store.HelpOfferCountByUser(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("help offers: %w", err)
	}
	avgRel, err := e.store.AvgAlertReliability(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("avg reliability: %w", err)
	}
	achPts, err := e.store.SumAchievementPoints(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("achievement points: %w", err)
	}
	return UserStats{
		TotalAlerts:     counts.Total,
		ConfirmedAlerts: counts.Confirmed,
		FalseAlarms:     counts.FalseAlarms,
		ResolvedAlerts:  counts.Resolved,
		HelpOffers:      helps,
		AvgReliability:  avgRel,
		AchievementPts:  achPts,
	}, nil
}

// EvaluateUnlocks checks the full catalog against the user's current
// aggregates and grants whatever newly qualifies. The insert is atomic
// insert-if-absent, so concurrent evaluations for the same user cannot
// produce duplicate rows. The level is re-derived whenever at least one
// achievement was granted.
func (e *Engine) EvaluateUnlocks(ctx context.Context, userID string) ([]models.Achievement, error) {
	stats, err := e.stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user stats: %w", err)
	}

	var granted []models.Achievement
	for _, rule := range catalog {
		if !rule.Unlocks(stats) {
			continue
		}
		a := models.Achievement{
			ID:           uuid.NewString(),
			UserID:       userID,
			Type:         rule.Type,
			PointsEarned: rule.Points,
			EarnedAt:     time.Now().UTC(),
		}
		created, err := e.store.InsertAchievement(ctx, &a)
		if err != nil {
			return granted, fmt.Errorf("grant %s: %w", rule.Type, err)
		}
		if created {
			slog.Info("achievement unlocked", "user_id", userID, "type", rule.Type, "points", rule.Points)
			granted = append(granted, a)
		}
	}

	if len(granted) > 0 {
		if err := e.recomputeLevel(ctx, userID); err != nil {
			return granted, err
		}
	}
	return granted, nil
}

func (e *Engine) recomputeLevel(ctx context.Context, userID string) error {
	// Achievements granted this call change the point sum, so reload.
	stats, err := e.stats(ctx, userID)
	if err != nil {
		return fmt.Errorf("reload user stats: %w", err)
	}
	points := stats.Points()
	lvl := models.UserLevel{
		UserID:     userID,
		Level:      LevelFor(points),
		Points:     points,
		Experience: points,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := e.store.UpsertUserLevel(ctx, &lvl); err != nil {
		return fmt.Errorf("store level: %w", err)
	}
	return nil
}

// Stats bundles everything the per-user gamification endpoint returns.
type Stats struct {
	UserID       string               `json:"user_id"`
	Points       int                  `json:"points"`
	Level        int                  `json:"level"`
	LevelName    string               `json:"level_name"`
	TotalAlerts  int                  `json:"total_alerts"`
	Confirmed    int                  `json:"confirmed_alerts"`
	FalseAlarms  int                  `json:"false_alarms"`
	Resolved     int                  `json:"resolved_alerts"`
	HelpOffers   int                  `json:"help_offers"`
	Achievements []models.Achievement `json:"achievements"`
}

func (e *Engine) Stats(ctx context.Context, userID string) (*Stats, error) {
	stats, err := e.stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user stats: %w", err)
	}
	achievements, err := e.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}

	points := stats.Points()
	level := LevelFor(points)
	return &Stats{
		UserID:       userID,
		Points:       points,
		Level:        level,
		LevelName:    models.LevelName(level),
		TotalAlerts:  stats.TotalAlerts,
		Confirmed:    stats.ConfirmedAlerts,
		FalseAlarms:  stats.FalseAlarms,
		Resolved:     stats.ResolvedAlerts,
		HelpOffers:   stats.HelpOffers,
		Achievements: achievements,
	}, nil
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	Points    int    `json:"points"`
	Level     int    `json:"level"`
	LevelName string `json:"level_name"`
}

// Leaderboard ranks users active in the trailing 30 days by recomputed points,
// descending; ties break on ascending user ID so the ordering is deterministic.
func (e *Engine) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	since := time.Now().UTC().AddDate(0, 0, -30)
	ids, err := e.store.ActiveUserIDs(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(ids))
	for _, id := range ids {
		stats, err := e.stats(ctx, id)
		if err != nil {
			slog.Error("leaderboard stats failed, skipping user", "user_id", id, "error", err)
			continue
		}
		points := stats.Points()
		level := LevelFor(points)
		entries = append(entries, LeaderboardEntry{
			UserID:    id,
			Points:    points,
			Level:     level,
			LevelName: models.LevelName(level),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
