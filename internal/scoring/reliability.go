package scoring

import (
	"context"
	"log/slog"

	"github.com/communiconnect/insights/internal/repository"
)

// NeutralScore is the new-user prior: users with no alert history score 50.
const NeutralScore = 50.0

// Scorer computes per-user reliability from historical alert outcomes.
// All storage failures degrade to the neutral default, never to the caller.
type Scorer struct {
	alerts repository.AlertRepository
}

func NewScorer(alerts repository.AlertRepository) *Scorer {
	return &Scorer{alerts: alerts}
}

// Score returns the user's reliability in [0,100]. The base score rewards a low
// false-alarm rate, with bonuses for confirmations and resolutions; prolific
// reporters earn a volume bonus. The final value is clamped to 100.
func (s *Scorer) Score(ctx context.Context, userID string) float64 {
	counts, err := s.alerts.AuthorStatusCounts(ctx, userID)
	if err != nil {
		slog.Error("reliability score aggregation failed", "user_id", userID, "error", err)
		return NeutralScore
	}
	return ScoreFromCounts(counts)
}

// ScoreFromCounts is the pure scoring formula over an outcome aggregate.
func ScoreFromCounts(c repository.StatusCounts) float64 {
	if c.Total == 0 {
		return NeutralScore
	}

	total := float64(c.Total)
	confirmationRate := float64(c.Confirmed) / total * 100
	falseAlarmRate := float64(c.FalseAlarms) / total * 100
	resolutionRate := float64(c.Resolved) / total * 100

	base := 100 - falseAlarmRate
	if base < 0 {
		base = 0
	}
	bonus := confirmationRate*0.3 + resolutionRate*0.2

	score := base + bonus
	if score > 100 {
		score = 100
	}

	// Volume bonus after the cap; the published contract stays 0-100 so the
	// final value is clamped again.
	if c.Total >= 10 {
		score += 10
	}
	if c.Total >= 50 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
