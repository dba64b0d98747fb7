package models

import "time"

type AchievementType string

const (
	AchievementFirstAlert     AchievementType = "first_alert"
	AchievementActiveReporter AchievementType = "active_reporter"
	AchievementReliableUser   AchievementType = "reliable_user"
	AchievementVerifiedExpert AchievementType = "verified_expert"
	AchievementFirstHelp      AchievementType = "first_help"
	AchievementHelpfulCitizen AchievementType = "helpful_citizen"
	AchievementLocalHero      AchievementType = "local_hero"
	AchievementProblemSolver  AchievementType = "problem_solver"
	AchievementWatchfulEye    AchievementType = "watchful_eye"
	AchievementPillar         AchievementType = "community_pillar"
)

// Achievement rows are created once per (user, type) pair and never mutated.
// The uniqueness constraint lives in the storage layer.
type Achievement struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         AchievementType `json:"type"`
	PointsEarned int             `json:"points_earned"`
	EarnedAt     time.Time       `json:"earned_at"`
}

// UserLevel is one row per user, recomputed whenever an achievement is granted.
type UserLevel struct {
	UserID     string
	Level      int // 1-6 ordinal
	Points     int
	Experience int
	UpdatedAt  time.Time
}

// LevelName maps the 1-6 ordinal to its display name.
func LevelName(level int) string {
	switch level {
	case 1:
		return "Débutant"
	case 2:
		return "Actif"
	case 3:
		return "Fiable"
	case 4:
		return "Expert"
	case 5:
		return "Maître"
	case 6:
		return "Légende"
	default:
		return "Débutant"
	}
}
