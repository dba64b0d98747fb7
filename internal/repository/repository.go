package repository

import (
	"context"
	"errors"
	"time"

	"github.com/communiconnect/insights/internal/models"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// StatusCounts aggregates an author's alert history by outcome.
type StatusCounts struct {
	Total       int
	Confirmed   int
	FalseAlarms int
	Resolved    int
}

type DailyCount struct {
	Day   time.Time
	Count int
}

// QuartierCount is a per-quartier alert aggregate with the dominant category
// and the centroid of geocoded alerts, used for hotspot reporting.
type QuartierCount struct {
	Quartier  string
	Count     int
	Category  models.AlertCategory
	Latitude  float64
	Longitude float64
}

type CategoryCount struct {
	Category string
	Count    int
}

// EngagementCounts aggregates community participation in a window.
type EngagementCounts struct {
	Alerts     int
	Reports    int
	HelpOffers int
}

type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus, resolvedAt *time.Time) error
	SetAlertReliability(ctx context.Context, id string, score float64) error
	ListAlertsByAuthor(ctx context.Context, authorID string) ([]models.Alert, error)
	AuthorStatusCounts(ctx context.Context, authorID string) (StatusCounts, error)
	AddReport(ctx context.Context, r *models.AlertReport) error
	ReportCounts(ctx context.Context, alertID string) (confirmed, falseAlarm int, err error)
	AddHelpOffer(ctx context.Context, h *models.HelpOffer) error
}

type AnalyticsRepository interface {
	DailyAlertCounts(ctx context.Context, since time.Time) ([]DailyCount, error)
	QuartierAlertCounts(ctx context.Context, since time.Time) ([]QuartierCount, error)
	CategoryAlertCounts(ctx context.Context, since time.Time) ([]CategoryCount, error)
	AuthorReliabilityScores(ctx context.Context) ([]float64, error)
	ResolutionLatencies(ctx context.Context, since time.Time) ([]time.Duration, error)
	FirstHelpLatencies(ctx context.Context, since time.Time) ([]time.Duration, error)
	Engagement(ctx context.Context, since time.Time) (EngagementCounts, error)
}

type GamificationRepository interface {
	// InsertAchievement is atomic insert-if-absent over the (user, type)
	// uniqueness constraint. It reports whether a new row was created.
	InsertAchievement(ctx context.Context, a *models.Achievement) (bool, error)
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
	SumAchievementPoints(ctx context.Context, userID string) (int, error)
	UpsertUserLevel(ctx context.Context, lvl *models.UserLevel) error
	GetUserLevel(ctx context.Context, userID string) (*models.UserLevel, error)
	HelpOfferCountByUser(ctx context.Context, userID string) (int, error)
	AvgAlertReliability(ctx context.Context, authorID string) (float64, error)
	ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

type PostRepository interface {
	AddPost(ctx context.Context, p *models.Post) error
	AddLike(ctx context.Context, l *models.PostLike) error
	AddComment(ctx context.Context, c *models.PostComment) error
	LikedPosts(ctx context.Context, userID string) ([]models.Post, error)
	PostsByQuartier(ctx context.Context, quartier string, limit int) ([]models.Post, error)
	SearchPosts(ctx context.Context, keyword string, limit int) ([]models.Post, error)
	// SharedLikeCounts maps other users to how many posts they liked in
	// common with userID.
	SharedLikeCounts(ctx context.Context, userID string) (map[string]int, error)
	ActiveUsersInQuartier(ctx context.Context, quartier string, since time.Time, limit int) ([]models.User, error)
	UserEngagement(ctx context.Context, userID string) (posts, likes, comments int, err error)
	UserActivityHours(ctx context.Context, userID string) ([]int, error)
	ReciprocalLikeCount(ctx context.Context, userID string) (int, error)
	LikedCategoryCounts(ctx context.Context, userID string) ([]CategoryCount, error)
	QuartierLikeRatio(ctx context.Context, userID string) (float64, error)
}

type UserRepository interface {
	AddUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}
