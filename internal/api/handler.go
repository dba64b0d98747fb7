package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/communiconnect/insights/internal/analytics"
	"github.com/communiconnect/insights/internal/events"
	"github.com/communiconnect/insights/internal/gamification"
	"github.com/communiconnect/insights/internal/models"
	"github.com/communiconnect/insights/internal/recommend"
	"github.com/communiconnect/insights/internal/repository"
)

const leaderboardCacheKey = "leaderboard"

type Handler struct {
	alerts    repository.AlertRepository
	recommend *recommend.Engine
	analytics *analytics.Service
	game      *gamification.Engine
	bus       *events.Bus
	cache     *gocache.Cache
}

func NewHandler(alerts repository.AlertRepository, rec *recommend.Engine, an *analytics.Service, game *gamification.Engine, bus *events.Bus, leaderboardTTL time.Duration) *Handler {
	return &Handler{
		alerts:    alerts,
		recommend: rec,
		analytics: an,
		game:      game,
		bus:       bus,
		cache:     gocache.New(leaderboardTTL, 2*leaderboardTTL),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	v1 := r.Group("/api/v1", RequireUser())

	v1.GET("/recommendations", h.getRecommendations)
	v1.GET("/recommendations/behavior", h.getBehavior)
	v1.GET("/recommendations/trending", h.getTrending)
	v1.GET("/recommendations/optimization", h.getOptimization)
	v1.GET("/recommendations/insights", h.getInsights)
	v1.POST("/recommendations/feedback", h.postFeedback)

	v1.GET("/analytics/trends", h.getTrends)
	v1.GET("/analytics/hotspots", h.getHotspots)
	v1.GET("/analytics/reliability", h.getReliability)
	v1.GET("/analytics/response-time", h.getResponseTimes)
	v1.GET("/analytics/engagement", h.getEngagement)
	v1.GET("/analytics/geographic", h.getGeographic)
	v1.GET("/analytics/comprehensive-report", h.getComprehensiveReport)

	v1.GET("/gamification/achievements", h.getAchievements)
	v1.GET("/gamification/leaderboard", h.getLeaderboard)
	v1.GET("/gamification/stats", h.getStats)

	v1.POST("/alerts", h.createAlert)
	v1.POST("/alerts/:id/report", h.reportAlert)
	v1.POST("/alerts/:id/help", h.offerHelp)
	v1.POST("/alerts/:id/resolve", h.resolveAlert)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getRecommendations(c *gin.Context) {
	opts := recommend.Options{
		Limit:             queryInt(c, "limit", 10),
		IncludePosts:      queryBool(c, "include_posts", true),
		IncludeUsers:      queryBool(c, "include_users", true),
		IncludeContent:    queryBool(c, "include_content", true),
		IncludeActivities: queryBool(c, "include_activities", true),
	}

	bundle, err := h.recommend.Recommend(c.Request.Context(), userID(c), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build recommendations"})
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (h *Handler) getBehavior(c *gin.Context) {
	profile, err := h.recommend.Profile(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build behavior profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) getTrending(c *gin.Context) {
	quartier := c.Query("quartier_id")
	if quartier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quartier_id is required"})
		return
	}

	trending, err := h.recommend.Trending(c.Request.Context(), quartier, queryInt(c, "limit", 10))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute trending content"})
		return
	}
	c.JSON(http.StatusOK, trending)
}

func (h *Handler) getOptimization(c *gin.Context) {
	opt, err := h.recommend.Optimize(c.Request.Context(), userID(c), c.DefaultQuery("content_type", "general"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute optimization"})
		return
	}
	c.JSON(http.StatusOK, opt)
}

func (h *Handler) getInsights(c *gin.Context) {
	insights, err := h.recommend.Insights(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute insights"})
		return
	}
	c.JSON(http.StatusOK, insights)
}

type feedbackRequest struct {
	RecommendationID string `json:"recommendation_id"`
	Action           string `json:"action" binding:"required"`
	TargetType       string `json:"target_type"`
	TargetID         string `json:"target_id"`
}

// postFeedback only records the signal for now; nothing downstream consumes
// it yet. TODO: feed accepted/dismissed signals back into the post blending
// weights once enough volume accumulates.
func (h *Handler) postFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback payload"})
		return
	}

	logFeedback(userID(c), req)
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (h *Handler) getTrends(c *gin.Context) {
	report, err := h.analytics.Trends(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute trends"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getHotspots(c *gin.Context) {
	fc, err := h.analytics.Hotspots(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute hotspots"})
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getReliability(c *gin.Context) {
	report, err := h.analytics.Reliability(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute reliability distribution"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getResponseTimes(c *gin.Context) {
	report, err := h.analytics.ResponseTimes(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute response times"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getEngagement(c *gin.Context) {
	report, err := h.analytics.Engagement(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute engagement"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getGeographic(c *gin.Context) {
	report, err := h.analytics.Geographic(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute geographic distribution"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getComprehensiveReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.analytics.Comprehensive(c.Request.Context(), time.Now().UTC()))
}

func (h *Handler) getAchievements(c *gin.Context) {
	stats, err := h.game.Stats(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load achievements"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"achievements": stats.Achievements,
		"points":       stats.Points,
		"level":        stats.Level,
		"level_name":   stats.LevelName,
	})
}

func (h *Handler) getLeaderboard(c *gin.Context) {
	limit := queryInt(c, "limit", 10)

	if cached, ok := h.cache.Get(leaderboardCacheKey); ok {
		entries := cached.([]gamification.LeaderboardEntry)
		if limit < len(entries) {
			entries = entries[:limit]
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
		return
	}

	entries, err := h.game.Leaderboard(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute leaderboard"})
		return
	}
	h.cache.Set(leaderboardCacheKey, entries, gocache.DefaultExpiration)

	if limit < len(entries) {
		entries = entries[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.game.Stats(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type createAlertRequest struct {
	Category    models.AlertCategory `json:"category" binding:"required"`
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	Latitude    *float64             `json:"latitude"`
	Longitude   *float64             `json:"longitude"`
	Quartier    string               `json:"quartier"`
	City        string               `json:"city"`
}

func (h *Handler) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert payload"})
		return
	}
	if !validCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	alert := &models.Alert{
		ID:          uuid.NewString(),
		AuthorID:    userID(c),
		Category:    req.Category,
		Status:      models.StatusOpen,
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Quartier:    req.Quartier,
		City:        req.City,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.alerts.AddAlert(c.Request.Context(), alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create alert"})
		return
	}

	h.bus.Publish(events.AlertEvent{
		Kind:     events.AlertCreated,
		AlertID:  alert.ID,
		AuthorID: alert.AuthorID,
		ActorID:  alert.AuthorID,
		At:       alert.CreatedAt,
	})

	c.JSON(http.StatusCreated, alert)
}

type reportAlertRequest struct {
	Type models.ReportType `json:"type" binding:"required"`
}

func (h *Handler) reportAlert(c *gin.Context) {
	var req reportAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report payload"})
		return
	}
	if req.Type != models.ReportConfirmed && req.Type != models.ReportFalseAlarm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown report type"})
		return
	}

	alert, err := h.alerts.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}

	report := &models.AlertReport{
		ID:         uuid.NewString(),
		AlertID:    alert.ID,
		ReporterID: userID(c),
		Type:       req.Type,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.alerts.AddReport(c.Request.Context(), report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record report"})
		return
	}

	// A community consensus flips the alert status.
	confirmed, falseAlarm, err := h.alerts.ReportCounts(c.Request.Context(), alert.ID)
	if err == nil && alert.Status == models.StatusOpen {
		var flipErr error
		switch {
		case confirmed >= 3 && confirmed > falseAlarm:
			flipErr = h.alerts.UpdateAlertStatus(c.Request.Context(), alert.ID, models.StatusConfirmed, nil)
		case falseAlarm >= 3 && falseAlarm > confirmed:
			flipErr = h.alerts.UpdateAlertStatus(c.Request.Context(), alert.ID, models.StatusFalseAlarm, nil)
		}
		if flipErr != nil {
			slog.Error("error updating alert status from consensus", "alert_id", alert.ID, "error", flipErr)
		}
	}

	h.bus.Publish(events.AlertEvent{
		Kind:     events.AlertReported,
		AlertID:  alert.ID,
		AuthorID: alert.AuthorID,
		ActorID:  report.ReporterID,
		At:       report.CreatedAt,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "recorded", "id": report.ID})
}

type helpOfferRequest struct {
	Message string `json:"message"`
}

func (h *Handler) offerHelp(c *gin.Context) {
	var req helpOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid help payload"})
		return
	}

	alert, err := h.alerts.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}

	offer := &models.HelpOffer{
		ID:        uuid.NewString(),
		AlertID:   alert.ID,
		HelperID:  userID(c),
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.alerts.AddHelpOffer(c.Request.Context(), offer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record help offer"})
		return
	}

	h.bus.Publish(events.AlertEvent{
		Kind:     events.AlertHelpOffered,
		AlertID:  alert.ID,
		AuthorID: alert.AuthorID,
		ActorID:  offer.HelperID,
		At:       offer.CreatedAt,
	})

	c.JSON(http.StatusCreated, gin.H{"status": "recorded", "id": offer.ID})
}

func (h *Handler) resolveAlert(c *gin.Context) {
	alert, err := h.alerts.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if alert.Status == models.StatusResolved {
		c.JSON(http.StatusConflict, gin.H{"error": "alert already resolved"})
		return
	}

	now := time.Now().UTC()
	if err := h.alerts.UpdateAlertStatus(c.Request.Context(), alert.ID, models.StatusResolved, &now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve alert"})
		return
	}

	h.bus.Publish(events.AlertEvent{
		Kind:     events.AlertResolved,
		AlertID:  alert.ID,
		AuthorID: alert.AuthorID,
		ActorID:  userID(c),
		At:       now,
	})

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func validCategory(cat models.AlertCategory) bool {
	switch cat {
	case models.CategoryFire, models.CategoryPowerOutage, models.CategoryRoadBlocked,
		models.CategorySecurity, models.CategoryMedical, models.CategoryFlood,
		models.CategoryGasLeak, models.CategoryNoise, models.CategoryVandalism,
		models.CategoryOther:
		return true
	}
	return false
}

func queryInt(c *gin.Context, name string, def int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}

func queryBool(c *gin.Context, name string, def bool) bool {
	if v := c.Query(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
