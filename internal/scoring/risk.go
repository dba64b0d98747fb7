package scoring

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/communiconnect/insights/internal/models"
)

const earthRadiusKm = 6371.0

// Risk blend weights. False-alarm history dominates; the three pattern
// detectors share the remainder equally.
const (
	weightFalseAlarmRate = 0.4
	weightTemporal       = 0.2
	weightGeographic     = 0.2
	weightContent        = 0.2
)

// RiskScore estimates in [0,1] whether a user's next alert is likely a false
// alarm, from that user's full authored history. Fails closed to 0.
func (s *Scorer) RiskScore(ctx context.Context, userID string, now time.Time) float64 {
	history, err := s.alerts.ListAlertsByAuthor(ctx, userID)
	if err != nil {
		slog.Error("false-alarm risk aggregation failed", "user_id", userID, "error", err)
		return 0
	}
	return FalseAlarmRisk(history, now)
}

// FalseAlarmRisk combines the historical false-alarm rate with the temporal,
// geographic and content repetition detectors, clamped to 1.
func FalseAlarmRisk(history []models.Alert, now time.Time) float64 {
	// One record is no pattern.
	if len(history) < 2 {
		return 0
	}

	falseAlarms := 0
	for _, a := range history {
		if a.Status == models.StatusFalseAlarm {
			falseAlarms++
		}
	}
	falseAlarmRate := float64(falseAlarms) / float64(len(history))

	risk := weightFalseAlarmRate*falseAlarmRate +
		weightTemporal*temporalRisk(history, now) +
		weightGeographic*geographicRisk(history) +
		weightContent*contentRisk(history)

	if risk > 1 {
		risk = 1
	}
	return risk
}

// temporalRisk flags burst filing: more than 5 alerts in the trailing 7 days,
// or more than 3 alerts landing in the same hour of day within that window.
// Needs at least 3 historical records to say anything.
func temporalRisk(history []models.Alert, now time.Time) float64 {
	if len(history) < 3 {
		return 0
	}

	windowStart := now.AddDate(0, 0, -7)
	recent := 0
	perHour := make(map[int]int)
	for _, a := range history {
		if a.CreatedAt.Before(windowStart) || a.CreatedAt.After(now) {
			continue
		}
		recent++
		perHour[a.CreatedAt.Hour()]++
	}

	if recent > 5 {
		return 0.8
	}
	for _, n := range perHour {
		if n > 3 {
			return 0.6
		}
	}
	return 0
}

// geographicRisk flags implausible dispersion: any two of the user's geocoded
// alerts more than 100km apart. Ungeocoded records are skipped.
func geographicRisk(history []models.Alert) float64 {
	var coords []models.Coordinates
	for _, a := range history {
		if a.HasCoordinates() {
			coords = append(coords, a.Coordinates())
		}
	}
	if len(coords) < 2 {
		return 0
	}

	maxDist := 0.0
	for i := 0; i < len(coords); i++ {
		for j := i + 1; j < len(coords); j++ {
			if d := Haversine(coords[i], coords[j]); d > maxDist {
				maxDist = d
			}
		}
	}

	if maxDist > 100 {
		return 0.7
	}
	return 0
}

// contentRisk flags copy-paste filing: any title or description repeated more
// than twice across the history, case-insensitively.
func contentRisk(history []models.Alert) float64 {
	titles := make(map[string]int)
	descriptions := make(map[string]int)
	for _, a := range history {
		if t := strings.ToLower(strings.TrimSpace(a.Title)); t != "" {
			titles[t]++
		}
		if d := strings.ToLower(strings.TrimSpace(a.Description)); d != "" {
			descriptions[d]++
		}
	}

	for _, n := range titles {
		if n > 2 {
			return 0.8
		}
	}
	for _, n := range descriptions {
		if n > 2 {
			return 0.8
		}
	}
	return 0
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
