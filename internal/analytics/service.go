// Package analytics produces aggregate reports over the alert tables. Every
// report is a read-only query; nothing here writes.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/communiconnect/insights/internal/repository"
	"github.com/communiconnect/insights/internal/trend"
)

// DefaultWindow is how far back the windowed reports look.
const DefaultWindow = 30 * 24 * time.Hour

type Service struct {
	store repository.AnalyticsRepository
}

func NewService(store repository.AnalyticsRepository) *Service {
	return &Service{store: store}
}

type TrendReport struct {
	Window     string          `json:"window"`
	History    []DayCount      `json:"history"`
	Forecast   *trend.Forecast `json:"forecast,omitempty"`
	ByCategory []CategoryShare `json:"by_category"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type CategoryShare struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Trends reports daily alert volume with a 7-day forecast when enough history
// exists.
func (s *Service) Trends(ctx context.Context, now time.Time) (*TrendReport, error) {
	since := now.Add(-DefaultWindow)
	daily, err := s.store.DailyAlertCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}

	report := &TrendReport{Window: "30d"}
	history := make([]trend.DailyCount, 0, len(daily))
	for _, d := range daily {
		history = append(history, trend.DailyCount{Day: d.Day, Count: d.Count})
		report.History = append(report.History, DayCount{Day: d.Day.Format("2006-01-02"), Count: d.Count})
	}

	if fc, ok := trend.PredictWeek(history); ok {
		report.Forecast = &fc
	}

	cats, err := s.store.CategoryAlertCounts(ctx, since)
	if err != nil {
		slog.Error("category breakdown failed", "error", err)
	} else {
		for _, c := range cats {
			report.ByCategory = append(report.ByCategory, CategoryShare{Category: c.Category, Count: c.Count})
		}
	}
	return report, nil
}

// GeoJSON shapes for hotspot rendering.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Hotspots renders per-quartier alert density as a GeoJSON FeatureCollection,
// one point at each quartier's alert centroid.
func (s *Service) Hotspots(ctx context.Context, now time.Time) (FeatureCollection, error) {
	since := now.Add(-DefaultWindow)
	counts, err := s.store.QuartierAlertCounts(ctx, since)
	if err != nil {
		return FeatureCollection{}, fmt.Errorf("quartier counts: %w", err)
	}

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(counts))}
	for _, q := range counts {
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{q.Longitude, q.Latitude},
			},
			Properties: map[string]any{
				"quartier":          q.Quartier,
				"alert_count":       q.Count,
				"dominant_category": string(q.Category),
			},
		})
	}
	return fc, nil
}

type ReliabilityReport struct {
	Authors int     `json:"authors"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Low     int     `json:"low"`    // < 40
	Medium  int     `json:"medium"` // 40-70
	High    int     `json:"high"`   // > 70
}

func (s *Service) Reliability(ctx context.Context) (*ReliabilityReport, error) {
	scores, err := s.store.AuthorReliabilityScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("reliability scores: %w", err)
	}

	report := &ReliabilityReport{Authors: len(scores)}
	if len(scores) == 0 {
		return report, nil
	}

	sort.Float64s(scores)
	sum := 0.0
	for _, v := range scores {
		sum += v
		switch {
		case v < 40:
			report.Low++
		case v <= 70:
			report.Medium++
		default:
			report.High++
		}
	}
	report.Average = sum / float64(len(scores))
	report.Median = scores[len(scores)/2]
	if len(scores)%2 == 0 {
		report.Median = (scores[len(scores)/2-1] + scores[len(scores)/2]) / 2
	}
	return report, nil
}

type ResponseTimeReport struct {
	ResolvedAlerts     int     `json:"resolved_alerts"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
	HelpedAlerts       int     `json:"helped_alerts"`
	AvgFirstHelpMins   float64 `json:"avg_first_help_minutes"`
}

func (s *Service) ResponseTimes(ctx context.Context, now time.Time) (*ResponseTimeReport, error) {
	since := now.Add(-DefaultWindow)

	resolutions, err := s.store.ResolutionLatencies(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("resolution latencies: %w", err)
	}
	helps, err := s.store.FirstHelpLatencies(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("help latencies: %w", err)
	}

	report := &ResponseTimeReport{
		ResolvedAlerts: len(resolutions),
		HelpedAlerts:   len(helps),
	}
	if len(resolutions) > 0 {
		var total time.Duration
		for _, d := range resolutions {
			total += d
		}
		report.AvgResolutionHours = (total / time.Duration(len(resolutions))).Hours()
	}
	if len(helps) > 0 {
		var total time.Duration
		for _, d := range helps {
			total += d
		}
		report.AvgFirstHelpMins = (total / time.Duration(len(helps))).Minutes()
	}
	return report, nil
}

type EngagementReport struct {
	Window          string  `json:"window"`
	Alerts          int     `json:"alerts"`
	Reports         int     `json:"reports"`
	HelpOffers      int     `json:"help_offers"`
	ReportsPerAlert float64 `json:"reports_per_alert"`
	HelpPerAlert    float64 `json:"help_per_alert"`
}

func (s *Service) Engagement(ctx context.Context, now time.Time) (*EngagementReport, error) {
	counts, err := s.store.Engagement(ctx, now.Add(-DefaultWindow))
	if err != nil {
		return nil, fmt.Errorf("engagement: %w", err)
	}

	report := &EngagementReport{
		Window:     "30d",
		Alerts:     counts.Alerts,
		Reports:    counts.Reports,
		HelpOffers: counts.HelpOffers,
	}
	if counts.Alerts > 0 {
		report.ReportsPerAlert = float64(counts.Reports) / float64(counts.Alerts)
		report.HelpPerAlert = float64(counts.HelpOffers) / float64(counts.Alerts)
	}
	return report, nil
}

type GeographicReport struct {
	Quartiers []QuartierStat `json:"quartiers"`
}

type QuartierStat struct {
	Quartier         string  `json:"quartier"`
	AlertCount       int     `json:"alert_count"`
	DominantCategory string  `json:"dominant_category"`
	Share            float64 `json:"share"`
}

func (s *Service) Geographic(ctx context.Context, now time.Time) (*GeographicReport, error) {
	counts, err := s.store.QuartierAlertCounts(ctx, now.Add(-DefaultWindow))
	if err != nil {
		return nil, fmt.Errorf("quartier counts: %w", err)
	}

	total := 0
	for _, q := range counts {
		total += q.Count
	}

	report := &GeographicReport{Quartiers: make([]QuartierStat, 0, len(counts))}
	for _, q := range counts {
		stat := QuartierStat{
			Quartier:         q.Quartier,
			AlertCount:       q.Count,
			DominantCategory: string(q.Category),
		}
		if total > 0 {
			stat.Share = float64(q.Count) / float64(total)
		}
		report.Quartiers = append(report.Quartiers, stat)
	}
	return report, nil
}

// ComprehensiveReport unions every report. Individual failures degrade to nil
// sections rather than failing the union.
type ComprehensiveReport struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	Trends        *TrendReport        `json:"trends,omitempty"`
	Hotspots      *FeatureCollection  `json:"hotspots,omitempty"`
	Reliability   *ReliabilityReport  `json:"reliability,omitempty"`
	ResponseTimes *ResponseTimeReport `json:"response_times,omitempty"`
	Engagement    *EngagementReport   `json:"engagement,omitempty"`
	Geographic    *GeographicReport   `json:"geographic,omitempty"`
}

func (s *Service) Comprehensive(ctx context.Context, now time.Time) *ComprehensiveReport {
	report := &ComprehensiveReport{GeneratedAt: now}

	if trends, err := s.Trends(ctx, now); err != nil {
		slog.Error("comprehensive: trends failed", "error", err)
	} else {
		report.Trends = trends
	}
	if hotspots, err := s.Hotspots(ctx, now); err != nil {
		slog.Error("comprehensive: hotspots failed", "error", err)
	} else {
		report.Hotspots = &hotspots
	}
	if rel, err := s.Reliability(ctx); err != nil {
		slog.Error("comprehensive: reliability failed", "error", err)
	} else {
		report.Reliability = rel
	}
	if rt, err := s.ResponseTimes(ctx, now); err != nil {
		slog.Error("comprehensive: response times failed", "error", err)
	} else {
		report.ResponseTimes = rt
	}
	if eng, err := s.Engagement(ctx, now); err != nil {
		slog.Error("comprehensive: engagement failed", "error", err)
	} else {
		report.Engagement = eng
	}
	if geo, err := s.Geographic(ctx, now); err != nil {
		slog.Error("comprehensive: geographic failed", "error", err)
	} else {
		report.Geographic = geo
	}
	return report
}
