package models

import "time"

type AlertCategory string

const (
	CategoryFire        AlertCategory = "fire"
	CategoryPowerOutage AlertCategory = "power_outage"
	CategoryRoadBlocked AlertCategory = "road_blocked"
	CategorySecurity    AlertCategory = "security"
	CategoryMedical     AlertCategory = "medical"
	CategoryFlood       AlertCategory = "flood"
	CategoryGasLeak     AlertCategory = "gas_leak"
	CategoryNoise       AlertCategory = "noise"
	CategoryVandalism   AlertCategory = "vandalism"
	CategoryOther       AlertCategory = "other"
)

type AlertStatus string

const (
	StatusOpen       AlertStatus = "open"
	StatusConfirmed  AlertStatus = "confirmed"
	StatusFalseAlarm AlertStatus = "false_alarm"
	StatusResolved   AlertStatus = "resolved"
)

// Alert is a community alert raised by a resident. Status is mutated by
// moderators and community reports; once resolved only analytics fields change.
type Alert struct {
	ID               string        `json:"id"`
	AuthorID         string        `json:"author_id"`
	Category         AlertCategory `json:"category"`
	Status           AlertStatus   `json:"status"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Latitude         *float64      `json:"latitude,omitempty"`
	Longitude        *float64      `json:"longitude,omitempty"`
	Quartier         string        `json:"quartier"`
	City             string        `json:"city"`
	ReliabilityScore float64       `json:"reliability_score"` // 0-100, derived, recomputed from history
	CreatedAt        time.Time     `json:"created_at"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// HasCoordinates reports whether the alert was geocoded at creation.
func (a *Alert) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

func (a *Alert) Coordinates() Coordinates {
	if !a.HasCoordinates() {
		return Coordinates{}
	}
	return Coordinates{Latitude: *a.Latitude, Longitude: *a.Longitude}
}

type ReportType string

const (
	ReportConfirmed  ReportType = "confirmed"
	ReportFalseAlarm ReportType = "false_alarm"
)

// AlertReport is an append-only community vote on an alert's veracity.
type AlertReport struct {
	ID         string
	AlertID    string
	ReporterID string
	Type       ReportType
	CreatedAt  time.Time
}

// HelpOffer is an append-only record of a user offering help on an alert.
type HelpOffer struct {
	ID        string
	AlertID   string
	HelperID  string
	Message   string
	CreatedAt time.Time
}
