// Package moderation analyzes alert content at creation time. The analyzer is
// a strategy chosen once at startup: a local heuristic, or a remote LLM that
// falls back to the heuristic when the call fails. No retries anywhere.
package moderation

import (
	"context"
	"fmt"

	"github.com/communiconnect/insights/internal/config"
	"github.com/communiconnect/insights/internal/models"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Analysis is the per-alert content assessment. Credibility seeds the alert's
// initial reliability score.
type Analysis struct {
	Credibility float64  `json:"credibility"` // 0-100
	Severity    Severity `json:"severity"`
	Suspicious  bool     `json:"suspicious"`
	Reason      string   `json:"reason,omitempty"`
}

type ContentAnalyzer interface {
	Analyze(ctx context.Context, title, description string, category models.AlertCategory) (Analysis, error)
}

// New selects the analyzer implementation from configuration.
func New(cfg config.AnalyzerConfig) (ContentAnalyzer, error) {
	switch cfg.Provider {
	case "heuristic":
		return NewHeuristicAnalyzer(), nil
	case "openai":
		return NewOpenAIAnalyzer(cfg, NewHeuristicAnalyzer()), nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider: %s", cfg.Provider)
	}
}
