package moderation

import (
	"context"
	"strings"

	"github.com/communiconnect/insights/internal/models"
)

// severityByCategory is the floor severity per alert category.
var severityByCategory = map[models.AlertCategory]Severity{
	models.CategoryFire:        SeverityCritical,
	models.CategoryMedical:     SeverityCritical,
	models.CategoryGasLeak:     SeverityCritical,
	models.CategoryFlood:       SeverityHigh,
	models.CategorySecurity:    SeverityHigh,
	models.CategoryPowerOutage: SeverityModerate,
	models.CategoryRoadBlocked: SeverityModerate,
	models.CategoryVandalism:   SeverityModerate,
	models.CategoryNoise:       SeverityLow,
	models.CategoryOther:       SeverityLow,
}

// urgencyTerms boost credibility: concrete, situated language.
var urgencyTerms = []string{
	"urgent", "maintenant", "danger", "blessé", "feu", "fumée",
	"inondation", "coupure", "accident", "secours",
}

// vagueTerms lower credibility: unverifiable or chain-message language.
var vagueTerms = []string{
	"on dit que", "il paraît", "rumeur", "partagez", "faites passer",
	"quelqu'un m'a dit",
}

type HeuristicAnalyzer struct{}

func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

func (h *HeuristicAnalyzer) Analyze(ctx context.Context, title, description string, category models.AlertCategory) (Analysis, error) {
	text := strings.ToLower(title + " " + description)

	credibility := 50.0
	if len(strings.Fields(description)) >= 10 {
		credibility += 15 // detailed descriptions correlate with real incidents
	}
	for _, term := range urgencyTerms {
		if strings.Contains(text, term) {
			credibility += 5
		}
	}
	suspicious := false
	for _, term := range vagueTerms {
		if strings.Contains(text, term) {
			credibility -= 20
			suspicious = true
		}
	}
	if strings.TrimSpace(title) == "" {
		credibility -= 15
	}

	if credibility > 100 {
		credibility = 100
	}
	if credibility < 0 {
		credibility = 0
	}

	severity, ok := severityByCategory[category]
	if !ok {
		severity = SeverityLow
	}

	return Analysis{
		Credibility: credibility,
		Severity:    severity,
		Suspicious:  suspicious,
	}, nil
}
