package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/communiconnect/insights/internal/config"
	"github.com/communiconnect/insights/internal/models"
)

const analysisPrompt = `You moderate community alerts for a neighborhood platform in Guinea.
Assess the alert below and respond with ONLY a JSON object:
{"credibility": <0-100>, "severity": "low"|"moderate"|"high"|"critical", "suspicious": <bool>, "reason": "<one sentence>"}

Category: %s
Title: %s
Description: %s`

// OpenAIAnalyzer asks a chat model for a structured assessment. On any error
// it returns the local heuristic's answer instead; there is one attempt, no
// retries.
type OpenAIAnalyzer struct {
	client   *openai.Client
	model    string
	fallback ContentAnalyzer
}

func NewOpenAIAnalyzer(cfg config.AnalyzerConfig, fallback ContentAnalyzer) *OpenAIAnalyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnalyzer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		fallback: fallback,
	}
}

func (o *OpenAIAnalyzer) Analyze(ctx context.Context, title, description string, category models.AlertCategory) (Analysis, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(analysisPrompt, category, title, description),
			},
		},
	})
	if err != nil {
		slog.Error("remote content analysis failed, using heuristic", "error", err)
		return o.fallback.Analyze(ctx, title, description, category)
	}
	if len(resp.Choices) == 0 {
		slog.Error("remote content analysis returned no choices, using heuristic")
		return o.fallback.Analyze(ctx, title, description, category)
	}

	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Error("remote content analysis unparseable, using heuristic", "error", err)
		return o.fallback.Analyze(ctx, title, description, category)
	}
	return analysis, nil
}

func parseAnalysis(raw string) (Analysis, error) {
	raw = strings.TrimSpace(raw)
	// Models sometimes wrap JSON in a markdown fence.
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
			raw = raw[3+idx+1:]
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	var a Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Analysis{}, fmt.Errorf("parse analysis: %w", err)
	}
	if a.Credibility < 0 {
		a.Credibility = 0
	}
	if a.Credibility > 100 {
		a.Credibility = 100
	}
	switch a.Severity {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
	default:
		a.Severity = SeverityLow
	}
	return a, nil
}
