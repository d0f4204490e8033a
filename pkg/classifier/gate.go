// Package classifier decides whether a fetched post is a qualified lead.
//
// A Gate renders a Rubric into a system prompt, sends the post to a
// Provider and parses the JSON verdict. The gate never fails: any upstream
// or parsing problem is logged and reported as not qualified.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadscout/pkg/config"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
)

// Classifier is the qualification decision used by the lead pipeline
type Classifier interface {
	Classify(ctx context.Context, item models.ContentItem) models.QualificationResult
}

// TechnicalError is the verdict returned whenever classification fails
var TechnicalError = models.QualificationResult{
	IsQualified: false,
	Analysis:    "error",
	Reason:      "technical error",
}

// Gate classifies posts through a language model provider
type Gate struct {
	provider Provider
	system   string
	logger   logger.Logger
}

// NewGate creates a gate for the rubric
func NewGate(provider Provider, rubric Rubric, log logger.Logger) *Gate {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Gate{
		provider: provider,
		system:   rubric.SystemPrompt(),
		logger:   logger.ForComponent(log, "classifier"),
	}
}

// New builds the classifier for a run. With classification disabled every
// post qualifies and no provider is contacted.
func New(cfg config.ClassifierConfig, enabled bool, log logger.Logger) (Classifier, error) {
	if !enabled {
		return AlwaysQualify{}, nil
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewGate(provider, RubricFromConfig(cfg.Rubric), log), nil
}

// Classify implements Classifier
func (g *Gate) Classify(ctx context.Context, item models.ContentItem) models.QualificationResult {
	reply, err := g.provider.Complete(ctx, g.system, UserMessage(item))
	if err != nil {
		g.logger.ErrorWithFields("Error analyzing post with AI", map[string]interface{}{
			"post_id":   item.ID,
			"subreddit": item.Subreddit,
			"error":     err.Error(),
		})
		return TechnicalError
	}

	result, err := ParseResult(reply)
	if err != nil {
		g.logger.ErrorWithFields("Malformed classifier response", map[string]interface{}{
			"post_id": item.ID,
			"error":   err.Error(),
		})
		return TechnicalError
	}

	g.logger.DebugWithFields("Post classified", map[string]interface{}{
		"post_id":   item.ID,
		"qualified": result.IsQualified,
		"reason":    result.Reason,
	})
	return result
}

// UserMessage is the per-post prompt
func UserMessage(item models.ContentItem) string {
	return fmt.Sprintf("Title: %s\n\nContent: %s", item.Title, item.Body)
}

// ParseResult decodes a verdict, tolerating markdown code fences and
// surrounding prose. isQualified must be present and boolean.
func ParseResult(reply string) (models.QualificationResult, error) {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return models.QualificationResult{}, fmt.Errorf("no JSON object in response")
	}

	var raw struct {
		IsQualified *bool  `json:"isQualified"`
		Analysis    string `json:"analysis"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return models.QualificationResult{}, fmt.Errorf("decode verdict: %w", err)
	}
	if raw.IsQualified == nil {
		return models.QualificationResult{}, fmt.Errorf("verdict missing isQualified")
	}

	return models.QualificationResult{
		IsQualified: *raw.IsQualified,
		Analysis:    raw.Analysis,
		Reason:      raw.Reason,
	}, nil
}

// AlwaysQualify passes every post, for runs with classification disabled
type AlwaysQualify struct{}

// Classify implements Classifier
func (AlwaysQualify) Classify(ctx context.Context, item models.ContentItem) models.QualificationResult {
	return models.QualificationResult{IsQualified: true, Analysis: "classification disabled", Reason: "all posts qualify"}
}
