package classifier

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadscout/pkg/config"
	errs "leadscout/pkg/errors"
)

// Provider sends one system+user exchange to a language model and returns
// the raw reply text
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const (
	defaultOpenAIURL   = "https://api.openai.com"
	defaultClaudeURL   = "https://api.anthropic.com"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultClaudeModel = "claude-haiku-4-5-20251001"
	anthropicVersion   = "2023-06-01"
)

// NewProvider creates the configured provider
func NewProvider(cfg config.ClassifierConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier api key not configured")
	}
	client := &http.Client{Timeout: cmp.Or(cfg.Timeout, 30*time.Second)}

	switch cfg.Provider {
	case "", "openai":
		return &OpenAIProvider{
			apiKey:      cfg.APIKey,
			model:       cmp.Or(cfg.Model, defaultOpenAIModel),
			baseURL:     strings.TrimRight(cmp.Or(cfg.BaseURL, defaultOpenAIURL), "/"),
			temperature: cfg.Temperature,
			maxTokens:   cfg.MaxTokens,
			client:      client,
		}, nil
	case "claude":
		return &ClaudeProvider{
			apiKey:      cfg.APIKey,
			model:       cmp.Or(cfg.Model, defaultClaudeModel),
			baseURL:     strings.TrimRight(cmp.Or(cfg.BaseURL, defaultClaudeURL), "/"),
			temperature: cfg.Temperature,
			maxTokens:   cmp.Or(cfg.MaxTokens, 256),
			client:      client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider: %q (valid: openai, claude)", cfg.Provider)
	}
}

// --- OpenAI provider ---

// OpenAIProvider calls the chat completions API in JSON mode
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
}

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Provider
func (o *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	payload := openaiRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    o.temperature,
		MaxTokens:      o.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var or openaiResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/v1/chat/completions", headers, payload, &or, "openai"); err != nil {
		return "", err
	}
	if len(or.Choices) == 0 {
		return "", fmt.Errorf("empty openai response")
	}
	return or.Choices[0].Message.Content, nil
}

// --- Claude provider ---

// ClaudeProvider calls the Anthropic messages API
type ClaudeProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
}

type claudeRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete implements Provider
func (c *ClaudeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	payload := claudeRequest{
		Model:       c.model,
		System:      system,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []chatMessage{{Role: "user", Content: user}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var cr claudeResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/messages", headers, payload, &cr, "claude"); err != nil {
		return "", err
	}
	for _, block := range cr.Content {
		if block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty claude response")
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out interface{}, name string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s API error: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errs.FromStatusCode(resp.StatusCode, fmt.Sprintf("%s API %d: %s", name, resp.StatusCode, string(b)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s response: %w", name, err)
	}
	return nil
}
