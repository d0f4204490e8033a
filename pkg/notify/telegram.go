package notify

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"leadscout/pkg/config"
	errs "leadscout/pkg/errors"
	"leadscout/pkg/logger"
	"leadscout/pkg/retry"
)

// Telegram sends messages to one chat through the Bot API
type Telegram struct {
	botToken  string
	chatID    string
	baseURL   string
	parseMode string
	client    *http.Client
	retry     *retry.Config
	logger    logger.Logger
}

var _ Notifier = (*Telegram)(nil)

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// NewTelegram creates a Telegram notifier. Throttled or failed sends are
// retried a few times with exponential backoff.
func NewTelegram(cfg config.TelegramConfig, log logger.Logger) (*Telegram, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured: bot token and chat id are required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = logger.ForComponent(log, "telegram")

	rc := retry.DefaultConfig()
	rc.Logger = log

	return &Telegram{
		botToken:  cfg.BotToken,
		chatID:    cfg.ChatID,
		baseURL:   strings.TrimRight(cmp.Or(cfg.BaseURL, "https://api.telegram.org"), "/"),
		parseMode: cfg.ParseMode,
		client:    &http.Client{Timeout: cmp.Or(cfg.Timeout, 15*time.Second)},
		retry:     rc,
		logger:    log,
	}, nil
}

// WithRetry replaces the retry policy
func (t *Telegram) WithRetry(cfg *retry.Config) *Telegram {
	t.retry = cfg
	return t
}

// Notify implements Notifier
func (t *Telegram) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  message,
		ParseMode:             t.parseMode,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	err = retry.Do(ctx, func(ctx context.Context) error {
		return t.send(ctx, body)
	}, t.retry)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	t.logger.Debug("Telegram message sent")
	return nil
}

func (t *Telegram) send(ctx context.Context, body []byte) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %s", t.redact(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.New(errs.ErrorTypeNetwork, 0, "do request: %s", t.redact(err.Error()))
	}
	defer resp.Body.Close()

	var result apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode != http.StatusOK || !result.OK {
		description := cmp.Or(result.Description, resp.Status)
		if result.Parameters.RetryAfter > 0 {
			description = fmt.Sprintf("%s (retry after %ds)", description, result.Parameters.RetryAfter)
		}
		return errs.FromStatusCode(resp.StatusCode, description)
	}
	return nil
}

// redact hides the bot token, which is part of every request URL
func (t *Telegram) redact(msg string) string {
	return strings.ReplaceAll(msg, t.botToken, "<token>")
}
