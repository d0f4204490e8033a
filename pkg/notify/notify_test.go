package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"leadscout/pkg/config"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
	"leadscout/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLeadMessage(t *testing.T) {
	got := FormatLeadMessage(models.ContentItem{
		ID:         "p2",
		AuthorName: "alice",
		URL:        "https://reddit.com/r/startups/comments/p2/x/",
	})
	expected := "🎯 New Lead Found!\n\n" +
		"👤 Username: alice\n" +
		"🔗 Post URL: https://reddit.com/r/startups/comments/p2/x/\n"
	assert.Equal(t, expected, got)
}

func TestFormatUserMessage(t *testing.T) {
	got := FormatUserMessage(models.RankedUser{
		Username:      "alice",
		Posts:         2,
		Comments:      3,
		TotalActivity: 5,
		Karma:         13,
		Subreddits:    []string{"startups", "sales"},
	}, "Post Content")
	expected := "🎯 Potential Lead Found!\n\n" +
		"👤 Username: alice\n" +
		"🔗 Profile: https://reddit.com/user/alice\n" +
		"📊 Activity:\n" +
		"   • Posts: 2\n" +
		"   • Comments: 3\n" +
		"   • Total Actions: 5\n" +
		"🎯 Active in: startups, sales\n\n" +
		"💡 Consider reaching out manually about Post Content!"
	assert.Equal(t, expected, got)
}

func TestFormatSummaryMessage(t *testing.T) {
	got := FormatSummaryMessage(42, 10, 5, "data/active_users.json")
	expected := "📊 Daily Active Users Summary\n\n" +
		"Found 42 active users across 10 subreddits.\n" +
		"Top 5 users have been sent as individual messages.\n" +
		"Full report saved to data/active_users.json"
	assert.Equal(t, expected, got)
}

func TestSafeSwallowsFailures(t *testing.T) {
	log := logger.NewTestLogger()
	rec := &Recorder{Err: errors.New("chat not found")}
	safe := NewSafe(rec, log)

	assert.False(t, safe.Notify(context.Background(), "hello"))
	assert.True(t, log.HasError())

	rec.Err = nil
	assert.True(t, safe.Notify(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, rec.Messages())
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestTelegramNotify(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{BotToken: "123:abc", ChatID: "-100", BaseURL: srv.URL}, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, tg.Notify(context.Background(), "🎯 hi"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-100", got.ChatID)
	assert.Equal(t, "🎯 hi", got.Text)
	assert.Empty(t, got.ParseMode)
}

func TestTelegramRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{BotToken: "t", ChatID: "c", BaseURL: srv.URL}, logger.NewTestLogger())
	require.NoError(t, err)
	rc := retry.DefaultConfig()
	rc.Sleep = noSleep
	tg.WithRetry(rc)

	require.NoError(t, tg.Notify(context.Background(), "x"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegramRejectsBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{BotToken: "t", ChatID: "c", BaseURL: srv.URL}, logger.NewTestLogger())
	require.NoError(t, err)
	rc := retry.DefaultConfig()
	rc.Sleep = noSleep
	tg.WithRetry(rc)

	err = tg.Notify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{ChatID: "c"}, nil)
	assert.Error(t, err)
}

func TestTelegramErrorsHideToken(t *testing.T) {
	const token = "987654:SECRET-token"

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closed.Close()

	tests := []struct {
		name    string
		baseURL string
	}{
		{"malformed base url", "http://bad host"},
		{"unreachable server", closed.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg, err := NewTelegram(config.TelegramConfig{BotToken: token, ChatID: "c", BaseURL: tt.baseURL}, logger.NewTestLogger())
			require.NoError(t, err)
			rc := retry.DefaultConfig()
			rc.Sleep = noSleep
			tg.WithRetry(rc)

			err = tg.Notify(context.Background(), "x")
			require.Error(t, err)
			assert.NotContains(t, err.Error(), token)
			assert.Contains(t, err.Error(), "<token>")
		})
	}
}
