package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// ForComponent returns a child logger tagged with the component name
func ForComponent(l Logger, component string) Logger {
	if l == nil {
		l = NewNopLogger()
	}
	return l.WithField("component", component)
}

// LogRateLimit records an upstream throttling event before a cool-down
func LogRateLimit(l Logger, subreddit string, attempt int, wait float64) {
	l.WithFields(map[string]interface{}{
		"subreddit":    subreddit,
		"attempt":      attempt,
		"wait_seconds": wait,
		"action":       "rate_limited",
	}).Warn("Reddit API rate limit hit, cooling down")
}

// LogRunSummary logs the counters of a finished pipeline run
func LogRunSummary(l Logger, job string, counters map[string]interface{}) {
	fields := map[string]interface{}{"job": job}
	for k, v := range counters {
		fields[k] = v
	}
	l.InfoWithFields("Run completed", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
