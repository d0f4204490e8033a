// Package notify delivers lead and user messages to a single destination
// and builds the message templates.
package notify

import (
	"context"
	"sync"

	"leadscout/pkg/logger"
)

// Notifier delivers one message to the configured destination
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Safe logs and swallows delivery failures so a run never aborts on them.
// Notify reports whether the message was delivered.
type Safe struct {
	next   Notifier
	logger logger.Logger
}

// NewSafe wraps a notifier
func NewSafe(next Notifier, log logger.Logger) *Safe {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Safe{next: next, logger: logger.ForComponent(log, "notify")}
}

// Notify delivers message and returns false on failure
func (s *Safe) Notify(ctx context.Context, message string) bool {
	if err := s.next.Notify(ctx, message); err != nil {
		s.logger.ErrorWithFields("Error sending Telegram notification", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Recorder keeps messages in memory; used for dry runs and tests
type Recorder struct {
	mu       sync.Mutex
	messages []string
	Err      error
}

// Notify implements Notifier
func (r *Recorder) Notify(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns the recorded messages
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// LogNotifier writes messages to the log instead of delivering them
type LogNotifier struct {
	Logger logger.Logger
}

// Notify implements Notifier
func (n LogNotifier) Notify(ctx context.Context, message string) error {
	n.Logger.InfoWithFields("Dry run notification", map[string]interface{}{
		"message": message,
	})
	return nil
}
