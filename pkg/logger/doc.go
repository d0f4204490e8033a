// Package logger provides the structured logging facade used across leadscout.
//
// It wraps zerolog behind the Logger interface so pipeline components can be
// handed a logger explicitly and tests can swap in a TestLogger or NopLogger.
//
// Basic Usage:
//
//	log, err := logger.New(&config.LoggingConfig{Level: "info"})
//	log.WithField("subreddit", "startups").Info("Fetching listing")
//	log.WithError(err).ErrorWithFields("Notification failed", map[string]interface{}{
//	    "post_id": "abc123",
//	})
//
// The CLI initializes a global logger with Initialize; library packages never
// read it and instead take a Logger in their constructors.
package logger
