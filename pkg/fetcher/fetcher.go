// Package fetcher wraps an upstream Source with throttle-aware retries,
// a request quota and fixed pacing between subreddits.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"leadscout/pkg/config"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
	"leadscout/pkg/ratelimit"
	"leadscout/pkg/reddit"
	"leadscout/pkg/retry"
)

// Fetcher pulls listings from a Source. A throttled request is retried after
// a fixed cool-down up to MaxRetries times; any other error returns at once.
type Fetcher struct {
	source  reddit.Source
	limiter ratelimit.Limiter
	pacer   *ratelimit.Pacer
	retry   *retry.Config
	logger  logger.Logger
}

// New creates a fetcher from the fetch settings
func New(source reddit.Source, cfg config.FetchConfig, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = logger.ForComponent(log, "fetcher")

	f := &Fetcher{
		source: source,
		pacer:  ratelimit.NewPacer(cfg.SubredditDelay),
		retry:  retry.ThrottleConfig(cfg.MaxRetries, cfg.Cooldown, log),
		logger: log,
	}
	if cfg.RequestsPerMinute > 0 {
		f.limiter = ratelimit.PerMinute(cfg.RequestsPerMinute)
	}
	return f
}

// WithSleep replaces every wait the fetcher performs, mainly for tests
func (f *Fetcher) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Fetcher {
	f.retry.Sleep = fn
	f.pacer.WithSleep(fn)
	return f
}

// WithLimiter replaces the request quota; nil disables it
func (f *Fetcher) WithLimiter(l ratelimit.Limiter) *Fetcher {
	f.limiter = l
	return f
}

// Fetch returns one listing page for subreddit. Exhausting the retry budget
// yields an error matching errors.ErrTooManyRetries.
func (f *Fetcher) Fetch(ctx context.Context, subreddit string, q models.ListingQuery) ([]models.ContentItem, error) {
	cfg := *f.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.LogRateLimit(f.logger, subreddit, attempt, delay.Seconds())
	}

	items, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]models.ContentItem, error) {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return f.source.Listing(ctx, subreddit, q)
	}, &cfg)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s %s: %w", subreddit, q.Kind, err)
	}

	f.logger.DebugWithFields("fetched listing", map[string]interface{}{
		"subreddit": subreddit,
		"listing":   string(q.Kind),
		"items":     len(items),
	})
	return items, nil
}

// Pace waits out the inter-subreddit delay. The first call returns at once.
func (f *Fetcher) Pace(ctx context.Context) error {
	return f.pacer.Wait(ctx)
}

// Query builds the listing query described by the fetch settings
func Query(cfg config.FetchConfig) models.ListingQuery {
	return models.ListingQuery{
		Kind:   models.ListingKind(cfg.Listing),
		Period: cfg.Period,
		Limit:  cfg.Limit,
	}
}
