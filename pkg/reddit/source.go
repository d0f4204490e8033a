package reddit

import (
	"context"
	"fmt"

	"leadscout/pkg/config"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
)

// Source is the upstream content provider the fetcher reads from
type Source interface {
	// Listing returns one page of a subreddit listing in upstream order
	Listing(ctx context.Context, subreddit string, q models.ListingQuery) ([]models.ContentItem, error)
}

// NewSource builds the configured upstream source
func NewSource(cfg config.RedditConfig, log logger.Logger) (Source, error) {
	switch cfg.Source {
	case "", "api":
		return NewClient(cfg, log), nil
	case "rss":
		return NewFeedSource(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown reddit source %q", cfg.Source)
	}
}
