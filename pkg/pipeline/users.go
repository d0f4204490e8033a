package pipeline

import (
	"context"
	"time"

	"leadscout/pkg/activity"
	"leadscout/pkg/config"
	"leadscout/pkg/dedup"
	"leadscout/pkg/fetcher"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
	"leadscout/pkg/notify"
	"leadscout/pkg/ratelimit"
)

// ActivityOptions configures the active users job
type ActivityOptions struct {
	Subreddits      []string
	PostQuery       models.ListingQuery
	CommentQuery    models.ListingQuery
	IncludeComments bool
	Rank            activity.RankOptions
	NotifyTop       int
	NotifyDelay     time.Duration
	SkipSeenUsers   bool
	Summary         bool
	Pitch           string
}

// ActivityOptionsFromConfig derives the active users job options
func ActivityOptionsFromConfig(cfg *config.Config) (ActivityOptions, error) {
	key, err := activity.ParseRankKey(cfg.Activity.RankBy)
	if err != nil {
		return ActivityOptions{}, err
	}

	posts := fetcher.Query(cfg.Fetch)
	comments := models.ListingQuery{Kind: models.ListingComments, Limit: cfg.Fetch.Limit}

	return ActivityOptions{
		Subreddits:      cfg.Activity.Subreddits,
		PostQuery:       posts,
		CommentQuery:    comments,
		IncludeComments: cfg.Activity.IncludeComments,
		Rank: activity.RankOptions{
			MinPosts: cfg.Activity.MinPosts,
			MinKarma: cfg.Activity.MinKarma,
			By:       key,
			Limit:    cfg.Activity.Limit,
		},
		NotifyTop:     cfg.Activity.NotifyTop,
		NotifyDelay:   cfg.Activity.NotifyDelay,
		SkipSeenUsers: cfg.Activity.SkipSeenUsers,
		Summary:       cfg.Activity.Summary,
		Pitch:         cfg.Activity.Pitch,
	}, nil
}

// ActivityPipeline ranks the most active authors, saves the snapshot and
// notifies about the top ones
type ActivityPipeline struct {
	fetcher     Fetcher
	store       dedup.Store
	snapshot    *dedup.SnapshotWriter
	notifier    *notify.Safe
	notifyPacer *ratelimit.Pacer
	opts        ActivityOptions
	logger      logger.Logger
}

// NewActivityPipeline wires the active users job. sleep may be nil.
func NewActivityPipeline(f Fetcher, store dedup.Store, snapshot *dedup.SnapshotWriter, n notify.Notifier, opts ActivityOptions, log logger.Logger, sleep SleepFunc) *ActivityPipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = logger.ForComponent(log, "active-users")

	pacer := ratelimit.NewPacer(opts.NotifyDelay)
	if sleep != nil {
		pacer.WithSleep(sleep)
	}

	return &ActivityPipeline{
		fetcher:     f,
		store:       store,
		snapshot:    snapshot,
		notifier:    notify.NewSafe(n, log),
		notifyPacer: pacer,
		opts:        opts,
		logger:      log,
	}
}

// Name implements Job
func (p *ActivityPipeline) Name() string { return "active-users" }

// Run aggregates every subreddit, then reports
func (p *ActivityPipeline) Run(ctx context.Context) (report RunReport, err error) {
	report = RunReport{Job: p.Name(), StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	p.logger.Info("Starting active users analysis")

	agg := activity.NewAggregator()
	for _, subreddit := range p.opts.Subreddits {
		if err := p.fetcher.Pace(ctx); err != nil {
			return report, err
		}
		report.Subreddits++

		if err := p.collect(ctx, subreddit, agg, &report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			p.logger.ErrorWithFields("Error fetching active users", map[string]interface{}{
				"subreddit": subreddit,
				"error":     err.Error(),
			})
		}
	}
	report.Skipped += agg.Skipped()

	ranked := activity.Rank(agg.Authors(), p.opts.Rank)
	if err := p.snapshot.Write(ranked); err != nil {
		return report, persistenceError("write active users snapshot", err)
	}
	report.Qualified = len(ranked)
	p.logger.InfoWithFields("Active users ranked", map[string]interface{}{
		"users":      len(ranked),
		"subreddits": len(p.opts.Subreddits),
		"snapshot":   p.snapshot.Path(),
	})

	if len(ranked) == 0 {
		p.logger.Info("Completed active users analysis")
		return report, nil
	}

	if err := p.notifyTop(ctx, ranked, &report); err != nil {
		return report, err
	}

	if p.opts.Summary {
		top := min(p.opts.NotifyTop, len(ranked))
		msg := notify.FormatSummaryMessage(len(ranked), len(p.opts.Subreddits), top, p.snapshot.Path())
		if err := p.notifyPacer.Wait(ctx); err != nil {
			return report, err
		}
		p.notifier.Notify(ctx, msg)
	}

	p.logger.Info("Completed active users analysis")
	return report, nil
}

// collect folds posts, and optionally comments, of one subreddit into agg.
// Items are only added once both listings were fetched.
func (p *ActivityPipeline) collect(ctx context.Context, subreddit string, agg *activity.Aggregator, report *RunReport) error {
	posts, err := p.fetcher.Fetch(ctx, subreddit, p.opts.PostQuery)
	if err != nil {
		return err
	}

	var comments []models.ContentItem
	if p.opts.IncludeComments {
		comments, err = p.fetcher.Fetch(ctx, subreddit, p.opts.CommentQuery)
		if err != nil {
			return err
		}
	}

	for _, batch := range [][]models.ContentItem{posts, comments} {
		for i := range batch {
			if batch[i].Subreddit == "" {
				batch[i].Subreddit = subreddit
			}
		}
		agg.Add(batch...)
		report.Fetched += len(batch)
	}
	return nil
}

func (p *ActivityPipeline) notifyTop(ctx context.Context, ranked []models.RankedUser, report *RunReport) error {
	var state *dedup.State
	if p.opts.SkipSeenUsers {
		var err error
		if state, err = loadState(ctx, p.store); err != nil {
			return err
		}
	}

	sent := 0
	for _, user := range ranked {
		if sent >= p.opts.NotifyTop {
			break
		}
		if state != nil && state.ContainsUser(user.Username) {
			report.Skipped++
			continue
		}

		if err := p.notifyPacer.Wait(ctx); err != nil {
			return err
		}
		sent++
		if !p.notifier.Notify(ctx, notify.FormatUserMessage(user, p.opts.Pitch)) {
			continue
		}
		report.Notified++
		p.logger.InfoWithFields("Sent notification for active user", map[string]interface{}{
			"username": user.Username,
		})

		if state != nil {
			state.AddUser(user.Username)
			if err := flushState(ctx, p.store, state); err != nil {
				return err
			}
		}
	}
	return nil
}
