package pipeline

import (
	"context"
	"time"

	"leadscout/pkg/classifier"
	"leadscout/pkg/config"
	"leadscout/pkg/dedup"
	"leadscout/pkg/fetcher"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
	"leadscout/pkg/notify"
	"leadscout/pkg/ratelimit"
)

// LeadOptions configures the lead job
type LeadOptions struct {
	Subreddits []string
	Query      models.ListingQuery
	// Policy is config.DedupByPost, DedupByUser or DedupByBoth
	Policy           string
	ItemDelay        time.Duration
	RememberRejected bool
}

// LeadOptionsFromConfig derives the lead job options
func LeadOptionsFromConfig(cfg *config.Config) LeadOptions {
	return LeadOptions{
		Subreddits:       cfg.Leads.Subreddits,
		Query:            fetcher.Query(cfg.Fetch),
		Policy:           cfg.Leads.DedupPolicy,
		ItemDelay:        cfg.Leads.ItemDelay,
		RememberRejected: cfg.Leads.RememberRejected,
	}
}

func (o LeadOptions) checksPosts() bool {
	return o.Policy != config.DedupByUser
}

func (o LeadOptions) checksUsers() bool {
	return o.Policy == config.DedupByUser || o.Policy == config.DedupByBoth || o.Policy == ""
}

// LeadPipeline notifies about new qualified posts
type LeadPipeline struct {
	fetcher    Fetcher
	classifier classifier.Classifier
	store      dedup.Store
	notifier   *notify.Safe
	itemPacer  *ratelimit.Pacer
	opts       LeadOptions
	logger     logger.Logger
}

// NewLeadPipeline wires the lead job. sleep may be nil.
func NewLeadPipeline(f Fetcher, cls classifier.Classifier, store dedup.Store, n notify.Notifier, opts LeadOptions, log logger.Logger, sleep SleepFunc) *LeadPipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = logger.ForComponent(log, "leads")

	pacer := ratelimit.NewPacer(opts.ItemDelay)
	if sleep != nil {
		pacer.WithSleep(sleep)
	}

	return &LeadPipeline{
		fetcher:    f,
		classifier: cls,
		store:      store,
		notifier:   notify.NewSafe(n, log),
		itemPacer:  pacer,
		opts:       opts,
		logger:     log,
	}
}

// Name implements Job
func (p *LeadPipeline) Name() string { return "leads" }

// Run processes every subreddit once
func (p *LeadPipeline) Run(ctx context.Context) (report RunReport, err error) {
	report = RunReport{Job: p.Name(), StartedAt: time.Now()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	p.logger.Info("Starting scheduled Reddit analysis")

	state, err := loadState(ctx, p.store)
	if err != nil {
		return report, err
	}
	p.itemPacer.Reset()

	for _, subreddit := range p.opts.Subreddits {
		if err := p.fetcher.Pace(ctx); err != nil {
			return report, err
		}
		report.Subreddits++

		items, err := p.fetcher.Fetch(ctx, subreddit, p.opts.Query)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			p.logger.ErrorWithFields("Error processing subreddit", map[string]interface{}{
				"subreddit": subreddit,
				"error":     err.Error(),
			})
			continue
		}
		report.Fetched += len(items)

		for _, item := range items {
			if err := p.processItem(ctx, subreddit, item, state, &report); err != nil {
				return report, err
			}
		}
	}

	p.logger.Info("Completed scheduled Reddit analysis")
	return report, nil
}

// seen reports whether the item is gated by the dedup policy
func (p *LeadPipeline) seen(state *dedup.State, item models.ContentItem) bool {
	if p.opts.checksPosts() && state.ContainsPost(item.ID) {
		return true
	}
	return p.opts.checksUsers() && state.ContainsUser(item.AuthorName)
}

func (p *LeadPipeline) processItem(ctx context.Context, subreddit string, item models.ContentItem, state *dedup.State, report *RunReport) error {
	fields := map[string]interface{}{
		"subreddit": subreddit,
		"post_id":   item.ID,
		"username":  item.AuthorName,
	}

	if item.IsDeleted() {
		report.Skipped++
		return nil
	}
	if p.seen(state, item) {
		report.Skipped++
		p.logger.DebugWithFields("Skipping already processed post", fields)
		return nil
	}

	if err := p.itemPacer.Wait(ctx); err != nil {
		return err
	}

	verdict := p.classifier.Classify(ctx, item)
	if !verdict.IsQualified {
		if p.opts.RememberRejected && state.AddPost(item.ID) {
			return flushState(ctx, p.store, state)
		}
		return nil
	}
	report.Qualified++

	// Re-check right before sending: an earlier item in this run may have
	// recorded the same author.
	if p.seen(state, item) {
		report.Skipped++
		p.logger.InfoWithFields("Skipping duplicate qualified post", fields)
		return nil
	}

	if !p.notifier.Notify(ctx, notify.FormatLeadMessage(item)) {
		return nil
	}
	report.Notified++

	state.AddPost(item.ID)
	state.AddUser(item.AuthorName)
	if err := flushState(ctx, p.store, state); err != nil {
		return err
	}
	p.logger.InfoWithFields("Added qualified post", fields)
	return nil
}
