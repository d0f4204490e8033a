package main

import (
	"fmt"

	"leadscout/pkg/classifier"
	"leadscout/pkg/config"
	"leadscout/pkg/dedup"
	"leadscout/pkg/fetcher"
	"leadscout/pkg/logger"
	"leadscout/pkg/notify"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/reddit"
)

// app holds the wired components shared by the run, users and watch commands
type app struct {
	cfg      *config.Config
	log      logger.Logger
	source   reddit.Source
	fetcher  *fetcher.Fetcher
	store    dedup.Store
	snapshot *dedup.SnapshotWriter
	notifier notify.Notifier
}

func newApp(cfg *config.Config, log logger.Logger, dryRun bool) (*app, error) {
	if !dryRun {
		if err := cfg.ValidateCredentials(); err != nil {
			return nil, fmt.Errorf("missing credentials: %w", err)
		}
	}

	source, err := reddit.NewSource(cfg.Reddit, log)
	if err != nil {
		return nil, err
	}

	store, err := dedup.Open(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	var n notify.Notifier = notify.LogNotifier{Logger: log}
	if !dryRun {
		tg, err := notify.NewTelegram(cfg.Telegram, log)
		if err != nil {
			store.Close()
			return nil, err
		}
		n = tg
	}

	return &app{
		cfg:      cfg,
		log:      log,
		source:   source,
		fetcher:  fetcher.New(source, cfg.Fetch, log),
		store:    store,
		snapshot: dedup.NewSnapshotWriter(cfg.Storage.Path(cfg.Storage.SnapshotFile)),
		notifier: n,
	}, nil
}

func (a *app) leadJob() (*pipeline.LeadPipeline, error) {
	cls, err := classifier.New(a.cfg.Classifier, a.cfg.Leads.Classify, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	opts := pipeline.LeadOptionsFromConfig(a.cfg)
	return pipeline.NewLeadPipeline(a.fetcher, cls, a.store, a.notifier, opts, a.log, nil), nil
}

func (a *app) activityJob() (*pipeline.ActivityPipeline, error) {
	opts, err := pipeline.ActivityOptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewActivityPipeline(a.fetcher, a.store, a.snapshot, a.notifier, opts, a.log, nil), nil
}

// jobs builds the named jobs in order
func (a *app) jobs(names []string) ([]pipeline.Job, error) {
	var jobs []pipeline.Job
	for _, name := range names {
		switch name {
		case "leads":
			job, err := a.leadJob()
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		case "users", "active-users":
			job, err := a.activityJob()
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job)
		default:
			return nil, fmt.Errorf("unknown job %q (want leads or users)", name)
		}
	}
	return jobs, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
