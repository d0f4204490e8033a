// Package pipeline sequences fetching, qualification, dedup and delivery
// for the two scheduled jobs: the lead job and the active users job.
//
// Subreddits are processed strictly one after another. A subreddit whose
// fetch fails is logged and skipped; a failure to persist state aborts the
// run with an error wrapping ErrPersistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadscout/pkg/dedup"
	"leadscout/pkg/models"
)

// ErrPersistence marks a run that could not write its durable state
var ErrPersistence = errors.New("persistence failure")

// Fetcher is the rate-limited listing source used by the jobs
type Fetcher interface {
	Fetch(ctx context.Context, subreddit string, q models.ListingQuery) ([]models.ContentItem, error)
	Pace(ctx context.Context) error
}

// Job is a runnable pipeline
type Job interface {
	Name() string
	Run(ctx context.Context) (RunReport, error)
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RunReport counts what happened during one run
type RunReport struct {
	Job        string
	StartedAt  time.Time
	Duration   time.Duration
	Subreddits int
	Failed     int
	Fetched    int
	Qualified  int
	Notified   int
	Skipped    int
}

// Fields renders the report for structured logging
func (r RunReport) Fields() map[string]interface{} {
	return map[string]interface{}{
		"subreddits":  r.Subreddits,
		"failed":      r.Failed,
		"fetched":     r.Fetched,
		"qualified":   r.Qualified,
		"notified":    r.Notified,
		"skipped":     r.Skipped,
		"duration_ms": r.Duration.Milliseconds(),
	}
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func loadState(ctx context.Context, store dedup.Store) (*dedup.State, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, persistenceError("load dedup state", err)
	}
	return state, nil
}

// flushState persists state even when ctx is already cancelled, so a lead
// sent right before shutdown is still recorded
func flushState(ctx context.Context, store dedup.Store, state *dedup.State) error {
	if err := store.Flush(context.WithoutCancel(ctx), state); err != nil {
		return persistenceError("flush dedup state", err)
	}
	return nil
}
