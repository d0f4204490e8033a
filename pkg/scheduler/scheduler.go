// Package scheduler triggers pipeline jobs on a cron expression or a fixed
// interval. At most one run is active at a time; a tick that arrives while
// a run is still going is skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"leadscout/pkg/config"
	"leadscout/pkg/logger"
	"leadscout/pkg/pipeline"
)

// Scheduler runs a fixed list of jobs sequentially on every tick
type Scheduler struct {
	spec       string
	runOnStart bool
	jobs       []pipeline.Job
	logger     logger.Logger

	cron    *cron.Cron
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	fatal   chan error
	wg      sync.WaitGroup
}

// Spec returns the cron spec for the schedule settings. An interval takes
// precedence over a cron expression.
func Spec(cfg config.ScheduleConfig) (string, error) {
	if cfg.Interval > 0 {
		if cfg.Interval < time.Second {
			return "", fmt.Errorf("schedule interval %s is too short", cfg.Interval)
		}
		return "@every " + cfg.Interval.String(), nil
	}
	if cfg.Cron == "" {
		return "", errors.New("schedule needs a cron expression or an interval")
	}
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", cfg.Cron, err)
	}
	return cfg.Cron, nil
}

// New creates a scheduler for jobs
func New(cfg config.ScheduleConfig, log logger.Logger, jobs ...pipeline.Job) (*Scheduler, error) {
	spec, err := Spec(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = logger.ForComponent(log, "scheduler")

	cl := cronLogger{log}
	return &Scheduler{
		spec:       spec,
		runOnStart: cfg.RunOnStart,
		jobs:       jobs,
		logger:     log,
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		fatal:      make(chan error, 1),
	}, nil
}

// Start registers the jobs and starts ticking. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("scheduling %q: %w", s.spec, err)
	}

	s.logger.InfoWithFields("Scheduler started", map[string]interface{}{
		"schedule":     s.spec,
		"run_on_start": s.runOnStart,
		"jobs":         len(s.jobs),
	})

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
	s.cron.Start()
	return nil
}

// Wait blocks until the context ends or a run fails fatally. It returns the
// fatal error, or nil on a clean shutdown.
func (s *Scheduler) Wait() error {
	var err error
	select {
	case <-s.ctx.Done():
	case err = <-s.fatal:
	}
	s.Stop()
	return err
}

// Stop stops ticking and waits for an active run to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Next returns the time of the next tick
func (s *Scheduler) Next() time.Time {
	for _, e := range s.cron.Entries() {
		return e.Next
	}
	return time.Time{}
}

func (s *Scheduler) tick() {
	if !s.running.TryLock() {
		s.logger.Warn("Previous run still active, skipping tick")
		return
	}
	defer s.running.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if err := RunAll(s.ctx, s.logger, s.jobs...); err != nil && errors.Is(err, pipeline.ErrPersistence) {
		select {
		case s.fatal <- err:
		default:
		}
		s.cancel()
	}
}

// RunAll runs jobs one after another and logs each report. It stops at the
// first persistence failure or when ctx ends.
func RunAll(ctx context.Context, log logger.Logger, jobs ...pipeline.Job) error {
	for _, job := range jobs {
		report, err := job.Run(ctx)
		logger.LogRunSummary(log, job.Name(), report.Fields())
		if err != nil {
			if errors.Is(err, pipeline.ErrPersistence) {
				log.ErrorWithFields("Run aborted, state could not be saved", map[string]interface{}{
					"job":   job.Name(),
					"error": err.Error(),
				})
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.ErrorWithFields("Run failed", map[string]interface{}{
				"job":   job.Name(),
				"error": err.Error(),
			})
		}
	}
	return nil
}

// cronLogger adapts Logger to cron's logging interface
type cronLogger struct {
	logger logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.DebugWithFields("cron: "+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	c.logger.ErrorWithFields("cron: "+msg, fields)
}

func kvFields(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
