package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leadscout/pkg/scheduler"
	"leadscout/pkg/ui"
)

var watchOpts struct {
	jobs       []string
	schedule   string
	interval   time.Duration
	runOnStart bool
	dryRun     bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run jobs on a schedule until interrupted",
	Long: `Run the selected jobs on every tick of the schedule. Ticks that arrive
while a run is still active are skipped. The process exits with status 1
if state can no longer be saved.`,
	Example: `  leadscout watch
  leadscout watch --jobs leads --interval 30m --run-on-start
  leadscout watch --jobs leads,users --schedule "0 9 * * *"`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringSliceVar(&watchOpts.jobs, "jobs", []string{"leads"}, "jobs to run on each tick (leads, users)")
	f.StringVar(&watchOpts.schedule, "schedule", "", "cron expression (overrides config)")
	f.DurationVar(&watchOpts.interval, "interval", 0, "fixed interval, takes precedence over --schedule")
	f.BoolVar(&watchOpts.runOnStart, "run-on-start", false, "run immediately instead of waiting for the first tick")
	f.BoolVar(&watchOpts.dryRun, "dry-run", false, "log notifications instead of sending them")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if cmd.Flags().Changed("schedule") {
		flags["schedule"] = watchOpts.schedule
	}
	if cmd.Flags().Changed("interval") {
		flags["interval"] = watchOpts.interval
	}
	if cmd.Flags().Changed("run-on-start") {
		flags["run-on-start"] = watchOpts.runOnStart
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log, watchOpts.dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, err := a.jobs(watchOpts.jobs)
	if err != nil {
		return err
	}

	s, err := scheduler.New(cfg.Schedule, log, jobs...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		return err
	}
	ui.PrintInfo("Watching", describeSchedule(cfg.Schedule.Cron, cfg.Schedule.Interval))
	if next := s.Next(); !next.IsZero() {
		ui.PrintInfo("Next run", next.Format(time.RFC1123))
	}

	if err := s.Wait(); err != nil {
		return err
	}
	ui.PrintSuccess("Stopped")
	return nil
}

// describeSchedule mirrors scheduler.Spec: an interval wins over cron
func describeSchedule(cron string, interval time.Duration) string {
	if interval > 0 {
		return "every " + interval.String()
	}
	return cron
}
