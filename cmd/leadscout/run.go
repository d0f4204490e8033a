package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"leadscout/pkg/dedup"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/ui"
)

var runOpts struct {
	subreddits []string
	listing    string
	period     string
	limit      int
	policy     string
	source     string
	storage    string
	dataDir    string
	noClassify bool
	dryRun     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lead job once",
	Long: `Fetch the newest posts of every configured subreddit, qualify each
unseen post with the classifier and send qualified leads to Telegram.

With --dry-run notifications are logged instead of sent; dedup state is
still recorded so a later live run will not repeat them.`,
	Example: `  leadscout run
  leadscout run --subreddits SaaS,startups --limit 25
  leadscout run --no-classify --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsOnce(cmd, []string{"leads"}, runOpts.dryRun)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Rank the most active users once",
	Long: `Aggregate posts (and comments, unless disabled) across the configured
subreddits, rank authors by activity or karma, save the snapshot and
notify the top users plus a summary.`,
	Example: `  leadscout users --subreddits SaaS
  leadscout users --dry-run --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runJobsOnce(cmd, []string{"users"}, runOpts.dryRun); err != nil {
			return err
		}
		users, err := dedup.ReadSnapshot(lastSnapshot)
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Output, ui.RenderUsers(users))
		return nil
	},
}

// lastSnapshot is the snapshot path of the most recent users run
var lastSnapshot string

func init() {
	addRunFlags(runCmd, true)
	addRunFlags(usersCmd, false)
	rootCmd.AddCommand(runCmd, usersCmd)
}

// addRunFlags registers the one-shot flags; leads adds the lead job only ones
func addRunFlags(c *cobra.Command, leads bool) {
	f := c.Flags()
	f.StringSliceVar(&runOpts.subreddits, "subreddits", nil, "comma separated subreddits (overrides config)")
	f.StringVar(&runOpts.listing, "listing", "", "listing to fetch (new, hot, top, controversial)")
	f.StringVar(&runOpts.period, "period", "", "time window for top and controversial")
	f.IntVar(&runOpts.limit, "limit", 0, "items per subreddit (1-100)")
	f.StringVar(&runOpts.source, "source", "", "reddit source (api or rss)")
	f.StringVar(&runOpts.storage, "storage", "", "state backend (json or sqlite)")
	f.StringVar(&runOpts.dataDir, "data-dir", "", "directory for state files")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "log notifications instead of sending them")
	if leads {
		f.StringVar(&runOpts.policy, "dedup-policy", "", "skip items by seen post, seen user or both")
		f.BoolVar(&runOpts.noClassify, "no-classify", false, "treat every post as qualified")
	}
}

// runFlags maps changed flags into the config overrides
func runFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{}
	set := func(name string, v interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = v
		}
	}
	set("subreddits", runOpts.subreddits)
	set("listing", runOpts.listing)
	set("period", runOpts.period)
	set("limit", runOpts.limit)
	set("dedup-policy", runOpts.policy)
	set("source", runOpts.source)
	set("storage", runOpts.storage)
	set("data-dir", runOpts.dataDir)
	if runOpts.noClassify {
		flags["classify"] = false
	}
	return flags
}

func runJobsOnce(cmd *cobra.Command, names []string, dryRun bool) error {
	cfg, log, err := loadConfig(runFlags(cmd))
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log, dryRun)
	if err != nil {
		return err
	}
	defer a.Close()
	lastSnapshot = a.snapshot.Path()

	jobs, err := a.jobs(names)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dryRun {
		ui.PrintWarning("Dry run, notifications are logged only")
	}
	for _, job := range jobs {
		report, err := runJob(ctx, a, job)
		fmt.Fprintln(ui.Output, ui.RenderReport(report))
		if err != nil {
			return err
		}
	}
	return nil
}

func runJob(ctx context.Context, a *app, job pipeline.Job) (pipeline.RunReport, error) {
	report, err := job.Run(ctx)
	report.Job = job.Name()
	if err != nil {
		a.log.WithError(err).WithField("job", job.Name()).Error("Run failed")
	}
	return report, err
}
