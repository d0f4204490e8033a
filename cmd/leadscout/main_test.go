package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/pkg/config"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/scheduler"
	"leadscout/pkg/ui"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := ui.Output
	ui.Output = &buf
	t.Cleanup(func() { ui.Output = prev })
	return &buf
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"success", nil, 0, ""},
		{"persistence failure", fmt.Errorf("leads: %w", pipeline.ErrPersistence), 1, "State could not be saved"},
		{"other failure", errors.New("missing credentials"), 1, "missing credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t)
			assert.Equal(t, tt.wantCode, exitCode(tt.err))
			if tt.wantOut == "" {
				assert.Empty(t, out.String())
				return
			}
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}
}

// newRunCommand builds a throwaway command carrying the run flags
func newRunCommand(t *testing.T, leads bool, args ...string) *cobra.Command {
	t.Helper()
	saved := runOpts
	t.Cleanup(func() { runOpts = saved })

	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd, leads)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestRunFlagsOnlyIncludesChangedFlags(t *testing.T) {
	cmd := newRunCommand(t, true, "--subreddits", "SaaS,startups", "--limit", "25", "--dedup-policy", "post")

	flags := runFlags(cmd)
	assert.Equal(t, map[string]interface{}{
		"subreddits":   []string{"SaaS", "startups"},
		"limit":        25,
		"dedup-policy": "post",
	}, flags)
}

func TestRunFlagsNoClassify(t *testing.T) {
	cmd := newRunCommand(t, true, "--no-classify", "--source", "rss")

	flags := runFlags(cmd)
	assert.Equal(t, false, flags["classify"])
	assert.Equal(t, "rss", flags["source"])

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.False(t, cfg.Leads.Classify)
	assert.Equal(t, "rss", cfg.Reddit.Source)
}

func TestUsersCommandHasNoLeadFlags(t *testing.T) {
	cmd := newRunCommand(t, false)
	assert.Nil(t, cmd.Flags().Lookup("dedup-policy"))
	assert.Nil(t, cmd.Flags().Lookup("no-classify"))
	assert.Empty(t, runFlags(cmd))
}

func TestDescribeScheduleMatchesSchedulerSpec(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ScheduleConfig
		want     string
		wantSpec string
	}{
		{"cron only", config.ScheduleConfig{Cron: "0 9 * * *"}, "0 9 * * *", "0 9 * * *"},
		{"interval wins", config.ScheduleConfig{Cron: "0 9 * * *", Interval: 30 * time.Minute}, "every 30m0s", "@every 30m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeSchedule(tt.cfg.Cron, tt.cfg.Interval))
			spec, err := scheduler.Spec(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpec, spec)
		})
	}
}
