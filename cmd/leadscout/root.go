package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"leadscout/pkg/auth"
	"leadscout/pkg/config"
	"leadscout/pkg/logger"
	"leadscout/pkg/pipeline"
	"leadscout/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	account    string
	noLogo     bool
)

var rootCmd = &cobra.Command{
	Use:   "leadscout",
	Short: "Find leads and active users on Reddit and push them to Telegram",
	Long: `leadscout watches a list of subreddits for people who may need your
product. New posts are qualified by an LLM and sent to a Telegram chat;
the most active authors are ranked and reported separately.

Already notified posts and users are remembered in the data directory so
each lead is delivered once.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !noLogo && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute runs the CLI. Any error, persistence failures included, exits 1.
func Execute() {
	if code := exitCode(rootCmd.Execute()); code != 0 {
		os.Exit(code)
	}
}

// exitCode prints err and returns the process exit status for it
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, pipeline.ErrPersistence) {
		ui.PrintError("State could not be saved, stopping", err.Error())
	} else {
		ui.PrintError("Error", err.Error())
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./leadscout.yaml or ~/.config/leadscout/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "stored Reddit account to use (see 'leadscout auth list')")
	rootCmd.PersistentFlags().BoolVar(&noLogo, "no-logo", false, "do not print the banner")

	rootCmd.SetVersionTemplate(`leadscout {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves the configuration, fills Reddit credentials from the
// credential store and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	if err := applyStoredAccount(cfg); err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("version", version)
	return cfg, log, nil
}

// applyStoredAccount fills missing Reddit credentials. An explicit
// --account must exist; otherwise the default account is used if any.
func applyStoredAccount(cfg *config.Config) error {
	if cfg.Reddit.Source != "api" && account == "" {
		return nil
	}
	haveAll := cfg.Reddit.ClientID != "" && cfg.Reddit.ClientSecret != "" &&
		cfg.Reddit.Username != "" && cfg.Reddit.Password != ""
	if haveAll && account == "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if account != "" {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		return nil
	}

	var acc *auth.Account
	if account != "" {
		if acc, err = manager.Retrieve(account); err != nil {
			return err
		}
	} else if acc, err = manager.RetrieveDefault(); err != nil {
		return nil
	}

	acc.Apply(&cfg.Reddit)
	return nil
}
