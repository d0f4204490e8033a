package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leadscout/pkg/api"
	"leadscout/pkg/dedup"
	"leadscout/pkg/reddit"
	"leadscout/pkg/ui"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve seen leads and the active users snapshot over HTTP",
	Long: `Start a read-only HTTP API over the data directory:

  GET /healthz        liveness
  GET /leads          seen post ids (?limit=N, ?expand=true)
  GET /users          seen usernames (?limit=N)
  GET /active-users   latest ranked snapshot (?limit=N)

Set api.access_key (LEADSCOUT_API_ACCESS_KEY) to require an X-API-Key
header or bearer token on every route except /healthz.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{}
	if serveListen != "" {
		flags["listen"] = serveListen
	}
	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	store, err := dedup.Open(cfg.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	// expand needs the authenticated API
	var lookup api.SubmissionLookup
	if cfg.Reddit.Source == "api" && cfg.Reddit.ClientID != "" {
		lookup = reddit.NewClient(cfg.Reddit, log)
	}

	handler := api.NewHandler(store, cfg.Storage.Path(cfg.Storage.SnapshotFile), lookup, log)
	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           api.NewServer(handler, cfg.API.AccessKey, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.API.Listen).Info("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	ui.PrintInfo("Listening", cfg.API.Listen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	ui.PrintSuccess("Server stopped")
	return nil
}
