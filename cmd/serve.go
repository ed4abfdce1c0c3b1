package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YashasveeWankhade/NewsApp/internal/auth"
	"github.com/YashasveeWankhade/NewsApp/internal/news"
	"github.com/YashasveeWankhade/NewsApp/internal/rss"
	"github.com/YashasveeWankhade/NewsApp/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the feed poller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagListen != "" {
			cfg.Listen = flagListen
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
		slog.SetDefault(logger)

		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		authSvc := auth.NewService(db, auth.Options{
			SessionTTL:               cfg.SessionTTL(),
			RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
		}, logger.With("component", "auth"))
		newsSvc := news.NewService(db, news.Options{
			PageLimit:        cfg.Articles.PageLimit,
			TrendingDaysBack: cfg.Trending.DaysBack,
			TrendingLimit:    cfg.Trending.Limit,
		}, logger.With("component", "news"))
		fetcher := rss.NewFetcher(db, rss.Options{
			AutoPublish: cfg.Ingest.AutoPublish,
			Timeout:     cfg.IngestTimeout(),
		}, logger.With("component", "rss"))

		srv, err := server.New(db, authSvc, newsSvc, fetcher, server.Options{
			RateLimit:          cfg.RateLimit,
			Poll:               cfg.Ingest.Enabled,
			AutoPublishImports: cfg.Ingest.AutoPublish,
		}, logger)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.Listen) }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			logger.Info("shutting down", "signal", sig.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "override the listen address")
}
