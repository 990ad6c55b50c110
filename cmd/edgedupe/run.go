package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	edgedupe "github.com/anatolykoptev/go-edgedupe"
	"github.com/anatolykoptev/go-edgedupe/internal/reddit"
	"github.com/anatolykoptev/go-edgedupe/internal/scrape"
	"github.com/anatolykoptev/go-edgedupe/internal/webhook"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll subreddits and forward unique images",
	Long: `Run the scrape loop until interrupted.

Every interval the newest submissions of each registered subreddit are
listed, their images downloaded and checked against the exact-hash set and
the edge-signature archive. Unique images are posted to the subreddit's
webhook. Both stores are saved after every cycle and on shutdown.

Examples:
  # Run with the default config file
  edgedupe run

  # Run a single cycle and exit
  edgedupe run --once`,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once")

		store, cfg, err := openRegistry()
		if err != nil {
			return err
		}
		defer store.Close()

		pipeline, err := newPipeline(cfg, edgedupe.Unbounded)
		if err != nil {
			return err
		}

		lister := reddit.NewClient(cfg.Reddit.UserAgent)
		downloader := &edgedupe.Downloader{HTTPClient: http.DefaultClient}
		sender := webhook.NewSender(cfg.Webhook.Username, cfg.Webhook.SendDelay.Std(), nil)

		s := scrape.New(pipeline, store, lister, downloader, sender, scrape.Options{
			SubmissionLimit: cfg.Reddit.SubmissionLimit,
			FetchWorkers:    cfg.Reddit.FetchWorkers,
			ArchivePath:     cfg.ArchivePath(),
			StatePath:       cfg.StatePath(),
		})
		if err := s.Load(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if once {
			sent, err := s.RunOnce(ctx)
			slog.Info("edgedupe: single cycle finished", "sent", sent)
			return err
		}

		slog.Info("edgedupe: starting scrape loop", "interval", cfg.Reddit.Interval.Std(),
			"archive", cfg.ArchivePath(), "state", cfg.StatePath())
		return s.Run(ctx, cfg.Reddit.Interval.Std())
	},
}

func init() {
	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
	rootCmd.AddCommand(runCmd)
}
