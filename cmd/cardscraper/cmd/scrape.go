package cmd

import (
	"context"
	"log/slog"

	"cardscraper/internal/scraper"
	"cardscraper/lib/serviceutil"
	"cardscraper/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	force    bool
	onlySets []string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Runs the full pipeline: discover sets, fetch cards, download images, write manifests.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		t, err := telemetry.SetupFromEnv(ctx, "cardscraper")
		if err != nil {
			slog.Warn("telemetry disabled", "err", err)
		} else {
			defer t.Shutdown(context.Background())
		}

		s, err := scraper.New(cfg)
		if err != nil {
			serviceutil.Fatal("failed to set up scraper", err)
		}
		defer s.Close()

		err = s.Run(ctx, scraper.RunOptions{
			Force:     force,
			SetFilter: onlySets,
		})
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}
	},
}

func init() {
	scrapeCmd.Flags().BoolVarP(&force, "force", "f", false, "ignore previous state and re-scrape everything")
	scrapeCmd.Flags().StringSliceVar(&onlySets, "sets", nil, "only scrape the given set ids")
	rootCmd.AddCommand(scrapeCmd)
}
