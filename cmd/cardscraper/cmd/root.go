package cmd

import (
	"context"
	"fmt"
	"os"

	"cardscraper/internal/adapters"
	"cardscraper/internal/config"
	"cardscraper/lib/serviceutil"
	"cardscraper/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	game       string
	verbose    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cardscraper",
	Short: "cardscraper builds local card catalogs and image archives for trading card games.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		var err error
		cfg, err = config.Load(configPath, game)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		err = cfg.Validate(adapters.Known())
		if err != nil {
			serviceutil.Fatal("invalid config", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the config file")
	rootCmd.PersistentFlags().StringVarP(&game, "game", "g", "", "override the configured game")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
