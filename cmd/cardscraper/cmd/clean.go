package cmd

import (
	"fmt"
	"os"

	"cardscraper/internal/state"
	"cardscraper/lib/serviceutil"

	"github.com/spf13/cobra"
)

var cleanState bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Removes the output directory, and optionally the scrape state.",
	Run: func(cmd *cobra.Command, args []string) {
		outputDir := cfg.OutputDir()
		err := os.RemoveAll(outputDir)
		if err != nil {
			serviceutil.Fatal("failed to remove output directory", err)
		}
		fmt.Printf("removed %s\n", outputDir)

		if cleanState {
			err = state.NewTracker(cfg.State.StateFile).Delete()
			if err != nil {
				serviceutil.Fatal("failed to remove state file", err)
			}
			fmt.Printf("removed %s\n", cfg.State.StateFile)
		}
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanState, "state", false, "also remove the scrape state file")
	rootCmd.AddCommand(cleanCmd)
}
