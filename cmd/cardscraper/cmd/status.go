package cmd

import (
	"fmt"
	"os"
	"sort"

	"cardscraper/internal/state"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints a summary of the persisted scrape state.",
	Run: func(cmd *cobra.Command, args []string) {
		tracker := state.NewTracker(cfg.State.StateFile)
		summary := tracker.Summarize()

		if summary.SetsScraped == 0 {
			fmt.Println("No scrape state found. Run `cardscraper scrape` first.")
			return
		}

		overview := table.NewWriter()
		overview.SetOutputMirror(os.Stdout)
		overview.AppendHeader(table.Row{"Game", "Sets", "Cards", "Images OK", "Images Failed"})
		overview.AppendRow(table.Row{
			cfg.Game,
			summary.SetsScraped,
			summary.TotalCards,
			summary.ImagesDownloaded,
			summary.ImagesFailed,
		})
		overview.SetStyle(table.StyleRounded)
		overview.Render()

		ids := make([]string, 0, len(summary.Sets))
		for id := range summary.Sets {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		details := table.NewWriter()
		details.SetOutputMirror(os.Stdout)
		details.AppendHeader(table.Row{"Set", "Cards", "Images OK", "Images Failed", "Last Scraped"})
		for _, id := range ids {
			set := summary.Sets[id]
			details.AppendRow(table.Row{id, set.Cards, set.ImagesOK, set.ImagesFailed, set.LastScraped})
		}
		details.SetStyle(table.StyleRounded)
		details.Render()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
