package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"cardscraper/internal/manifest"
	"cardscraper/lib/serviceutil"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks the written manifests for structural problems.",
	Run: func(cmd *cobra.Command, args []string) {
		outputDir := cfg.OutputDir()
		rootPath := filepath.Join(outputDir, "manifest.json")

		root, err := manifest.Read(rootPath)
		if err != nil {
			serviceutil.Fatal("failed to read root manifest", err)
		}

		problems := 0
		problems += report(rootPath, manifest.Validate(root, cfg.Game))

		for _, ref := range root.Sets {
			setPath := filepath.Join(outputDir, ref.Path, "manifest.json")
			set, err := manifest.Read(setPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", setPath, err)
				problems++
				continue
			}
			problems += report(setPath, manifest.Validate(set, cfg.Game))
		}

		if problems > 0 {
			fmt.Fprintf(os.Stderr, "found %d problem(s)\n", problems)
			os.Exit(1)
		}
		fmt.Printf("all manifests valid (%d sets)\n", len(root.Sets))
	},
}

func report(path string, issues []string) int {
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, issue)
	}
	return len(issues)
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
