package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"biorag/internal/corpusfile"
	"biorag/internal/tui"
)

var (
	harvestOut      string
	harvestPageSize int
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Download tool records from the catalog into a checkpoint file",
	Long: `Pages through the bio.tools API for the configured language, normalizes
each tool and writes the records as a JSON checkpoint that "ingest --from"
can load later.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().StringVarP(&harvestOut, "out", "o", "biotools_tools.json", "checkpoint file to write")
	harvestCmd.Flags().IntVar(&harvestPageSize, "page-size", 0, "records per page (default from config, at most 100)")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	records, stats := a.Harvester.Collect(cmd.Context(), harvestPageSize)
	if err := corpusfile.WriteFile(harvestOut, records); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	cmd.Println(tui.Status(fmt.Sprintf("harvested %d tools from %d pages (%d skipped, stop: %s) -> %s",
		len(records), stats.Pages, stats.Skipped, stats.StopReason, harvestOut)))
	if stats.Truncated {
		cmd.Printf("warning: catalog reports %d tools, harvest was cut short\n", stats.Total)
	}
	if stats.Err != nil {
		cmd.Printf("warning: harvest stopped early: %v\n", stats.Err)
	}
	return nil
}
