package main

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"github.com/spf13/cobra"

	"biorag/internal/corpusfile"
	"biorag/internal/domain"
	"biorag/internal/harvester"
	"biorag/internal/tui"
)

var (
	ingestFrom     string
	ingestHarvest  bool
	ingestSeed     bool
	ingestPageSize int
	ingestJSON     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed tool records and store them in the vector database",
	Long: `Loads tool records from a checkpoint file, a live catalog harvest or the
built-in curated seed list, skips records already stored and writes the rest
in batches. Running it twice over the same records adds nothing.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "checkpoint or curated JSON file to ingest")
	ingestCmd.Flags().BoolVar(&ingestHarvest, "harvest", false, "harvest the catalog and ingest as records arrive")
	ingestCmd.Flags().BoolVar(&ingestSeed, "seed", false, "ingest the built-in curated tool list")
	ingestCmd.Flags().IntVar(&ingestPageSize, "page-size", 0, "harvest page size (with --harvest)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print the report as JSON")
	ingestCmd.MarkFlagsMutuallyExclusive("from", "harvest", "seed")
	ingestCmd.MarkFlagsOneRequired("from", "harvest", "seed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	var (
		records iter.Seq[domain.ToolRecord]
		stats   harvester.Stats
	)
	switch {
	case ingestFrom != "":
		recs, report, err := corpusfile.ReadFile(ingestFrom)
		if err != nil {
			return err
		}
		for _, e := range report.Skipped {
			cmd.PrintErrf("skipped entry: %v\n", e)
		}
		records = slices.Values(recs)
	case ingestHarvest:
		records = a.Harvester.Stream(cmd.Context(), ingestPageSize, &stats)
	default:
		records = slices.Values(corpusfile.Seed())
	}

	rep, err := a.Ingestor.Ingest(cmd.Context(), records)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if ingestHarvest && stats.Err != nil {
		cmd.PrintErrf("harvest stopped early (%s): %v\n", stats.StopReason, stats.Err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Println(tui.Status(fmt.Sprintf("created %d, updated %d, duplicates %d, invalid %d, embed failures %d, write failures %d (%d/%d chunks failed)",
		rep.Created, rep.Updated, rep.Duplicates, rep.Invalid, rep.EmbedFailed, rep.WriteFailed, rep.FailedChunks, rep.Chunks)))
	return nil
}
