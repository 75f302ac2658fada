package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spider7r/trading-journal-sub002/config"
	"github.com/spider7r/trading-journal-sub002/ingest"
	"github.com/spider7r/trading-journal-sub002/store"
)

var importCMD = &cobra.Command{
	Use:   "import <csv-file> <symbol>",
	Short: "Import a candle export file into the cache",
	Long: `Parse a flat-file candle export at native (1-minute) resolution,
aggregate it to the configured derived intervals and upsert both series
into the candle cache. Re-running the same import is safe: writes are
idempotent upserts keyed by (symbol, interval, timestamp).`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path, symbol := args[0], args[1]

		cfg := config.Load()
		if !cfg.Cache.Configured() {
			log.Fatal("candle cache is not configured; set DATABASE_URL or DB_HOST")
		}

		s, err := store.New(cfg.Cache, log)
		if err != nil {
			log.Fatalf("Failed to initialize candle cache: %v", err)
		}

		pipeline := ingest.NewPipeline(s, log,
			ingest.WithChunkSize(cfg.ChunkSize),
			ingest.WithChunkWorkers(cfg.ChunkWorkers),
			ingest.WithDerivedIntervals(cfg.DerivedIntervals),
		)

		summary, err := pipeline.ImportFile(context.Background(), path, symbol)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}

		fmt.Printf("native:  %d parsed, %d written\n", summary.NativeCount, summary.NativeWritten)
		fmt.Printf("derived: %d parsed, %d written\n", summary.DerivedCount, summary.DerivedWritten)
	},
}
