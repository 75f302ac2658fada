package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spider7r/trading-journal-sub002/config"
	"github.com/spider7r/trading-journal-sub002/store"
)

var statusCMD = &cobra.Command{
	Use:   "status",
	Short: "Show cache coverage per symbol and interval",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		s, err := store.New(cfg.Cache, log)
		if err != nil {
			log.Fatalf("Failed to initialize candle cache: %v", err)
		}

		coverage, err := s.Coverage(context.Background())
		if err != nil {
			log.Fatalf("Failed to read cache coverage: %v", err)
		}

		if len(coverage) == 0 {
			fmt.Println("candle cache is empty or not configured")
			return
		}

		fmt.Printf("%-10s %-5s %10s  %-20s %-20s\n", "SYMBOL", "TF", "COUNT", "FIRST", "LAST")
		for _, cov := range coverage {
			fmt.Printf("%-10s %-5s %10d  %-20s %-20s\n",
				cov.Symbol,
				cov.Interval,
				cov.Count,
				time.Unix(cov.FirstTimestamp, 0).UTC().Format("2006-01-02 15:04:05"),
				time.Unix(cov.LastTimestamp, 0).UTC().Format("2006-01-02 15:04:05"),
			)
		}
	},
}
