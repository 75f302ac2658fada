package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spider7r/trading-journal-sub002/api"
	"github.com/spider7r/trading-journal-sub002/chart"
	"github.com/spider7r/trading-journal-sub002/config"
	"github.com/spider7r/trading-journal-sub002/store"
	"github.com/spider7r/trading-journal-sub002/upstream"
)

var serverCMD = &cobra.Command{
	Use:   "server",
	Short: "Start the chart data API server",
	Long: `Serve the candle cache to the charting frontend: widget
configuration, symbol search and resolution, UDF-style bar history and
the coverage status report.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		s, err := store.New(cfg.Cache, log)
		if err != nil {
			log.Fatalf("Failed to initialize candle cache: %v", err)
		}
		if !s.Available() {
			log.Warn("candle cache is not configured; serving from upstream only")
		}

		client := upstream.NewClient(cfg.Upstream, log)
		feed := chart.NewDatafeed(s, client, client, log)

		r := api.SetupRoutes(api.NewHandler(s, feed, log))

		addr := ":" + cfg.Port
		log.Infof("Starting server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}
