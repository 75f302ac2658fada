package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var rootCMD = &cobra.Command{
	Use:   "marketdata",
	Short: "Market data ingestion and charting backend",
	Long: `A CLI application for ingesting historical candle data and serving
it to a charting frontend. It parses flat-file price exports, aggregates
them across timeframes and keeps a deduplicated candle cache queryable
over HTTP.`,
}

func Execute() {
	err := rootCMD.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	rootCMD.AddCommand(importCMD)
	rootCMD.AddCommand(statusCMD)
	rootCMD.AddCommand(serverCMD)
}
