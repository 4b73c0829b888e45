package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract nutrition facts for every saved locator and write the records",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScrapeFlags(cmd)
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runStage(ctx, func(ctx context.Context, env *pipelineEnv) error {
			sum, err := env.Pipeline.Scrape(ctx)
			if sum != nil {
				printSummary(os.Stdout, sum)
			}
			return err
		})
	},
}

func init() {
	addScrapeFlags(scrapeCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("concurrency", 0, "parallel product fetches (overrides scrape.concurrency)")
	cmd.Flags().StringSlice("format", nil, "output formats: csv, json, xlsx (overrides output.formats)")
}

func applyScrapeFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Scrape.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Formats, _ = cmd.Flags().GetStringSlice("format")
	}
}
