package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect locators, then scrape them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("max-pages") {
			cfg.Crawl.MaxPages, _ = cmd.Flags().GetInt("max-pages")
		}
		applyScrapeFlags(cmd)
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runStage(ctx, func(ctx context.Context, env *pipelineEnv) error {
			sum, err := env.Pipeline.RunAll(ctx)
			if sum != nil {
				printSummary(os.Stdout, sum)
			}
			return err
		})
	},
}

func init() {
	runCmd.Flags().Int("max-pages", 0, "stop after this many listing pages (0 = until exhausted)")
	addScrapeFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
