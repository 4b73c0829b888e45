package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Discover product locators and save the locator list",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("max-pages") {
			cfg.Crawl.MaxPages, _ = cmd.Flags().GetInt("max-pages")
		}
		if err := cfg.Validate("collect"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runStage(ctx, func(ctx context.Context, env *pipelineEnv) error {
			sum, err := env.Pipeline.Collect(ctx)
			if sum != nil {
				printSummary(os.Stdout, sum)
			}
			return err
		})
	},
}

func init() {
	collectCmd.Flags().Int("max-pages", 0, "stop after this many listing pages (0 = until exhausted)")
	rootCmd.AddCommand(collectCmd)
}

// runStage wires the pipeline, runs fn and maps its outcome to a user-facing
// error.
func runStage(ctx context.Context, fn func(context.Context, *pipelineEnv) error) error {
	env, err := initPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	return explain(fn(ctx, env))
}
