// File: cmd/evaluate.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/reporting"
	"github.com/xkilldash9x/formrl/internal/service"
)

func newEvaluateCmd(factory service.ComponentFactory) *cobra.Command {
	var episodes int

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the trained agent greedily without learning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if episodes <= 0 {
				return fmt.Errorf("--runs must be a positive integer, got %d", episodes)
			}
			logger := observability.GetLogger()

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			if !components.Trainer.Restore(ctx) {
				return fmt.Errorf("no usable knowledge to evaluate (train first)")
			}
			params := components.Agent.Params()

			res, err := components.Trainer.Evaluate(ctx, episodes)
			if err != nil {
				return err
			}
			summary := reporting.NewSummary(res, cfg, params, components.Agent.KnownPairs())
			return reporting.PrintConsole(cmd.OutOrStdout(), summary, !noColor)
		},
	}

	evaluateCmd.Flags().IntVar(&episodes, "runs", 1, "Number of greedy episodes to run.")
	evaluateCmd.Flags().String("url", "", "URL of the form. (Overrides config/env)")
	evaluateCmd.Flags().Int("steps", 0, "Maximum steps per episode. (Overrides config/env)")
	evaluateCmd.Flags().String("knowledge", "", "Path of the knowledge file. (Overrides config/env)")
	evaluateCmd.Flags().String("backend", "", "Knowledge backend, file or postgres. (Overrides config/env)")
	evaluateCmd.Flags().Bool("headless", true, "Run Chrome without a window. (Overrides config/env)")
	return evaluateCmd
}
