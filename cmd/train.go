// File: cmd/train.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/reporting"
	"github.com/xkilldash9x/formrl/internal/service"
)

// persistTimeout bounds the final save, which runs even after an interrupt.
const persistTimeout = 30 * time.Second

func newTrainCmd(factory service.ComponentFactory) *cobra.Command {
	var resume bool

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train the agent against a form until it masters it",
		Long: `Runs training episodes against the form at --url until the mastery rule
is met or the episode budget is spent. Knowledge is saved at the end of the
run, including after Ctrl+C. With --resume, training continues from the saved
knowledge, exploration rate included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			orch := components.Trainer
			if resume {
				if !orch.Restore(ctx) {
					logger.Warn("Nothing to resume from; starting with an untrained agent.")
				}
			}
			params := components.Agent.Params()

			res, trainErr := orch.Train(ctx)

			// Save whatever was learned, even when interrupted or failed.
			if res.Episodes > 0 {
				persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
				defer cancel()
				if err := orch.Persist(persistCtx); err != nil {
					logger.Error("Failed to save knowledge.", zap.Error(err))
					if trainErr == nil {
						trainErr = err
					}
				}
			} else {
				logger.Warn("No episode completed; saved knowledge left untouched.")
			}
			if trainErr != nil {
				return trainErr
			}

			summary := reporting.NewSummary(res, cfg, params, components.Agent.KnownPairs())
			if path := cfg.Persistence().SummaryPath; path != "" {
				if err := reporting.WriteJSON(path, summary); err != nil {
					return err
				}
				logger.Info("Training summary written.", zap.String("path", path))
			}
			return reporting.PrintConsole(cmd.OutOrStdout(), summary, !noColor)
		},
	}

	trainCmd.Flags().String("url", "", "URL of the form to train on. (Overrides config/env)")
	trainCmd.Flags().Int("episodes", 0, "Maximum number of episodes. (Overrides config/env)")
	trainCmd.Flags().Int("steps", 0, "Maximum steps per episode. (Overrides config/env)")
	trainCmd.Flags().String("knowledge", "", "Path of the knowledge file. (Overrides config/env)")
	trainCmd.Flags().String("backend", "", "Knowledge backend, file or postgres. (Overrides config/env)")
	trainCmd.Flags().String("summary", "", "Path of the training summary JSON. (Overrides config/env)")
	trainCmd.Flags().Bool("headless", true, "Run Chrome without a window. (Overrides config/env)")
	trainCmd.Flags().Int64("seed", 0, "Seed for exploration; 0 seeds from the clock. (Overrides config/env)")
	trainCmd.Flags().BoolVar(&resume, "resume", false, "Continue from saved knowledge instead of starting fresh.")
	return trainCmd
}
