// File: cmd/report.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/reporting"
)

// newReportCmd creates and configures the `report` command.
func newReportCmd() *cobra.Command {
	var htmlPath string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render a training summary as HTML charts and a console table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			summary, err := reporting.ReadJSON(cfg.Persistence().SummaryPath)
			if err != nil {
				return err
			}

			if htmlPath != "" {
				f, err := os.Create(htmlPath)
				if err != nil {
					return fmt.Errorf("failed to create output file %s: %w", htmlPath, err)
				}
				if err := reporting.RenderHTML(f, summary); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to write %s: %w", htmlPath, err)
				}
				logger.Info("Report generated.", zap.String("path", htmlPath))
			}

			return reporting.PrintConsole(cmd.OutOrStdout(), summary, !noColor)
		},
	}

	reportCmd.Flags().StringVarP(&htmlPath, "output", "o", "training_report.html", "HTML output path; empty skips the charts.")
	reportCmd.Flags().String("summary", "", "Path of the training summary JSON. (Overrides config/env)")
	return reportCmd
}
