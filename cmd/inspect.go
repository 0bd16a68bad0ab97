// File: cmd/inspect.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formrl/internal/observability"
	"github.com/xkilldash9x/formrl/internal/reporting"
	"github.com/xkilldash9x/formrl/internal/service"
	"github.com/xkilldash9x/formrl/internal/store"
)

func newInspectCmd() *cobra.Command {
	var limit int

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the best known action for every learned state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			ks, pool, err := service.InitializeStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			k, err := ks.Load(ctx)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No knowledge saved yet.")
				return nil
			}
			if err != nil {
				return err
			}
			return reporting.PrintPolicy(cmd.OutOrStdout(), k, limit, !noColor)
		},
	}

	inspectCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of states to print; 0 prints all.")
	inspectCmd.Flags().String("knowledge", "", "Path of the knowledge file. (Overrides config/env)")
	inspectCmd.Flags().String("backend", "", "Knowledge backend, file or postgres. (Overrides config/env)")
	return inspectCmd
}
