package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ticket-wallet/internal/app"
	"github.com/joseph-ayodele/ticket-wallet/internal/utils"
)

func newExportCmd() *cobra.Command {
	var fromStr, toStr, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the pass ledger to XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var from, to *time.Time
			if fromStr != "" {
				t, err := utils.ParseYMD(fromStr)
				if err != nil {
					return fmt.Errorf("invalid --from date, use YYYY-MM-DD: %w", err)
				}
				from = &t
			}
			if toStr != "" {
				t, err := utils.ParseYMD(toStr)
				if err != nil {
					return fmt.Errorf("invalid --to date, use YYYY-MM-DD: %w", err)
				}
				to = &t
			}
			if from != nil && to != nil && to.Before(*from) {
				return fmt.Errorf("--to %s is before --from %s", toStr, fromStr)
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.Export.ExportPassesXLSX(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&fromStr, "from", "", "first day to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "last day to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&out, "out", "passes.xlsx", "output XLSX path")
	return cmd
}

func init() {
	rootCmd.AddCommand(newExportCmd())
}
