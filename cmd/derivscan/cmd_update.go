package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newUpdateCmd() *cobra.Command {
	var technicalOnly, expiryOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reconcile the indicator caches with the raw data",
		Long: `Sweeps every entity and writes the cache rows whose (date, entity)
keys are not persisted yet. Safe to rerun at any time; an unchanged
database produces zero writes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, log, err := setup()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !expiryOnly {
				report, err := svc.UpdateTechnical(ctx)
				if err != nil {
					return err
				}
				log.Info().
					Int("processed", report.Processed).
					Int64("rows_written", report.RowsWritten).
					Msg("technical cache updated")
			}
			if !technicalOnly {
				report, err := svc.UpdateExpiry(ctx)
				if err != nil {
					return err
				}
				log.Info().
					Int("processed", report.Processed).
					Int64("rows_written", report.RowsWritten).
					Msg("expiry cache updated")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&technicalOnly, "technical-only", false, "update only the technical indicator cache")
	cmd.Flags().BoolVar(&expiryOnly, "expiry-only", false, "update only the expiry open-interest cache")
	cmd.MarkFlagsMutuallyExclusive("technical-only", "expiry-only")
	return cmd
}
