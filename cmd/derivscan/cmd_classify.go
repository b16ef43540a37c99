package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var dateArg string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one date's screening signals",
		Long: `Aggregates the date's screening-bucket memberships into one
bullish/bearish/neutral label per entity and persists the result with the
full voting breakdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse("2006-01-02", dateArg)
			if err != nil {
				return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", dateArg)
			}

			svc, _, log, err := setup()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := svc.ClassifyDate(ctx, date)
			if err != nil {
				return err
			}
			log.Info().
				Str("date", dateArg).
				Int("entities", report.Processed).
				Int64("rows_written", report.RowsWritten).
				Msg("signals classified")
			return nil
		},
	}

	cmd.Flags().StringVar(&dateArg, "date", "", "trade date to classify (YYYY-MM-DD)")
	cmd.MarkFlagRequired("date")
	return cmd
}
