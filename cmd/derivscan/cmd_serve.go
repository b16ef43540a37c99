package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the nightly cache jobs on their cron cadence",
		Long: `Starts the scheduler with the configured technical, expiry and
classification jobs, plus the monitoring endpoints, and blocks until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, err := setup()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return svc.RunMonitor(ctx) })
			g.Go(func() error { return svc.RunScheduler(ctx) })
			return g.Wait()
		},
	}
}

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Serve only the health, metrics and signals endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, err := setup()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return svc.RunMonitor(ctx)
		},
	}
}
