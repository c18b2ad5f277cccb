package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ClipFinance/juice-bot-relay/connectionmonitor"
	"github.com/ClipFinance/juice-bot-relay/metrics"
	"github.com/ClipFinance/juice-bot-relay/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the relay over HTTP with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(cmd, opts, func(a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	monitor := connectionmonitor.NewConnectionMonitor(
		a.backend,
		a.logger,
		a.config.Backend.String(),
		connectionmonitor.WithStatusHook(metrics.SetBackendHealthy),
	)
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	return server.NewServer(a.config.HTTPAddr, a.relay, monitor, a.logger, a.config.MetricsKey).Start(ctx)
}
