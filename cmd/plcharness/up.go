package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/opcpublisher/plcharness/internal/lifecycle"
	"github.com/opcpublisher/plcharness/internal/logging"
	"github.com/opcpublisher/plcharness/internal/metrics"
)

func newUpCmd(o *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision a fresh simulator and keep it running",
		Long: `up removes stale simulator containers, pulls the latest image and starts a
new simulator. The container keeps running after up exits; remove it with
"plcharness down".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("metrics-addr") {
				o.cfg.MetricsAddr = metricsAddr
			}
			return runUp(cmd, o)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /status on this address until interrupted")
	return cmd
}

func runUp(cmd *cobra.Command, o *rootOptions) error {
	if err := o.ensureEngineSocketAccessible(); err != nil {
		return err
	}
	ctx := cmd.Context()
	f := lifecycle.New(o.cfg, o.fixtureOptions()...)
	h, err := f.Acquire(ctx)
	if err != nil {
		// leave nothing half-provisioned behind
		if rerr := f.Release(context.WithoutCancel(ctx)); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", h.ID, h.Name, h.Endpoint())

	if o.cfg.MetricsAddr == "" {
		return nil
	}
	return serveMetrics(ctx, o.cfg.MetricsAddr)
}

// serveMetrics serves the metrics mux until ctx is done, then shuts the
// server down.
func serveMetrics(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: metrics.Mux(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logging.Get().Info().Str("addr", addr).Msg("starting metrics server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	logging.Get().Info().Msg("shutdown signal received, stopping metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
