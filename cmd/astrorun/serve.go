package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/sawpanic/astrorun/internal/interfaces/http"
	"github.com/sawpanic/astrorun/internal/interfaces/http/handlers"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serves positions, signs, aspects, charts, /ws/now, /health and /metrics until interrupted",
		RunE:  c.runServe,
	}
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := c.cfg

	metrics := httpapi.NewMetricsRegistry()
	a, err := build(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := handlers.Options{
		StreamInterval: cfg.Stream.Interval,
		Database:       a.db.Health(),
		StreamObserver: metrics,
	}
	if a.guard != nil {
		opts.Breaker = a.guard
	}
	server := httpapi.NewServer(cfg.Server, handlers.NewHandlers(a.service, opts), metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info().Str("addr", server.GetAddress()).Str("provider", a.service.ProviderName()).Msg("AstroRun API ready")
	return g.Wait()
}
