package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/astrorun/internal/application/astro"
	"github.com/sawpanic/astrorun/internal/cache"
	"github.com/sawpanic/astrorun/internal/config"
	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	"github.com/sawpanic/astrorun/internal/infrastructure/db"
	httpapi "github.com/sawpanic/astrorun/internal/interfaces/http"
	"github.com/sawpanic/astrorun/internal/providers/analytic"
	"github.com/sawpanic/astrorun/internal/providers/guards"
	"github.com/sawpanic/astrorun/internal/providers/remote"
)

// app is the wired object graph behind every command.
type app struct {
	service *astro.Service
	guard   *guards.Guard // nil for the analytic provider
	db      *db.Manager
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
}

// build wires provider, evaluator, assembler and chart store from cfg.
// metrics may be nil.
func build(ctx context.Context, cfg *config.Config, metrics *httpapi.MetricsRegistry) (*app, error) {
	a := &app{}

	provider, err := newProvider(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}
	if p, ok := provider.(*remote.Provider); ok {
		a.guard = p.Guard()
	}

	var evalOpts []ephemeris.EvaluatorOption
	if metrics != nil {
		evalOpts = append(evalOpts, ephemeris.WithObserver(metrics.ObserveEvaluation))
	}
	assembler := ephemeris.NewAssembler(ephemeris.NewEvaluator(provider, evalOpts...), cfg.Ephemeris.Concurrency)

	a.db, err = db.NewManager(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.service = astro.NewService(assembler, a.db.Charts())

	log.Info().
		Str("provider", provider.Name()).
		Int("concurrency", cfg.Ephemeris.Concurrency).
		Bool("database", a.db.IsEnabled()).
		Msg("AstroRun wired")
	return a, nil
}

func newProvider(ctx context.Context, cfg *config.Config, metrics *httpapi.MetricsRegistry) (ephemeris.Provider, error) {
	switch cfg.Ephemeris.Provider {
	case config.ProviderAnalytic, "":
		return analytic.New(cfg.Ephemeris.Analytic())
	case config.ProviderRemote:
		c := cache.New(cfg.Cache)
		if r, ok := c.(*cache.Redis); ok {
			if err := r.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Redis unreachable, cache misses will fall through")
			}
		}
		var opts []remote.Option
		if metrics != nil {
			opts = append(opts, remote.WithGuardObserver(metrics))
		}
		return remote.New(cfg.Remote(), c, opts...)
	default:
		return nil, fmt.Errorf("unknown ephemeris provider %q", cfg.Ephemeris.Provider)
	}
}
