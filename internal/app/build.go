package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/halfmovies/recsvc/internal/audit"
	"github.com/halfmovies/recsvc/internal/catalog"
	"github.com/halfmovies/recsvc/internal/config"
	"github.com/halfmovies/recsvc/internal/httpapi"
	"github.com/halfmovies/recsvc/internal/observability"
	"github.com/halfmovies/recsvc/internal/recommend"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Cache   *recommend.Cache
	Feed    *audit.Feed
	Catalog catalog.Facade
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build assembles the service: catalog facade, audit sink with operator
// feed, ranking engine, per-user cache, and the HTTP surface.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	facade, err := catalog.NewFacade(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog facade init failed: %w", err)
	}
	facade = catalog.WithErrorHook(facade, func(op string) {
		metrics.CatalogErrors.WithLabelValues(op).Inc()
	})

	sink, err := audit.NewSink(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = facade.Close()
		return nil, fmt.Errorf("audit sink init failed: %w", err)
	}

	feed := audit.NewFeed(sink)
	feed.SetDropHook(func() {
		metrics.OpsFeedDrops.Inc()
	})

	engine := recommend.NewEngine(facade, cfg.ResultLimit)
	cache := recommend.NewCache(engine, feed, cfg.CacheTTL, cfg.SlowCallThreshold, metrics, logger)

	api := httpapi.New(cfg, cache, facade, feed, metrics, logger)

	cleanup := func() error {
		var errs []string
		if err := feed.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := facade.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Cache:   cache,
		Feed:    feed,
		Catalog: facade,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
