package main

import (
	"fmt"
	"net/http"

	"github.com/aluiziolira/pricescout/analytics"
	"github.com/aluiziolira/pricescout/api"
	"github.com/aluiziolira/pricescout/cache"
	"github.com/aluiziolira/pricescout/config"
	"github.com/aluiziolira/pricescout/metrics"
	"github.com/aluiziolira/pricescout/pipeline"
	"github.com/aluiziolira/pricescout/pricing"
	"github.com/aluiziolira/pricescout/storage"
)

// app holds every component built from one Config.
type app struct {
	cfg      *config.Config
	backend  storage.Backend
	store    *storage.ProductStore
	cache    *cache.PriceCache
	history  *cache.History
	tracker  *analytics.Tracker
	metrics  *metrics.Metrics
	resolver *pricing.Resolver
	ingester *pipeline.Ingester
}

func newApp(cfg *config.Config) (*app, error) {
	backend, err := storage.Open(cfg.StorageDriver, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	priceCache, err := cache.NewPriceCache(backend,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithHotSize(cfg.CacheHotSize),
	)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	a := &app{
		cfg:     cfg,
		backend: backend,
		store:   storage.NewProductStore(backend),
		cache:   priceCache,
		history: cache.NewHistory(backend, cfg.HistorySize),
		tracker: analytics.NewTracker(backend, cfg.AnalyticsMaxEntries),
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	opts := []pricing.Option{
		pricing.WithHistory(a.history),
		pricing.WithTracker(a.tracker),
		pricing.WithMetrics(a.metrics),
	}
	if cfg.ExternalURL != "" {
		client := &http.Client{Timeout: cfg.ExternalTimeout}
		opts = append(opts, pricing.WithSource(pricing.NewHTTPSource(cfg.ExternalURL, client)))
	}
	if cfg.DelayEnabled {
		opts = append(opts, pricing.WithDelay(cfg.DelayMin, cfg.DelaySpread))
	} else {
		opts = append(opts, pricing.WithoutDelay())
	}
	a.resolver = pricing.NewResolver(a.store, a.cache, opts...)
	a.ingester = pipeline.NewIngester(a.store, pipeline.WithMetrics(a.metrics))

	return a, nil
}

func (a *app) services() api.Services {
	return api.Services{
		Store:    a.store,
		Cache:    a.cache,
		History:  a.history,
		Tracker:  a.tracker,
		Resolver: a.resolver,
		Ingester: a.ingester,
		Metrics:  a.metrics,
	}
}

func (a *app) Close() error {
	if err := a.backend.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
