package pricing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/pricescout/metrics"
	"github.com/aluiziolira/pricescout/models"
)

// Resolution sources, as reported in Result and analytics events.
const (
	SourceCache     = "cache"
	SourceStore     = "store"
	SourceExternal  = "external"
	SourceGenerator = "generator"
	SourceNone      = "none"
)

// Default simulated latency: DefaultDelayMin plus up to DefaultDelaySpread.
const (
	DefaultDelayMin    = 1200 * time.Millisecond
	DefaultDelaySpread = 800 * time.Millisecond
)

// ProductSearcher finds stored products by name or category.
type ProductSearcher interface {
	Search(query string) []models.PlatformProduct
}

// Cache stores resolved comparisons per query.
type Cache interface {
	Get(query string) (*models.ProductPricing, bool)
	Set(query string, pricing *models.ProductPricing) error
}

// HistoryRecorder remembers successful queries.
type HistoryRecorder interface {
	Add(query string) error
}

// EventTracker receives one event per search.
type EventTracker interface {
	Track(ev models.SearchEvent)
}

// Result is a resolved comparison and where it came from.
type Result struct {
	Pricing *models.ProductPricing `json:"pricing"`
	Source  string                 `json:"source"`
}

// Resolver runs the cache, store, external and generator chain.
type Resolver struct {
	store     ProductSearcher
	cache     Cache
	history   HistoryRecorder
	tracker   EventTracker
	source    Source
	generator *Generator
	metrics   *metrics.Metrics

	random      Random
	sleep       func(time.Duration)
	now         func() time.Time
	delayMin    time.Duration
	delaySpread time.Duration
	noDelay     bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSource sets the external price source.
func WithSource(src Source) Option {
	return func(r *Resolver) {
		if src != nil {
			r.source = src
		}
	}
}

// WithHistory records successful queries in h.
func WithHistory(h HistoryRecorder) Option {
	return func(r *Resolver) { r.history = h }
}

// WithTracker reports every search to t.
func WithTracker(t EventTracker) Option {
	return func(r *Resolver) { r.tracker = t }
}

// WithMetrics records searches in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithRandom sets the random source for the delay and the generator.
func WithRandom(rnd Random) Option {
	return func(r *Resolver) {
		if rnd != nil {
			r.random = rnd
		}
	}
}

// WithSleep replaces time.Sleep for the simulated latency.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Resolver) { r.sleep = sleep }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithDelay sets the simulated latency window.
func WithDelay(base, spread time.Duration) Option {
	return func(r *Resolver) {
		r.delayMin = base
		r.delaySpread = spread
	}
}

// WithoutDelay skips the simulated latency.
func WithoutDelay() Option {
	return func(r *Resolver) { r.noDelay = true }
}

// NewResolver builds a resolver over store and cache.
func NewResolver(store ProductSearcher, cache Cache, opts ...Option) *Resolver {
	r := &Resolver{
		store:       store,
		cache:       cache,
		source:      NoopSource{},
		random:      globalRandom{},
		sleep:       time.Sleep,
		now:         time.Now,
		delayMin:    DefaultDelayMin,
		delaySpread: DefaultDelaySpread,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.generator = NewGenerator(r.random)
	return r
}

// Search resolves query into a comparison.
func (r *Resolver) Search(ctx context.Context, query string) (*models.ProductPricing, error) {
	res, err := r.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	return res.Pricing, nil
}

// Resolve is Search that also reports the resolving source. It fails with
// ErrEmptyQuery or *NoProductsError.
func (r *Resolver) Resolve(ctx context.Context, query string) (Result, error) {
	return r.ResolveWithFilters(ctx, query, models.Filters{})
}

// ResolveWithFilters is Resolve for a query refined by filters. Cache and
// store lookups use the plain query; only the external source receives the
// query with the color, size and brand refinements appended. Price bounds
// are not applied here, see ApplyFilters.
func (r *Resolver) ResolveWithFilters(ctx context.Context, query string, f models.Filters) (Result, error) {
	start := r.now()
	query = strings.TrimSpace(query)

	res, err := r.resolve(ctx, query, FormatQueryWithFilters(query, f))

	source := res.Source
	if err != nil {
		source = SourceNone
	}
	elapsed := r.now().Sub(start)
	r.metrics.ObserveSearch(source, elapsed)

	if errors.Is(err, ErrEmptyQuery) {
		return Result{}, err
	}

	ev := models.SearchEvent{
		Query:     query,
		Timestamp: r.now().UnixMilli(),
		Duration:  elapsed.Milliseconds(),
		Success:   err == nil,
		Source:    source,
	}
	if err == nil {
		ev.ResultCount = len(res.Pricing.Prices)
	}
	if r.tracker != nil {
		r.tracker.Track(ev)
	}

	if err != nil {
		slog.Warn("search failed", slog.String("query", query), slog.Any("error", err))
		return Result{}, err
	}
	slog.Debug("search resolved",
		slog.String("query", query),
		slog.String("source", source),
		slog.Int("prices", ev.ResultCount),
	)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, query, externalQuery string) (Result, error) {
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	if cached, ok := r.cache.Get(query); ok && cached.Valid() {
		r.remember(query)
		return Result{Pricing: cached, Source: SourceCache}, nil
	}

	if products := r.store.Search(query); len(products) > 0 {
		if pricing := BuildPricing(query, products); pricing.Valid() {
			r.cacheResult(query, pricing)
			return Result{Pricing: pricing, Source: SourceStore}, nil
		}
	}

	r.simulateLatency()

	source := SourceExternal
	pricing, err := r.source.Fetch(ctx, externalQuery)
	if err != nil {
		slog.Warn("external source failed", slog.String("query", query), slog.Any("error", err))
		pricing = nil
	}
	if !pricing.Valid() {
		source = SourceGenerator
		pricing = r.generator.Generate(query)
	}
	if !pricing.Valid() {
		return Result{}, &NoProductsError{Query: query}
	}

	r.cacheResult(query, pricing)
	return Result{Pricing: pricing, Source: source}, nil
}

// cacheResult caches pricing and records the query.
func (r *Resolver) cacheResult(query string, pricing *models.ProductPricing) {
	if err := r.cache.Set(query, pricing); err != nil {
		slog.Error("cache storage failed", slog.String("query", query), slog.Any("error", err))
	}
	r.remember(query)
}

func (r *Resolver) remember(query string) {
	if r.history == nil {
		return
	}
	if err := r.history.Add(query); err != nil {
		slog.Error("search history failed", slog.String("query", query), slog.Any("error", err))
	}
}

func (r *Resolver) simulateLatency() {
	if r.noDelay {
		return
	}
	delay := r.delayMin + time.Duration(r.random.Float64()*float64(r.delaySpread))
	r.sleep(delay)
}
