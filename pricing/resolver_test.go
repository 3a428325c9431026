package pricing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aluiziolira/pricescout/analytics"
	"github.com/aluiziolira/pricescout/cache"
	"github.com/aluiziolira/pricescout/metrics"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/storage"
)

type fakeSource struct {
	pricing *models.ProductPricing
	err     error
	calls   int
	queries []string
}

func (f *fakeSource) Fetch(_ context.Context, query string) (*models.ProductPricing, error) {
	f.calls++
	f.queries = append(f.queries, query)
	return f.pricing, f.err
}

type harness struct {
	store    *storage.ProductStore
	cache    *cache.PriceCache
	history  *cache.History
	tracker  *analytics.Tracker
	metrics  *metrics.Metrics
	slept    []time.Duration
	resolver *Resolver
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	backend := storage.NewMemoryBackend()
	pc, err := cache.NewPriceCache(backend)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	h := &harness{
		store:   storage.NewProductStore(backend),
		cache:   pc,
		history: cache.NewHistory(backend, cache.DefaultHistorySize),
		tracker: analytics.NewTracker(backend, 0),
		metrics: metrics.New(),
	}

	base := []Option{
		WithRandom(fixedRandom(0.5)),
		WithSleep(func(d time.Duration) { h.slept = append(h.slept, d) }),
		WithHistory(h.history),
		WithTracker(h.tracker),
		WithMetrics(h.metrics),
	}
	h.resolver = NewResolver(h.store, h.cache, append(base, opts...)...)
	return h
}

func TestResolveEmptyQuery(t *testing.T) {
	h := newHarness(t)

	_, err := h.resolver.Resolve(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
	if got := h.tracker.Events(); len(got) != 0 {
		t.Fatalf("blank queries must not be tracked, got %v", got)
	}
}

func TestResolveFromStoreThenCache(t *testing.T) {
	h := newHarness(t)
	if err := h.store.Append([]models.PlatformProduct{
		{ProductName: "iPhone 15", Platform: "Amazon", Price: 74000, InStock: true, Rating: 4.5, Category: "smartphones"},
		{ProductName: "iPhone 15", Platform: "Flipkart", Price: 72000, InStock: true, Rating: 4.3, Category: "smartphones"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := h.resolver.Resolve(context.Background(), "iPhone")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Source != SourceStore {
		t.Fatalf("source = %q, want %q", first.Source, SourceStore)
	}
	if first.Pricing.LowestPrice != 72000 || first.Pricing.Prices[0].Platform != "Flipkart" {
		t.Fatalf("unexpected pricing: %+v", first.Pricing)
	}
	if len(h.slept) != 0 {
		t.Fatal("store hits must not simulate latency")
	}

	second, err := h.resolver.Resolve(context.Background(), " IPHONE ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if second.Source != SourceCache {
		t.Fatalf("source = %q, want %q", second.Source, SourceCache)
	}

	if got := h.history.List(); len(got) != 1 || got[0] != "iphone" {
		t.Fatalf("history = %v", got)
	}

	events := h.tracker.Events()
	if len(events) != 2 || !events[0].Success || events[1].Source != SourceCache || events[0].ResultCount != 2 {
		t.Fatalf("events = %+v", events)
	}
	if got := testutil.ToFloat64(h.metrics.SearchesTotal.WithLabelValues(SourceCache)); got != 1 {
		t.Fatalf("cache searches metric = %v, want 1", got)
	}
}

func TestResolveStoreIgnoresOriginalBelowPrice(t *testing.T) {
	h := newHarness(t)
	if err := h.store.Append([]models.PlatformProduct{
		{ProductName: "Phone X", Platform: "Amazon", Price: 5000, OriginalPrice: models.Float(4000), InStock: true, Rating: 4.2, Category: "smartphones"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	res, err := h.resolver.Resolve(context.Background(), "phone x")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceStore {
		t.Fatalf("source = %q, want %q", res.Source, SourceStore)
	}
	if res.Pricing.LowestPrice != 5000 || res.Pricing.HighestPrice != 5000 {
		t.Fatalf("lowest/highest = %v/%v, want 5000/5000", res.Pricing.LowestPrice, res.Pricing.HighestPrice)
	}
}

func TestResolveSkipsInvalidCacheEntry(t *testing.T) {
	h := newHarness(t)
	if err := h.cache.Set("kettle", &models.ProductPricing{ProductName: "Kettle"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	res, err := h.resolver.Resolve(context.Background(), "kettle")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceGenerator {
		t.Fatalf("source = %q, want %q", res.Source, SourceGenerator)
	}
}

func TestResolveFallsBackToGenerator(t *testing.T) {
	h := newHarness(t)

	res, err := h.resolver.Resolve(context.Background(), "wireless mouse")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceGenerator {
		t.Fatalf("source = %q, want %q", res.Source, SourceGenerator)
	}
	if !res.Pricing.Valid() {
		t.Fatalf("invalid pricing: %+v", res.Pricing)
	}
	if len(h.slept) != 1 || h.slept[0] != 1600*time.Millisecond {
		t.Fatalf("slept = %v, want [1.6s]", h.slept)
	}

	if _, ok := h.cache.Get("wireless mouse"); !ok {
		t.Fatal("generated pricing should be cached")
	}
}

func TestResolveUsesExternalSource(t *testing.T) {
	external := &models.ProductPricing{
		ProductName:  "Kettle",
		Prices:       []models.PriceData{{Platform: "Croma", Price: 1499, InStock: true, Rating: 4}},
		LowestPrice:  1499,
		HighestPrice: 1499,
	}
	src := &fakeSource{pricing: external}
	h := newHarness(t, WithSource(src), WithoutDelay())

	res, err := h.resolver.Resolve(context.Background(), "kettle")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceExternal || res.Pricing.Prices[0].Platform != "Croma" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(h.slept) != 0 {
		t.Fatal("WithoutDelay must skip the sleep")
	}
}

func TestResolveWithFiltersRefinesExternalQueryOnly(t *testing.T) {
	src := &fakeSource{}
	h := newHarness(t, WithSource(src), WithoutDelay())
	if err := h.store.Append([]models.PlatformProduct{
		{ProductName: "Running shoes", Platform: "Myntra", Price: 2999, InStock: true, Rating: 4.1, Category: "shoes"},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	filters := models.Filters{Brand: "nike", Color: "red"}

	res, err := h.resolver.ResolveWithFilters(context.Background(), "running shoes", filters)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceStore || src.calls != 0 {
		t.Fatalf("source = %q calls = %d, want store hit", res.Source, src.calls)
	}

	if _, err := h.resolver.ResolveWithFilters(context.Background(), "kettle", filters); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(src.queries) != 1 || src.queries[0] != "kettle red nike" {
		t.Fatalf("external queries = %v", src.queries)
	}
	if got := h.history.List(); len(got) != 2 || got[0] != "kettle" || got[1] != "running shoes" {
		t.Fatalf("history = %v", got)
	}
}

func TestResolveExternalErrorFallsBack(t *testing.T) {
	src := &fakeSource{err: errors.New("aggregator down")}
	h := newHarness(t, WithSource(src))

	res, err := h.resolver.Resolve(context.Background(), "yoga mat")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if src.calls != 1 || res.Source != SourceGenerator {
		t.Fatalf("calls=%d source=%q", src.calls, res.Source)
	}
}

func TestResolveWithHTTPSource(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, "https://prices.example.test/search",
		httpmock.NewStringResponder(http.StatusOK, `{"productName":"Kettle","products":[{"platform":"Croma","price":"1299"}]}`))

	src := NewHTTPSource("https://prices.example.test/search", &http.Client{Transport: transport})
	h := newHarness(t, WithSource(src), WithoutDelay())

	pricing, err := h.resolver.Search(context.Background(), "kettle")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if pricing.LowestPrice != 1299 || pricing.Prices[0].Platform != "Croma" {
		t.Fatalf("unexpected pricing: %+v", pricing)
	}
}

func TestNoProductsError(t *testing.T) {
	err := error(&NoProductsError{Query: "zzz"})
	if got, want := err.Error(), `no products found for "zzz". Try another search.`; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	var npe *NoProductsError
	if !errors.As(err, &npe) || npe.Query != "zzz" {
		t.Fatal("errors.As failed")
	}
}
