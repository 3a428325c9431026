// Package scraper fetches product listing pages and extracts text snippets
// suitable for free-text import.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/pricescout/config"
	"github.com/aluiziolira/pricescout/metrics"
)

// DefaultSelector is used when Snippets is called without a selector.
const DefaultSelector = "body"

// Result summarises one snippet fetch.
type Result struct {
	URL          string         `json:"url"`
	Snippets     []string       `json:"snippets"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      time.Time      `json:"endTime"`
	RequestCount int            `json:"requestCount"`
	RetryCount   int            `json:"retryCount"`
	ErrorCount   int            `json:"errorCount"`
	ErrorsByType map[string]int `json:"errorsByType,omitempty"`
	FailedURLs   []string       `json:"failedUrls,omitempty"`
}

// Scraper builds a colly collector per fetch with retry and metrics wired in.
type Scraper struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	transport http.RoundTripper
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTransport replaces the HTTP transport used by the collector.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Scraper) { s.transport = rt }
}

// WithMetrics records requests, retries and errors in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// NewScraper builds a scraper configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) *Scraper {
	s := &Scraper{
		cfg: cfg,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fetch holds the state of a single Snippets call.
type fetch struct {
	collector    *colly.Collector
	retry        *retryManager
	metrics      *metrics.Metrics
	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	snippets     []string
	failedURLs   []string
	errorsByType map[string]int
	lastErr      error
}

// Snippets fetches pageURL and returns the non-empty text lines of every
// element matching selector. Failed requests are retried with exponential
// backoff; when the page still cannot be fetched the returned error wraps
// the classified cause (ErrTimeout, ErrNotFound, ...).
func (s *Scraper) Snippets(ctx context.Context, pageURL, selector string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if selector == "" {
		selector = DefaultSelector
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(s.cfg.Timeout)
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobotsTxt
	collector.WithTransport(s.transport)

	f := &fetch{
		collector:    collector,
		metrics:      s.metrics,
		errorsByType: make(map[string]int),
	}
	f.retry = newRetryManager(collector, s.cfg, s.metrics)
	f.retry.SetContext(ctx)
	f.configureHandlers(selector)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			f.retry.Stop()
		case <-done:
		}
	}()

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	for {
		collector.Wait()
		if !f.retry.WaitPending() {
			break
		}
	}
	f.retry.Stop()

	f.mu.Lock()
	result := &Result{
		URL:          pageURL,
		Snippets:     append([]string{}, f.snippets...),
		StartTime:    start,
		EndTime:      time.Now(),
		RequestCount: int(atomic.LoadInt64(&f.requestCount)),
		RetryCount:   f.retry.TotalRetries(),
		ErrorCount:   int(atomic.LoadInt64(&f.errorCount)),
		ErrorsByType: make(map[string]int, len(f.errorsByType)),
		FailedURLs:   append([]string(nil), f.failedURLs...),
	}
	for k, v := range f.errorsByType {
		result.ErrorsByType[k] = v
	}
	lastErr := f.lastErr
	f.mu.Unlock()

	s.metrics.IncSnippets(len(result.Snippets))
	slog.Info("snippets fetched",
		slog.String("url", pageURL),
		slog.Int("snippets", len(result.Snippets)),
		slog.Int("requests", result.RequestCount),
		slog.Int("retries", result.RetryCount),
	)

	if len(result.FailedURLs) > 0 {
		return result, fmt.Errorf("fetch %s: %w", pageURL, lastErr)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (f *fetch) configureHandlers(selector string) {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		f.metrics.IncRequest("completed")
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		atomic.AddInt64(&f.errorCount, 1)
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		classified := classifyError(err, statusCode)
		category := errorTypeLabel(classified)

		url := ""
		if r != nil && r.Request != nil && r.Request.URL != nil {
			url = r.Request.URL.String()
		}
		slog.Error("request error",
			slog.String("url", url),
			slog.Int("status", statusCode),
			slog.String("category", category),
			slog.Any("error", err),
		)
		f.metrics.IncError(category)

		f.mu.Lock()
		f.errorsByType[category]++
		f.lastErr = classified
		f.mu.Unlock()

		if !f.retry.Schedule(url) {
			f.mu.Lock()
			f.failedURLs = append(f.failedURLs, url)
			f.mu.Unlock()
		}
	})

	f.collector.OnHTML(selector, func(e *colly.HTMLElement) {
		lines := splitSnippets(e.Text)
		if len(lines) == 0 {
			return
		}
		f.mu.Lock()
		f.snippets = append(f.snippets, lines...)
		f.mu.Unlock()
	})
}

// splitSnippets returns the trimmed non-empty lines of text.
func splitSnippets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		return wrapped
	}

	return err
}
