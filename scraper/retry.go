package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/pricescout/config"
	"github.com/aluiziolira/pricescout/metrics"
)

type retryManager struct {
	collector *colly.Collector
	cfg       *config.Config
	metrics   *metrics.Metrics
	ctx       context.Context

	mu           sync.Mutex
	attempts     map[string]int
	timers       map[string]*time.Timer
	totalRetries int
	stopped      bool

	// waiting counts scheduled retries that have not issued their visit.
	waiting int
	idle    *sync.Cond
}

func newRetryManager(collector *colly.Collector, cfg *config.Config, m *metrics.Metrics) *retryManager {
	rm := &retryManager{
		collector: collector,
		cfg:       cfg,
		attempts:  make(map[string]int),
		timers:    make(map[string]*time.Timer),
		metrics:   m,
		ctx:       context.Background(),
	}
	rm.idle = sync.NewCond(&rm.mu)
	return rm
}

func (rm *retryManager) Schedule(url string) bool {
	if rm.cfg.MaxRetries == 0 {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped || rm.ctx.Err() != nil {
		return false
	}

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	delay := rm.backoff(attempt)
	rm.resetTimerLocked(url)
	rm.waiting++
	rm.timers[url] = time.AfterFunc(delay, func() {
		rm.fireRetry(url)
	})
	slog.Debug("retry scheduled", slog.String("url", url), slog.Int("attempt", attempt), slog.Duration("delay", delay))
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if limit := rm.cfg.RetryBackoffMax; limit > 0 && delay > limit {
		delay = limit
	}
	return delay
}

// resetTimerLocked cancels a timer that has not fired yet.
func (rm *retryManager) resetTimerLocked(url string) {
	if timer, ok := rm.timers[url]; ok {
		if timer.Stop() {
			rm.doneLocked()
		}
		delete(rm.timers, url)
	}
}

func (rm *retryManager) doneLocked() {
	rm.waiting--
	if rm.waiting == 0 {
		rm.idle.Broadcast()
	}
}

func (rm *retryManager) fireRetry(url string) {
	rm.mu.Lock()
	delete(rm.timers, url)
	stopped := rm.stopped
	ctx := rm.ctx
	rm.mu.Unlock()

	if !stopped && ctx.Err() == nil {
		if err := rm.collector.Visit(url); err != nil {
			slog.Debug("retry visit failed", slog.String("url", url), slog.Any("error", err))
		}
	}

	rm.mu.Lock()
	rm.doneLocked()
	rm.mu.Unlock()
}

// WaitPending blocks until every scheduled retry has issued its visit. It
// reports whether there was anything to wait for.
func (rm *retryManager) WaitPending() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.waiting == 0 {
		return false
	}
	for rm.waiting > 0 {
		rm.idle.Wait()
	}
	return true
}

func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}

	rm.stopped = true
	for url, timer := range rm.timers {
		if timer.Stop() {
			rm.doneLocked()
		}
		delete(rm.timers, url)
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		rm.ctx = context.Background()
		return
	}
	rm.ctx = ctx
}
