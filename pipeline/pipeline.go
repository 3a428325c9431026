// Package pipeline turns raw input into validated products and writes them
// to the product store or to export files.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/pricescout/metrics"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/parser"
)

// Store receives accepted products.
type Store interface {
	Append(products []models.PlatformProduct) error
}

// Ingester assembles, validates and stores product records.
type Ingester struct {
	store     Store
	assembler *parser.Assembler
	random    parser.Random
	now       func() time.Time
	prom      *metrics.Metrics

	metrics counters
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithRandom sets the random source used for stock defaults and sample data.
func WithRandom(rnd parser.Random) Option {
	return func(in *Ingester) {
		if rnd != nil {
			in.random = rnd
		}
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Ingester) {
		if now != nil {
			in.now = now
		}
	}
}

// WithMetrics exports ingestion counters to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingester) { in.prom = m }
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// NewIngester builds an ingester writing to store.
func NewIngester(store Store, opts ...Option) *Ingester {
	in := &Ingester{
		store:   store,
		random:  globalRandom{},
		now:     time.Now,
		metrics: newCounters(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.assembler = &parser.Assembler{Random: in.random, Now: in.now}
	return in
}

type candidate struct {
	line    int
	product models.PlatformProduct
}

// ImportText ingests one free-form product per line. Blank lines are
// skipped; lines without a name or price are reported as unparsed. All
// accepted products are appended in a single store write.
func (in *Ingester) ImportText(raw string) (*models.ImportResult, error) {
	result := &models.ImportResult{}

	var candidates []candidate
	for i, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.Lines++
		lineNo := i + 1

		product, err := in.assembler.Assemble(line)
		if err != nil {
			in.unparsed(result, lineNo, err)
			continue
		}
		candidates = append(candidates, candidate{line: lineNo, product: *product})
	}

	if err := in.accept(result, candidates); err != nil {
		return result, err
	}
	slog.Info("text import finished",
		slog.Int("lines", result.Lines),
		slog.Int("accepted", result.Accepted),
		slog.Int("rejected", len(result.Rejected)),
		slog.Int("unparsed", len(result.Unparsed)),
	)
	return result, nil
}

// GetMetrics returns a snapshot of the internal counters.
func (in *Ingester) GetMetrics() map[string]interface{} {
	return in.metrics.snapshot()
}

func (in *Ingester) unparsed(result *models.ImportResult, line int, err error) {
	result.Unparsed = append(result.Unparsed, line)
	in.metrics.addUnparsed()
	in.prom.IncIngest(metrics.OutcomeUnparsed)

	reason := "unparsed"
	switch {
	case errors.Is(err, parser.ErrNoName):
		reason = "no_name"
	case errors.Is(err, parser.ErrNoPrice):
		reason = "no_price"
	}
	slog.Warn("could not extract product", slog.Int("line", line), slog.String("reason", reason))
}

// accept validates candidates and appends the valid ones.
func (in *Ingester) accept(result *models.ImportResult, candidates []candidate) error {
	accepted := make([]models.PlatformProduct, 0, len(candidates))
	for _, c := range candidates {
		if err := parser.ValidateProduct(&c.product); err != nil {
			reasons := []string{err.Error()}
			var verr *parser.ValidationError
			if errors.As(err, &verr) {
				reasons = verr.Reasons
			}

			result.Rejected = append(result.Rejected, models.Rejection{
				Line:        c.line,
				ProductName: c.product.ProductName,
				Errors:      reasons,
			})
			for _, reason := range reasons {
				in.metrics.addValidation(reason)
				in.prom.IncValidation(reason)
			}
			in.prom.IncIngest(metrics.OutcomeRejected)
			slog.Warn("validation errors",
				slog.Int("line", c.line),
				slog.String("product", c.product.ProductName),
				slog.Any("errors", reasons),
			)
			continue
		}
		accepted = append(accepted, c.product)
	}

	if len(accepted) == 0 {
		slog.Warn("no valid products to import")
		return nil
	}
	if err := in.store.Append(accepted); err != nil {
		return fmt.Errorf("store products: %w", err)
	}

	result.Accepted = len(accepted)
	in.metrics.incrementProcessed(len(accepted))
	for range accepted {
		in.prom.IncIngest(metrics.OutcomeAccepted)
	}
	return nil
}

type counters struct {
	mu         sync.Mutex
	processed  int64
	unparsed   int64
	validation map[string]int
}

func newCounters() counters {
	return counters{
		validation: make(map[string]int),
	}
}

func (m *counters) incrementProcessed(n int) {
	m.mu.Lock()
	m.processed += int64(n)
	m.mu.Unlock()
}

func (m *counters) addUnparsed() {
	m.mu.Lock()
	m.unparsed++
	m.mu.Unlock()
}

func (m *counters) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *counters) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_products": m.processed,
		"unparsed_lines":     m.unparsed,
		"validation_errors":  copyValidation,
	}
}
