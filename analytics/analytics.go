// Package analytics records search events in a bounded log.
package analytics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/storage"
)

const (
	// Key is the backend key of the analytics log.
	Key = "pricescout_analytics"
	// DefaultMaxEntries bounds the log; the oldest event is dropped first.
	DefaultMaxEntries = 1000
)

// Log is the persisted analytics document.
type Log struct {
	Searches    []models.SearchEvent `json:"searches"`
	LastUpdated int64                `json:"lastUpdated,omitempty"`
}

// Summary aggregates the log.
type Summary struct {
	TotalSearches     int      `json:"totalSearches"`
	AverageSearchTime float64  `json:"averageSearchTime"` // milliseconds
	TopSearches       []string `json:"topSearches"`
	SuccessRate       int      `json:"successRate"`
	LastUpdated       int64    `json:"lastUpdated"`
}

// Tracker appends search events to the log stored under Key.
type Tracker struct {
	backend    storage.Backend
	maxEntries int
	now        func() time.Time
	mu         sync.Mutex
}

// NewTracker returns a tracker keeping at most maxEntries events.
func NewTracker(backend storage.Backend, maxEntries int) *Tracker {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Tracker{backend: backend, maxEntries: maxEntries, now: time.Now}
}

// Track appends ev, evicting the oldest events beyond the limit. Failures
// are logged; analytics never breaks a search.
func (t *Tracker) Track(ev models.SearchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	log := t.load()
	log.Searches = append(log.Searches, ev)
	if over := len(log.Searches) - t.maxEntries; over > 0 {
		log.Searches = log.Searches[over:]
	}
	log.LastUpdated = t.now().UnixMilli()

	data, err := json.Marshal(log)
	if err != nil {
		slog.Error("analytics encode failed", slog.Any("error", err))
		return
	}
	if err := t.backend.Set(Key, string(data)); err != nil {
		slog.Error("analytics tracking failed", slog.Any("error", err))
	}
}

// Events returns the logged events, oldest first.
func (t *Tracker) Events() []models.SearchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load().Searches
}

// TopSearches returns up to limit queries ordered by frequency. Ties keep
// the order in which queries first appeared.
func (t *Tracker) TopSearches(limit int) []string {
	return topSearches(t.Events(), limit)
}

// SuccessRate returns the share of successful searches as a rounded
// percentage, or 0 for an empty log.
func (t *Tracker) SuccessRate() int {
	return successRate(t.Events())
}

// Summary aggregates the whole log.
func (t *Tracker) Summary(limit int) Summary {
	t.mu.Lock()
	log := t.load()
	t.mu.Unlock()

	s := Summary{
		TotalSearches: len(log.Searches),
		TopSearches:   topSearches(log.Searches, limit),
		SuccessRate:   successRate(log.Searches),
		LastUpdated:   log.LastUpdated,
	}
	if len(log.Searches) > 0 {
		var total int64
		for _, ev := range log.Searches {
			total += ev.Duration
		}
		s.AverageSearchTime = float64(total) / float64(len(log.Searches))
	}
	return s
}

// Export renders the log as indented JSON, or "{}" on failure.
func (t *Tracker) Export() string {
	t.mu.Lock()
	log := t.load()
	t.mu.Unlock()

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		slog.Error("analytics export failed", slog.Any("error", err))
		return "{}"
	}
	return string(data)
}

// Clear drops the log.
func (t *Tracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.backend.Delete(Key); err != nil {
		return fmt.Errorf("clear analytics: %w", err)
	}
	return nil
}

func (t *Tracker) load() Log {
	empty := Log{Searches: []models.SearchEvent{}}

	raw, ok, err := t.backend.Get(Key)
	if err != nil {
		slog.Error("analytics retrieval failed", slog.Any("error", err))
		return empty
	}
	if !ok {
		return empty
	}

	var log Log
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		slog.Warn("analytics decode failed", slog.Any("error", err))
		return empty
	}
	if log.Searches == nil {
		log.Searches = []models.SearchEvent{}
	}
	return log
}

func topSearches(events []models.SearchEvent, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, ev := range events {
		if _, ok := counts[ev.Query]; !ok {
			order = append(order, ev.Query)
		}
		counts[ev.Query]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if limit >= 0 && len(order) > limit {
		order = order[:limit]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

func successRate(events []models.SearchEvent) int {
	if len(events) == 0 {
		return 0
	}
	successful := 0
	for _, ev := range events {
		if ev.Success {
			successful++
		}
	}
	return int(math.Round(float64(successful) / float64(len(events)) * 100))
}
