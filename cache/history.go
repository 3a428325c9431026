package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/storage"
)

const (
	// HistoryKey is the backend key of the recent-search list.
	HistoryKey = "pricescout_search_history"
	// DefaultHistorySize bounds the recent-search list.
	DefaultHistorySize = 10
)

// History is the most-recent-first list of distinct normalized queries.
type History struct {
	backend storage.Backend
	size    int
	mu      sync.Mutex
}

// NewHistory returns a history holding at most size queries.
func NewHistory(backend storage.Backend, size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{backend: backend, size: size}
}

// Add moves query to the front, dropping any earlier occurrence and the
// oldest entries beyond the size limit. Blank queries are ignored.
func (h *History) Add(query string) error {
	q := models.NormalizeQuery(query)
	if q == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.load()
	updated := make([]string, 0, h.size)
	updated = append(updated, q)
	for _, existing := range current {
		if len(updated) == h.size {
			break
		}
		if models.NormalizeQuery(existing) != q {
			updated = append(updated, existing)
		}
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.backend.Set(HistoryKey, string(data)); err != nil {
		return fmt.Errorf("store history: %w", err)
	}
	return nil
}

// List returns the recent queries, newest first.
func (h *History) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Clear empties the history.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.backend.Delete(HistoryKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (h *History) load() []string {
	raw, ok, err := h.backend.Get(HistoryKey)
	if err != nil {
		slog.Error("history retrieval failed", slog.Any("error", err))
		return []string{}
	}
	if !ok {
		return []string{}
	}

	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		slog.Warn("history decode failed", slog.Any("error", err))
		return []string{}
	}
	if history == nil {
		history = []string{}
	}
	return history
}
