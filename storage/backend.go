// Package storage provides the string key-value space every PriceScout
// component persists into, and the product database built on top of it.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Backend is a flat string key-value store.
type Backend interface {
	// Get returns the value for key. A missing key yields ok=false and a nil error.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	// Keys lists keys with the given prefix in ascending order.
	Keys(prefix string) ([]string, error)
	Close() error
}

// Storage drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Open returns the backend selected by driver.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryBackend(), nil
	case DriverSQLite:
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// MemoryBackend keeps everything in a map. It is safe for concurrent use.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Close() error { return nil }
