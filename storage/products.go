package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/aluiziolira/pricescout/models"
)

// ProductDBKey is the backend key holding the serialized product database.
const ProductDBKey = "pricescout_product_db"

// ProductStore is the product database persisted under ProductDBKey.
// Read-modify-write cycles are serialized, so concurrent imports never lose
// each other's records.
type ProductStore struct {
	backend Backend
	mu      sync.Mutex
}

// NewProductStore wraps backend.
func NewProductStore(backend Backend) *ProductStore {
	return &ProductStore{backend: backend}
}

// Database returns the full product database. Storage or decode failures are
// logged and yield an empty database.
func (s *ProductStore) Database() models.ProductDatabase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds products to the bucket of their normalized name. Existing
// entries are kept; duplicates accumulate.
func (s *ProductStore) Append(products []models.PlatformProduct) error {
	if len(products) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.load()
	for _, p := range products {
		key := p.Key()
		db[key] = append(db[key], p)
	}
	if err := s.store(db); err != nil {
		return fmt.Errorf("append %d products: %w", len(products), err)
	}
	slog.Debug("products appended", slog.Int("count", len(products)))
	return nil
}

// Save replaces the bucket stored under key.
func (s *ProductStore) Save(key string, products []models.PlatformProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.load()
	db[key] = products
	if err := s.store(db); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Get returns the bucket for a product name, or nil when absent.
func (s *ProductStore) Get(name string) []models.PlatformProduct {
	return s.Database()[models.NormalizeKey(name)]
}

// Search returns products whose name or category contains query,
// case-insensitively. Buckets are visited in key order.
func (s *ProductStore) Search(query string) []models.PlatformProduct {
	q := strings.ToLower(query)
	return s.filter(func(p *models.PlatformProduct) bool {
		return strings.Contains(strings.ToLower(p.ProductName), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	})
}

// All returns every stored product, buckets in key order.
func (s *ProductStore) All() []models.PlatformProduct {
	return s.filter(func(*models.PlatformProduct) bool { return true })
}

// ByCategory returns products in category, compared case-insensitively.
func (s *ProductStore) ByCategory(category string) []models.PlatformProduct {
	return s.filter(func(p *models.PlatformProduct) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// ByPlatform returns products listed on platform, compared case-insensitively.
func (s *ProductStore) ByPlatform(platform string) []models.PlatformProduct {
	return s.filter(func(p *models.PlatformProduct) bool {
		return strings.EqualFold(p.Platform, platform)
	})
}

// Export renders the database as indented JSON. On failure it returns "{}".
func (s *ProductStore) Export() string {
	data, err := json.MarshalIndent(s.Database(), "", "  ")
	if err != nil {
		slog.Error("database export failed", slog.Any("error", err))
		return "{}"
	}
	return string(data)
}

// Clear removes the whole database.
func (s *ProductStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ProductDBKey); err != nil {
		return fmt.Errorf("clear database: %w", err)
	}
	return nil
}

// Stats summarises the database. Platforms and categories are listed in
// order of first appearance.
func (s *ProductStore) Stats() models.DatabaseStats {
	db := s.Database()
	stats := models.DatabaseStats{
		TotalProducts: len(db),
		Platforms:     []string{},
		Categories:    []string{},
	}

	seenPlatform := make(map[string]struct{})
	seenCategory := make(map[string]struct{})
	for _, key := range sortedKeys(db) {
		for _, p := range db[key] {
			stats.TotalEntries++
			if _, ok := seenPlatform[p.Platform]; !ok {
				seenPlatform[p.Platform] = struct{}{}
				stats.Platforms = append(stats.Platforms, p.Platform)
			}
			if _, ok := seenCategory[p.Category]; !ok {
				seenCategory[p.Category] = struct{}{}
				stats.Categories = append(stats.Categories, p.Category)
			}
		}
	}
	return stats
}

func (s *ProductStore) filter(keep func(p *models.PlatformProduct) bool) []models.PlatformProduct {
	db := s.Database()

	var results []models.PlatformProduct
	for _, key := range sortedKeys(db) {
		for i := range db[key] {
			if keep(&db[key][i]) {
				results = append(results, db[key][i])
			}
		}
	}
	return results
}

func (s *ProductStore) load() models.ProductDatabase {
	raw, ok, err := s.backend.Get(ProductDBKey)
	if err != nil {
		slog.Error("database retrieval failed", slog.Any("error", err))
		return models.ProductDatabase{}
	}
	if !ok {
		return models.ProductDatabase{}
	}

	db := models.ProductDatabase{}
	if err := json.Unmarshal([]byte(raw), &db); err != nil {
		slog.Error("database decode failed", slog.Any("error", err))
		return models.ProductDatabase{}
	}
	return db
}

func (s *ProductStore) store(db models.ProductDatabase) error {
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("encode database: %w", err)
	}
	return s.backend.Set(ProductDBKey, string(data))
}

func sortedKeys(db models.ProductDatabase) []string {
	keys := make([]string, 0, len(db))
	for k := range db {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
