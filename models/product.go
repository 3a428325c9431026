// Package models defines data structures shared by the ingestion and pricing pipelines.
package models

import (
	"strings"
	"unicode"
)

// PlatformProduct is one observation of a product on a single platform.
type PlatformProduct struct {
	ID            string   `json:"id"`
	ProductName   string   `json:"productName"`
	Platform      string   `json:"platform"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Discount      *float64 `json:"discount,omitempty"`
	InStock       bool     `json:"inStock"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	URL           string   `json:"url"`
	Category      string   `json:"category"`
	Timestamp     int64    `json:"timestamp"` // unix milliseconds
}

// Key returns the store bucket key for the product.
func (p *PlatformProduct) Key() string {
	return NormalizeKey(p.ProductName)
}

// PriceData returns the presentation subset of the product.
func (p *PlatformProduct) PriceData() PriceData {
	return PriceData{
		Platform:      p.Platform,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Discount:      p.Discount,
		InStock:       p.InStock,
		Rating:        p.Rating,
		Reviews:       p.Reviews,
		URL:           p.URL,
	}
}

// ProductDatabase maps a normalized product key to every stored observation,
// in insertion order.
type ProductDatabase map[string][]PlatformProduct

// Entries counts every product across all buckets.
func (db ProductDatabase) Entries() int {
	total := 0
	for _, bucket := range db {
		total += len(bucket)
	}
	return total
}

// NormalizeKey lowercases name and strips all whitespace.
func NormalizeKey(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToLower(name))
}

// NormalizeQuery trims and lowercases a search query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
