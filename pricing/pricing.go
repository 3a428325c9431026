// Package pricing resolves a search query into a cross-platform price
// comparison.
package pricing

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aluiziolira/pricescout/models"
)

// Random supplies uniformly distributed values in [0, 1).
type Random interface {
	Float64() float64
}

// BuildPricing turns stored products into a comparison named after query.
// It returns nil when products is empty.
func BuildPricing(query string, products []models.PlatformProduct) *models.ProductPricing {
	if len(products) == 0 {
		return nil
	}

	prices := make([]models.PriceData, 0, len(products))
	for i := range products {
		prices = append(prices, products[i].PriceData())
	}
	return newPricing(DisplayName(query), prices)
}

// DisplayName trims query and upper-cases its first letter.
func DisplayName(query string) string {
	q := strings.TrimSpace(query)
	r, size := utf8.DecodeRuneInString(q)
	if r == utf8.RuneError {
		return q
	}
	return string(unicode.ToUpper(r)) + q[size:]
}

// newPricing sorts prices ascending and derives the lowest and highest
// prices. It returns nil for an empty price list.
func newPricing(name string, prices []models.PriceData) *models.ProductPricing {
	if len(prices) == 0 {
		return nil
	}

	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Price < prices[j].Price
	})

	highest := prices[0].Ceiling()
	for _, p := range prices[1:] {
		if c := p.Ceiling(); c > highest {
			highest = c
		}
	}

	return &models.ProductPricing{
		ProductName:  name,
		Prices:       prices,
		LowestPrice:  prices[0].Price,
		HighestPrice: highest,
	}
}
