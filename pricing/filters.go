package pricing

import (
	"strings"

	"github.com/aluiziolira/pricescout/models"
)

// ApplyFilters returns the prices satisfying every set bound. InStock only
// constrains when it is true.
func ApplyFilters(prices []models.PriceData, f models.Filters) []models.PriceData {
	out := make([]models.PriceData, 0, len(prices))
	for _, p := range prices {
		if f.PriceMin != nil && p.Price < *f.PriceMin {
			continue
		}
		if f.PriceMax != nil && p.Price > *f.PriceMax {
			continue
		}
		if f.InStock != nil && *f.InStock && !p.InStock {
			continue
		}
		if f.Rating != nil && p.Rating < *f.Rating {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FormatQueryWithFilters appends the color, size and brand attributes to
// query, space separated.
func FormatQueryWithFilters(query string, f models.Filters) string {
	parts := []string{query}
	for _, attr := range []string{f.Color, f.Size, f.Brand} {
		if attr != "" {
			parts = append(parts, attr)
		}
	}
	return strings.Join(parts, " ")
}
