package models

// PriceData is a single platform price as shown to the user.
type PriceData struct {
	Platform      string   `json:"platform"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Discount      *float64 `json:"discount,omitempty"`
	InStock       bool     `json:"inStock"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	URL           string   `json:"url"`
}

// Ceiling is the original price when set and not below the price, otherwise
// the price. A zero original price therefore counts as unset.
func (p PriceData) Ceiling() float64 {
	if p.OriginalPrice != nil && *p.OriginalPrice >= p.Price {
		return *p.OriginalPrice
	}
	return p.Price
}

// ProductPricing is the resolved comparison for one search query.
type ProductPricing struct {
	ProductName  string      `json:"productName"`
	Image        string      `json:"image,omitempty"`
	Prices       []PriceData `json:"prices"`
	LowestPrice  float64     `json:"lowestPrice"`
	HighestPrice float64     `json:"highestPrice"`
}

// Valid reports whether the pricing is structurally usable.
func (p *ProductPricing) Valid() bool {
	return p != nil &&
		len(p.Prices) > 0 &&
		p.LowestPrice > 0 &&
		p.HighestPrice >= p.LowestPrice
}

// CacheEntry is the persisted form of a cached search result.
type CacheEntry struct {
	Data      ProductPricing `json:"data"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds
}

// Filters narrows a resolved price list. Nil fields impose no constraint.
type Filters struct {
	PriceMin *float64 `json:"priceMin,omitempty" form:"priceMin"`
	PriceMax *float64 `json:"priceMax,omitempty" form:"priceMax"`
	Rating   *float64 `json:"rating,omitempty" form:"rating"`
	InStock  *bool    `json:"inStock,omitempty" form:"inStock"`
	Color    string   `json:"color,omitempty" form:"color"`
	Size     string   `json:"size,omitempty" form:"size"`
	Brand    string   `json:"brand,omitempty" form:"brand"`
}

// SearchEvent is one entry of the analytics log.
type SearchEvent struct {
	Query       string  `json:"query"`
	Timestamp   int64   `json:"timestamp"`
	Duration    int64   `json:"duration"` // milliseconds
	ResultCount int     `json:"resultCount"`
	Filters     Filters `json:"filters"`
	Platform    string  `json:"platform,omitempty"`
	Success     bool    `json:"success"`
	Source      string  `json:"source,omitempty"`
}

// DatabaseStats summarises the product store.
type DatabaseStats struct {
	TotalProducts int      `json:"totalProducts"`
	TotalEntries  int      `json:"totalEntries"`
	Platforms     []string `json:"platforms"`
	Categories    []string `json:"categories"`
}
