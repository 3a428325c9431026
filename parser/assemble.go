package parser

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/pricescout/models"
)

const (
	defaultRating   = 4.0
	defaultPlatform = "Unknown"
)

var (
	// ErrNoName is returned when no product name can be extracted.
	ErrNoName = errors.New("parser: no product name")
	// ErrNoPrice is returned when no price can be extracted.
	ErrNoPrice = errors.New("parser: no price")
)

// Assembler builds PlatformProduct records from raw text. The zero value is
// ready to use.
type Assembler struct {
	Random Random
	Now    func() time.Time
	NewID  func() string
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

func (a *Assembler) random() Random {
	if a.Random != nil {
		return a.Random
	}
	return globalRandom{}
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Assembler) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return "product-" + uuid.NewString()
}

// Assemble extracts every field from text. Missing optional fields fall back
// to defaults; a missing name or price yields ErrNoName or ErrNoPrice.
func (a *Assembler) Assemble(text string) (*models.PlatformProduct, error) {
	name, ok := ExtractName(text)
	if !ok {
		return nil, ErrNoName
	}

	price, ok := ExtractPrice(text)
	if !ok {
		return nil, ErrNoPrice
	}

	product := &models.PlatformProduct{
		ID:          a.newID(),
		ProductName: name,
		Platform:    defaultPlatform,
		Price:       price,
		InStock:     ExtractStockStatus(text, a.random()),
		Rating:      defaultRating,
		Category:    ClassifyCategory(name),
		Timestamp:   a.now().UnixMilli(),
	}

	if platform, ok := ExtractPlatform(text); ok {
		product.Platform = platform
	}
	// A list price below the selling price is a misread and is ignored.
	if original, ok := ExtractOriginalPrice(text); ok && original >= price {
		product.OriginalPrice = models.Float(original)
		if original > price {
			product.Discount = models.Float(math.Round((original - price) / original * 100))
		}
	}
	if rating, ok := ExtractRating(text); ok {
		product.Rating = rating
	}
	if reviews, ok := ExtractReviews(text); ok {
		product.Reviews = reviews
	}
	if url, ok := ExtractURL(text); ok {
		product.URL = url
	}

	return product, nil
}
