package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/pricescout/models"
)

// Validation failure reasons.
const (
	ReasonName     = "Invalid product name"
	ReasonPrice    = "Price out of reasonable range"
	ReasonRating   = "Rating must be between 1-5"
	ReasonReviews  = "Reviews cannot be negative"
	ReasonOriginal = "Original price cannot be below price"
)

// ValidationError lists every rule a product failed.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid product: %s", strings.Join(e.Reasons, "; "))
}

// ValidateProduct checks a product against the import rules. It returns nil
// or a *ValidationError carrying all failed reasons.
func ValidateProduct(p *models.PlatformProduct) error {
	if p == nil {
		return &ValidationError{Reasons: []string{ReasonName}}
	}

	var reasons []string
	if utf8.RuneCountInString(p.ProductName) < 3 {
		reasons = append(reasons, ReasonName)
	}
	if p.Price <= 0 || p.Price > MaxPrice {
		reasons = append(reasons, ReasonPrice)
	}
	if p.Rating < 1 || p.Rating > 5 {
		reasons = append(reasons, ReasonRating)
	}
	if p.Reviews < 0 {
		reasons = append(reasons, ReasonReviews)
	}
	if p.OriginalPrice != nil && *p.OriginalPrice < p.Price {
		reasons = append(reasons, ReasonOriginal)
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}
