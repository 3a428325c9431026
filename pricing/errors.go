package pricing

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned for a blank search query.
var ErrEmptyQuery = errors.New("please enter a product name")

// NoProductsError reports that no source produced a usable comparison.
type NoProductsError struct {
	Query string
}

func (e *NoProductsError) Error() string {
	return fmt.Sprintf("no products found for %q. Try another search.", e.Query)
}
