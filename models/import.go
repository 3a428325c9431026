package models

// Rejection describes a record dropped by validation.
type Rejection struct {
	Line        int      `json:"line"`
	ProductName string   `json:"productName"`
	Errors      []string `json:"errors"`
}

// ImportResult holds the outcome of a single import batch.
type ImportResult struct {
	Lines    int         `json:"lines"`
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected,omitempty"`
	Unparsed []int       `json:"unparsed,omitempty"` // line numbers with no extractable name or price
}
