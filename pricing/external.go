package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aluiziolira/pricescout/models"
)

// Source is an external price provider. A nil result with a nil error means
// the source had nothing for the query.
type Source interface {
	Fetch(ctx context.Context, query string) (*models.ProductPricing, error)
}

// NoopSource never returns results.
type NoopSource struct{}

func (NoopSource) Fetch(context.Context, string) (*models.ProductPricing, error) {
	return nil, nil
}

// HTTPSource queries a JSON price aggregator.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSource posts queries to endpoint. A nil client means
// http.DefaultClient.
func NewHTTPSource(endpoint string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{endpoint: endpoint, client: client}
}

// Fetch posts {"query": query} and normalizes the response.
func (s *HTTPSource) Fetch(ctx context.Context, query string) (*models.ProductPricing, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("external source: http status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return FormatAPIResponse(data)
}

// flexNumber decodes a JSON number or numeric string. Anything else is 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

type apiProduct struct {
	Platform      string      `json:"platform"`
	Price         flexNumber  `json:"price"`
	OriginalPrice *flexNumber `json:"originalPrice"`
	Discount      *flexNumber `json:"discount"`
	InStock       *bool       `json:"inStock"`
	Rating        flexNumber  `json:"rating"`
	Reviews       flexNumber  `json:"reviews"`
	URL           string      `json:"url"`
}

type apiResponse struct {
	ProductName string       `json:"productName"`
	Products    []apiProduct `json:"products"`
}

// FormatAPIResponse normalizes an aggregator payload. Missing platforms
// become "Unknown", non-numeric values become 0 and inStock defaults to true.
// A payload without products yields nil.
func FormatAPIResponse(data []byte) (*models.ProductPricing, error) {
	var raw apiResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode external response: %w", err)
	}
	if len(raw.Products) == 0 {
		return nil, nil
	}

	prices := make([]models.PriceData, 0, len(raw.Products))
	for _, p := range raw.Products {
		entry := models.PriceData{
			Platform: p.Platform,
			Price:    float64(p.Price),
			InStock:  p.InStock == nil || *p.InStock,
			Rating:   float64(p.Rating),
			Reviews:  int(p.Reviews),
			URL:      p.URL,
		}
		if entry.Platform == "" {
			entry.Platform = "Unknown"
		}
		if p.OriginalPrice != nil && *p.OriginalPrice != 0 {
			entry.OriginalPrice = models.Float(float64(*p.OriginalPrice))
		}
		if p.Discount != nil && *p.Discount != 0 {
			entry.Discount = models.Float(float64(*p.Discount))
		}
		prices = append(prices, entry)
	}

	name := raw.ProductName
	if name == "" {
		name = "Product"
	}
	return newPricing(name, prices), nil
}
