package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aluiziolira/pricescout/metrics"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/parser"
)

var (
	// ErrInvalidJSON is returned when a JSON import cannot be decoded.
	ErrInvalidJSON = errors.New("invalid JSON format")
	// ErrInvalidCSV is returned when a CSV import cannot be read.
	ErrInvalidCSV = errors.New("invalid CSV format")
)

// minCSVColumns is the column count below which a CSV row is skipped.
// The trailing category column is optional.
const minCSVColumns = 9

// ImportJSON ingests a JSON array of products. Records missing an id,
// timestamp or category get one assigned before validation.
func (in *Ingester) ImportJSON(data []byte) (*models.ImportResult, error) {
	var products []models.PlatformProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	result := &models.ImportResult{Lines: len(products)}
	candidates := make([]candidate, 0, len(products))
	for i, p := range products {
		if p.ID == "" {
			p.ID = newID()
		}
		if p.Timestamp == 0 {
			p.Timestamp = in.now().UnixMilli()
		}
		if p.Category == "" {
			p.Category = parser.ClassifyCategory(p.ProductName)
		}
		candidates = append(candidates, candidate{line: i + 1, product: p})
	}

	if err := in.accept(result, candidates); err != nil {
		return result, err
	}
	slog.Info("json import finished", slog.Int("records", result.Lines), slog.Int("accepted", result.Accepted))
	return result, nil
}

// ImportCSV ingests rows of productName, platform, price, originalPrice,
// discount, inStock, rating, reviews, url and an optional category. A first
// row mentioning productName is treated as a header.
func (in *Ingester) ImportCSV(r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &models.ImportResult{}
	var candidates []candidate
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if strings.Contains(strings.Join(record, ","), "productName") {
				continue
			}
		}

		result.Lines++
		if len(record) < minCSVColumns {
			result.Unparsed = append(result.Unparsed, line)
			in.metrics.addUnparsed()
			in.prom.IncIngest(metrics.OutcomeUnparsed)
			slog.Warn("skipping short csv row", slog.Int("line", line), slog.Int("columns", len(record)))
			continue
		}
		candidates = append(candidates, candidate{line: line, product: in.csvProduct(record)})
	}

	if err := in.accept(result, candidates); err != nil {
		return result, err
	}
	slog.Info("csv import finished", slog.Int("rows", result.Lines), slog.Int("accepted", result.Accepted))
	return result, nil
}

func (in *Ingester) csvProduct(record []string) models.PlatformProduct {
	field := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	p := models.PlatformProduct{
		ID:            newID(),
		ProductName:   field(0),
		Platform:      field(1),
		Price:         parseNumber(field(2)),
		OriginalPrice: parseOptional(field(3)),
		Discount:      parseOptional(field(4)),
		InStock:       strings.EqualFold(field(5), "true"),
		Rating:        parseNumber(field(6)),
		Reviews:       int(parseNumber(field(7))),
		URL:           field(8),
		Category:      field(9),
		Timestamp:     in.now().UnixMilli(),
	}
	if p.Category == "" {
		p.Category = parser.DefaultCategory
	}
	return p
}

// parseNumber returns 0 for anything that is not a number.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseOptional(s string) *float64 {
	if s == "" {
		return nil
	}
	return models.Float(parseNumber(s))
}

type sampleProduct struct {
	name      string
	category  string
	basePrice float64
}

var (
	samplePlatforms = []string{"Amazon", "Flipkart", "eBay", "Meesho", "Myntra"}
	sampleProducts  = []sampleProduct{
		{name: "iPhone 15", category: "smartphones", basePrice: 75999},
		{name: "Samsung Galaxy S24", category: "smartphones", basePrice: 58999},
		{name: "MacBook Pro", category: "laptops", basePrice: 139999},
		{name: "Nike Shoes", category: "shoes", basePrice: 7999},
		{name: "Coffee Maker", category: "home", basePrice: 3999},
	}
)

// SampleData builds one randomized listing per sample product and platform.
func (in *Ingester) SampleData() []models.PlatformProduct {
	ts := in.now().UnixMilli()
	r := in.random

	products := make([]models.PlatformProduct, 0, len(sampleProducts)*len(samplePlatforms))
	for _, sp := range sampleProducts {
		for _, platform := range samplePlatforms {
			discount := math.Floor(r.Float64()*15) + 3
			price := math.Round(sp.basePrice * (0.85 + r.Float64()*0.2))

			p := models.PlatformProduct{
				ID:            fmt.Sprintf("%s-%s-%d", sp.name, platform, ts),
				ProductName:   sp.name,
				Platform:      platform,
				Price:         price,
				OriginalPrice: models.Float(math.Round(price / (1 - discount/100))),
				Category:      sp.category,
				Timestamp:     ts,
			}
			if r.Float64() > 0.3 {
				p.Discount = models.Float(discount)
			}
			p.InStock = r.Float64() > 0.15
			p.Rating = math.Round((r.Float64()*0.8+4.0)*10) / 10
			p.Reviews = int(math.Floor(r.Float64()*8000)) + 150
			p.URL = fmt.Sprintf("https://%s.com/search?q=%s", strings.ToLower(platform), url.QueryEscape(sp.name))

			products = append(products, p)
		}
	}
	return products
}

// LoadSample imports SampleData.
func (in *Ingester) LoadSample() (*models.ImportResult, error) {
	products := in.SampleData()
	result := &models.ImportResult{Lines: len(products)}

	candidates := make([]candidate, len(products))
	for i, p := range products {
		candidates[i] = candidate{line: i + 1, product: p}
	}
	if err := in.accept(result, candidates); err != nil {
		return result, err
	}
	slog.Info("sample data loaded", slog.Int("products", result.Accepted))
	return result, nil
}

func newID() string {
	return "product-" + uuid.NewString()
}
