package parser

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/aluiziolira/pricescout/models"
)

type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

func TestExtractName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "before price keyword", input: "Amazon iPhone 15 price: 75000", want: "iPhone 15", wantOK: true},
		{name: "before rupee sign", input: "Samsung Galaxy ₹50,000", want: "Samsung Galaxy", wantOK: true},
		{name: "fallback to leading text", input: "Wireless mouse", want: "Wireless mouse", wantOK: true},
		{name: "only platform", input: "Amazon", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractName(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractName(%q) = %q, %v, want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractNameTruncatesFallback(t *testing.T) {
	input := "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcdefghij"
	got, ok := ExtractName(input)
	if !ok {
		t.Fatal("expected a name")
	}
	if len([]rune(got)) != 50 {
		t.Errorf("expected 50 runes, got %d (%q)", len([]rune(got)), got)
	}
}

func TestExtractPlatform(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"FLIPKART deal", "Flipkart", true},
		{"seen on ebay yesterday", "eBay", true},
		{"Amazon and Flipkart", "Amazon", true},
		{"Croma store", "Croma", true},
		{"local shop", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractPlatform(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractPlatform(%q) = %q, %v, want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{name: "rupee sign with commas", input: "₹1,299 only", want: 1299, wantOK: true},
		{name: "dollar", input: "$49", want: 49, wantOK: true},
		{name: "rs abbreviation", input: "Rs. 500", want: 500, wantOK: true},
		{name: "cost label", input: "cost: 250", want: 250, wantOK: true},
		{name: "bare number", input: "Headphones 1999 black", want: 1999, wantOK: true},
		{name: "zero", input: "price 0", wantOK: false},
		{name: "too large", input: "price: 20000000", wantOK: false},
		{name: "no digits", input: "call for price", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPrice(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractPrice(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractOriginalPrice(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"MRP: ₹1,999", 1999, true},
		{"original price ₹ 80000", 80000, true},
		{"list price: $120", 120, true},
		{"MRP 1999", 0, false},
		{"₹500", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractOriginalPrice(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractOriginalPrice(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractStockStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rnd   fixedRandom
		want  bool
	}{
		{name: "out of stock", input: "Out of stock", rnd: 0.99, want: false},
		{name: "unavailable beats available", input: "currently unavailable", rnd: 0.99, want: false},
		{name: "in stock", input: "In stock", rnd: 0, want: true},
		{name: "ready to ship", input: "ready to ship today", rnd: 0, want: true},
		{name: "unknown draws high", input: "nice phone", rnd: 0.5, want: true},
		{name: "unknown draws low", input: "nice phone", rnd: 0.1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractStockStatus(tt.input, tt.rnd); got != tt.want {
				t.Errorf("ExtractStockStatus(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractRating(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"rating: 4.2/5", 4.2, true},
		{"4 stars", 4, true},
		{"3.5 out of 5", 3.5, true},
		{"rating 7/5", 0, false},
		{"★★★★", 4, true},
		{"★★★★★★★", 5, true},
		{"great phone", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractRating(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractRating(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractReviews(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"1200 reviews", 1200, true},
		{"88 customer reviews", 88, true},
		{"350 people rated this", 350, true},
		{"reviews: 42", 42, true},
		{"no data", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractReviews(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractReviews(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractURL(t *testing.T) {
	got, ok := ExtractURL("see https://x.com/p?id=1 now")
	if !ok || got != "https://x.com/p?id=1" {
		t.Errorf("ExtractURL = %q, %v", got, ok)
	}
	if _, ok := ExtractURL("no link here"); ok {
		t.Error("expected no URL")
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Apple iPhone 15", "smartphones"},
		{"Dell Inspiron", "laptops"},
		{"JBL Tune 510", "headphones"},
		{"Levis jeans", "clothing"},
		{"Running shoes", "shoes"},
		{"Table lamp", "home"},
		{"Sci-fi novel", "books"},
		{"LG microwave", "electronics"},
		{"Samsung TV", "smartphones"},
		{"Garden hose", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ClassifyCategory(tt.input); got != tt.want {
				t.Errorf("ClassifyCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategoriesEndWithDefault(t *testing.T) {
	cats := Categories()
	if len(cats) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(cats))
	}
	if cats[len(cats)-1] != DefaultCategory {
		t.Errorf("last category = %q, want %q", cats[len(cats)-1], DefaultCategory)
	}
}

func newTestAssembler() *Assembler {
	return &Assembler{
		Random: fixedRandom(0.5),
		Now:    func() time.Time { return time.UnixMilli(1_700_000_000_000) },
		NewID:  func() string { return "product-test" },
	}
}

func TestAssemble(t *testing.T) {
	a := newTestAssembler()

	got, err := a.Assemble("Amazon iPhone 15 price: 75000 rating 4.5/5 200 reviews in stock https://a.co/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &models.PlatformProduct{
		ID:          "product-test",
		ProductName: "iPhone 15",
		Platform:    "Amazon",
		Price:       75000,
		InStock:     true,
		Rating:      4.5,
		Reviews:     200,
		URL:         "https://a.co/x",
		Category:    "smartphones",
		Timestamp:   1_700_000_000_000,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Assemble() = %+v, want %+v", got, want)
	}
}

func TestAssembleDiscountAndDefaults(t *testing.T) {
	a := newTestAssembler()

	got, err := a.Assemble("Flipkart Nike Shoes ₹2,999 MRP: ₹4,999 out of stock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ProductName != "Nike Shoes" || got.Platform != "Flipkart" {
		t.Errorf("unexpected identity: %q on %q", got.ProductName, got.Platform)
	}
	if got.Price != 2999 {
		t.Errorf("Price = %v, want 2999", got.Price)
	}
	if got.OriginalPrice == nil || *got.OriginalPrice != 4999 {
		t.Errorf("OriginalPrice = %v, want 4999", got.OriginalPrice)
	}
	if got.Discount == nil || *got.Discount != 40 {
		t.Errorf("Discount = %v, want 40", got.Discount)
	}
	if got.InStock {
		t.Error("expected out of stock")
	}
	if got.Rating != 4.0 || got.Reviews != 0 || got.URL != "" {
		t.Errorf("expected defaults, got rating=%v reviews=%d url=%q", got.Rating, got.Reviews, got.URL)
	}
	if got.Category != "shoes" {
		t.Errorf("Category = %q, want shoes", got.Category)
	}
}

func TestAssembleIgnoresOriginalBelowPrice(t *testing.T) {
	got, err := newTestAssembler().Assemble("Phone X ₹5000 mrp rs 4000 rating 4.2/5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Price != 5000 {
		t.Fatalf("Price = %v, want 5000", got.Price)
	}
	if got.OriginalPrice != nil || got.Discount != nil {
		t.Errorf("expected no original price or discount, got %v / %v", got.OriginalPrice, got.Discount)
	}
	if err := ValidateProduct(got); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestAssembleUnknownPlatform(t *testing.T) {
	got, err := newTestAssembler().Assemble("Table lamp ₹899")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Platform != "Unknown" {
		t.Errorf("Platform = %q, want Unknown", got.Platform)
	}
	if got.Discount != nil {
		t.Errorf("expected no discount, got %v", *got.Discount)
	}
}

func TestAssembleFailures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty", input: "", want: ErrNoName},
		{name: "platform only", input: "amazon", want: ErrNoName},
		{name: "no price", input: "Some gadget without cost", want: ErrNoPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAssembler().Assemble(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Assemble(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestValidateProduct(t *testing.T) {
	valid := func() *models.PlatformProduct {
		return &models.PlatformProduct{ProductName: "iPhone 15", Price: 75000, Rating: 4.5, Reviews: 10}
	}

	tests := []struct {
		name   string
		mutate func(p *models.PlatformProduct)
		want   []string
	}{
		{name: "valid", mutate: func(p *models.PlatformProduct) {}},
		{name: "price at upper bound", mutate: func(p *models.PlatformProduct) { p.Price = MaxPrice }},
		{name: "short name", mutate: func(p *models.PlatformProduct) { p.ProductName = "TV" }, want: []string{ReasonName}},
		{name: "zero price", mutate: func(p *models.PlatformProduct) { p.Price = 0 }, want: []string{ReasonPrice}},
		{name: "price above bound", mutate: func(p *models.PlatformProduct) { p.Price = MaxPrice + 1 }, want: []string{ReasonPrice}},
		{name: "rating zero", mutate: func(p *models.PlatformProduct) { p.Rating = 0 }, want: []string{ReasonRating}},
		{name: "negative reviews", mutate: func(p *models.PlatformProduct) { p.Reviews = -1 }, want: []string{ReasonReviews}},
		{name: "original equals price", mutate: func(p *models.PlatformProduct) { p.OriginalPrice = models.Float(75000) }},
		{name: "original below price", mutate: func(p *models.PlatformProduct) { p.OriginalPrice = models.Float(70000) }, want: []string{ReasonOriginal}},
		{
			name: "several failures",
			mutate: func(p *models.PlatformProduct) {
				p.ProductName = ""
				p.Rating = 6
			},
			want: []string{ReasonName, ReasonRating},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)

			err := ValidateProduct(p)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !reflect.DeepEqual(verr.Reasons, tt.want) {
				t.Errorf("Reasons = %v, want %v", verr.Reasons, tt.want)
			}
		})
	}
}

func TestValidateProductNil(t *testing.T) {
	if err := ValidateProduct(nil); err == nil {
		t.Fatal("expected error for nil product")
	}
}
