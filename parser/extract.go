// Package parser turns free-form product text into structured records.
//
// Every extractor is a pure function of the raw text. A false second return
// value means the field was not found; it is never an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// MaxPrice is the exclusive upper bound accepted by the price extractors.
const MaxPrice = 10_000_000

// Random supplies uniformly distributed values in [0, 1).
type Random interface {
	Float64() float64
}

// InStockProbability is used when the text says nothing about availability.
const InStockProbability = 0.85

var (
	nameStripRe = regexp.MustCompile(`(?i)amazon|flipkart|ebay|meesho|myntra|product|item`)
	nameRe      = regexp.MustCompile(`(?i)^\s*([A-Za-z0-9\s\-.]+?)\s*(?:₹|\$|price|rs|rupees|₨)`)

	platforms = []string{"Amazon", "Flipkart", "eBay", "Meesho", "Myntra", "Croma", "Snapdeal"}

	priceRes = []*regexp.Regexp{
		regexp.MustCompile(`₹\s*(\d+[,\d]*)`),
		regexp.MustCompile(`\$\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?i)rs\.?\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?i)rupees?\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?i)price\s*:?\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?i)cost\s*:?\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?:^|\s)(\d+[,\d]*)(?:\s|$)`),
	}

	originalPriceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)mrp\s*:?\s*(?:₹|\$|rs\.?)\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?i)original\s*(?:price)?\s*:?\s*(?:₹|\$|rs\.?)\s*(\d+[,\d]*)`),
		regexp.MustCompile(`(?i)list price\s*:?\s*(?:₹|\$|rs\.?)\s*(\d+[,\d]*)`),
	}

	outOfStockRe = regexp.MustCompile(`(?i)out of stock|unavailable|not available|coming soon`)
	inStockRe    = regexp.MustCompile(`(?i)in stock|available|in hand|ready to ship`)

	ratingRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)rating\s*:?\s*(\d+\.?\d*)\s*(?:/5|star)`),
		regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(?:out of 5|/5|stars?)`),
	}

	reviewRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(?:customer\s*)?reviews?`),
		regexp.MustCompile(`(?i)(\d+)\s*(?:people\s*)?(?:found|rated)`),
		regexp.MustCompile(`(?i)reviews?\s*:?\s*(\d+)`),
	}

	urlRe = regexp.MustCompile(`https?://\S+`)
)

// ExtractName returns the product name that leads the text.
func ExtractName(text string) (string, bool) {
	cleaned := nameStripRe.ReplaceAllString(text, "")

	if m := nameRe.FindStringSubmatch(cleaned); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name, true
		}
	}

	runes := []rune(cleaned)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	name := strings.TrimSpace(string(runes))
	return name, name != ""
}

// ExtractPlatform returns the first known platform mentioned in the text.
func ExtractPlatform(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, platform := range platforms {
		if strings.Contains(lower, strings.ToLower(platform)) {
			return platform, true
		}
	}
	return "", false
}

// ExtractPrice returns the selling price found in the text.
func ExtractPrice(text string) (float64, bool) {
	return firstAmount(text, priceRes)
}

// ExtractOriginalPrice returns an MRP, original or list price.
func ExtractOriginalPrice(text string) (float64, bool) {
	return firstAmount(text, originalPriceRes)
}

// ExtractStockStatus reports availability. Out-of-stock phrasing wins over
// in-stock phrasing; with neither, rnd decides.
func ExtractStockStatus(text string, rnd Random) bool {
	if outOfStockRe.MatchString(text) {
		return false
	}
	if inStockRe.MatchString(text) {
		return true
	}
	return rnd.Float64() > 1-InStockProbability
}

// ExtractRating returns a rating in [1, 5].
func ExtractRating(text string) (float64, bool) {
	for _, re := range ratingRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		rating, err := strconv.ParseFloat(m[1], 64)
		if err == nil && rating >= 1 && rating <= 5 {
			return rating, true
		}
	}

	if stars := strings.Count(text, "★"); stars > 0 {
		return float64(min(stars, 5)), true
	}
	return 0, false
}

// ExtractReviews returns the review count.
func ExtractReviews(text string) (int, bool) {
	for _, re := range reviewRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		reviews, err := strconv.Atoi(m[1])
		if err == nil && reviews >= 0 {
			return reviews, true
		}
	}
	return 0, false
}

// ExtractURL returns the first http(s) link in the text.
func ExtractURL(text string) (string, bool) {
	url := urlRe.FindString(text)
	return url, url != ""
}

func firstAmount(text string, patterns []*regexp.Regexp) (float64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, ok := parseAmount(m[1])
		if ok && value > 0 && value < MaxPrice {
			return value, true
		}
	}
	return 0, false
}

func parseAmount(raw string) (float64, bool) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
