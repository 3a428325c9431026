package pricing

import (
	"math"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strings"

	"github.com/aluiziolira/pricescout/models"
)

type platform struct {
	name       string
	searchURL  string
	multiplier float64
}

var platforms = []platform{
	{"Amazon", "https://www.amazon.in/s?k=", 0.98},
	{"Flipkart", "https://www.flipkart.com/search?q=", 0.95},
	{"eBay", "https://www.ebay.in/sch/i.html?_nkw=", 1.02},
	{"Meesho", "https://www.meesho.com/search?q=", 0.90},
	{"Myntra", "https://www.myntra.com/search?q=", 0.97},
}

var platformsByCategory = map[string][]string{
	"electronics": {"Amazon", "Flipkart", "eBay"},
	"smartphones": {"Amazon", "Flipkart", "eBay"},
	"laptops":     {"Amazon", "Flipkart", "eBay"},
	"headphones":  {"Amazon", "Flipkart", "eBay", "Myntra"},
	"monitors":    {"Amazon", "Flipkart", "eBay"},
	"keyboards":   {"Amazon", "Flipkart", "eBay"},
	"mouse":       {"Amazon", "Flipkart", "eBay"},
	"watches":     {"Amazon", "Flipkart", "eBay", "Myntra"},
	"cameras":     {"Amazon", "Flipkart", "eBay"},
	"tablets":     {"Amazon", "Flipkart", "eBay"},
	"clothing":    {"Amazon", "Myntra", "Meesho", "Flipkart"},
	"shoes":       {"Amazon", "Myntra", "Meesho", "Flipkart"},
	"bags":        {"Amazon", "Myntra", "Meesho", "Flipkart"},
	"books":       {"Amazon", "Flipkart", "eBay"},
	"chargers":    {"Amazon", "Flipkart", "eBay", "Myntra"},
	"cables":      {"Amazon", "Flipkart", "eBay"},
	"speakers":    {"Amazon", "Flipkart", "eBay", "Myntra"},
	"furniture":   {"Amazon", "Flipkart", "Meesho"},
	"home":        {"Amazon", "Flipkart", "Meesho"},
	"other":       {"Amazon", "Flipkart", "eBay"},
}

type basePrice struct {
	product string
	price   float64
}

// Ordered: the first product contained in the query wins, so "book" shadows
// "notebook" and "bookshelf".
var basePrices = []basePrice{
	// electronics and gadgets
	{"iphone 15", 75999},
	{"iphone 14", 59999},
	{"iphone 13", 49999},
	{"samsung galaxy s24", 58999},
	{"samsung galaxy s23", 45999},
	{"oneplus 12", 44999},
	{"realme 12", 22999},
	{"poco x6", 18999},
	{"macbook pro", 139999},
	{"macbook air", 119999},
	{"dell xps 13", 89999},
	{"hp pavilion", 49999},
	{"asus vivobook", 54999},
	{"lenovo thinkpad", 64999},
	{"sony wh-ch720", 7499},
	{"bose quietcomfort", 28999},
	{"airpods pro", 19999},
	{"jbl flip 6", 8999},
	{"samsung monitor 27", 22999},
	{"lg monitor 24", 14999},
	{"mechanical keyboard", 6999},
	{"wireless mouse", 1999},
	{"apple watch series 9", 41999},
	{"fitbit versa", 15999},
	{"canon eos r50", 94999},
	{"sony a6400", 74999},
	{"ipad air", 59999},
	{"samsung galaxy tab", 34999},
	{"tv 55 inch", 49999},
	{"air conditioner", 34999},

	// fashion
	{"men shirt", 999},
	{"women shirt", 1299},
	{"jeans", 1499},
	{"nike shoes", 7999},
	{"adidas shoes", 6999},
	{"puma shoes", 5999},
	{"sports shoes", 4999},
	{"casual shoes", 2999},
	{"formal shoes", 3999},
	{"leather belt", 1499},
	{"winter jacket", 4999},
	{"summer dress", 1999},
	{"track suit", 2999},
	{"sports t-shirt", 999},
	{"cotton socks", 399},

	// books and stationery
	{"book", 399},
	{"novels", 349},
	{"self help book", 499},
	{"technical books", 799},
	{"notebook", 199},
	{"pen set", 299},
	{"pencil box", 499},
	{"sketch pad", 599},
	{"markers set", 399},
	{"calendar", 249},

	// home and kitchen
	{"coffee maker", 3999},
	{"blender", 2999},
	{"microwave", 8999},
	{"water heater", 12999},
	{"washing machine", 24999},
	{"refrigerator", 34999},
	{"cooking oil set", 1299},
	{"non-stick pan", 1999},
	{"utensil set", 1499},
	{"plates set", 999},
	{"bedsheet", 1299},
	{"pillow cover", 499},
	{"curtains", 1999},
	{"table lamp", 1299},
	{"wall clock", 999},

	// furniture
	{"gaming chair", 12999},
	{"office desk", 24999},
	{"wooden chair", 8999},
	{"study table", 15999},
	{"bookshelf", 9999},
	{"shoe rack", 2999},
	{"wardrobe", 19999},
	{"bed frame", 14999},
	{"sofa set", 34999},
	{"dining table", 24999},

	// beauty and personal care
	{"face cream", 599},
	{"shampoo", 399},
	{"conditioner", 399},
	{"body lotion", 499},
	{"face wash", 349},
	{"lipstick", 499},
	{"nail polish", 299},
	{"perfume", 1299},
	{"deodorant", 299},
	{"toothbrush", 149},
	{"toothpaste", 199},

	// sports and fitness
	{"dumbbells", 2999},
	{"yoga mat", 1299},
	{"resistance bands", 799},
	{"skipping rope", 399},
	{"cricket bat", 1999},
	{"badminton racket", 1499},
	{"football", 999},
	{"basketball", 1299},
	{"tennis racket", 3999},
	{"gym bag", 1999},

	// groceries
	{"rice", 150},
	{"flour", 100},
	{"salt", 50},
	{"sugar", 100},
	{"cooking oil", 200},
	{"tea", 299},
	{"coffee", 349},
	{"milk", 100},
	{"eggs", 80},
	{"butter", 399},

	// travel and bags
	{"travel bag", 2999},
	{"backpack", 1999},
	{"laptop bag", 1499},
	{"suitcase", 3999},
	{"shoulder bag", 1299},
	{"crossbody bag", 999},
	{"school bag", 1299},
	{"hand bag", 1999},

	// gaming
	{"gaming headset", 4999},
	{"gaming mouse", 2999},
	{"ps5", 54999},
	{"xbox series x", 49999},
	{"gaming monitor", 24999},

	// cables and chargers
	{"phone charger", 1299},
	{"usb-c cable", 499},
	{"micro usb cable", 399},
	{"lightning cable", 599},
	{"hdmi cable", 399},
	{"power bank", 1999},
	{"wireless charger", 1499},

	// audio
	{"bluetooth speaker", 5999},
	{"portable speaker", 3999},
	{"home speaker", 8999},
	{"studio monitor", 19999},
	{"earbuds", 2999},

	// misc
	{"watch", 4999},
	{"wall art", 999},
	{"photo frame", 599},
	{"plant pot", 499},
	{"mirror", 1299},
	{"canvas", 799},
	{"umbrella", 499},
	{"water bottle", 599},
	{"lunch box", 799},
	{"thermometer", 299},
}

// minBasePrice is the floor for category defaults.
const minBasePrice = 100

var defaultCategoryPrices = map[string]float64{
	"mobilephones": 10000,
	"smartphones":  10000,
	"laptops":      30000,
	"headphones":   2000,
	"monitors":     10000,
	"keyboards":    1000,
	"mouse":        1000,
	"watches":      1000,
	"cameras":      5000,
	"tablets":      14000,
	"clothing":     500,
	"shoes":        1000,
	"bags":         100,
	"books":        100,
	"chargers":     100,
	"cables":       100,
	"speakers":     1000,
	"furniture":    1000,
	"electronics":  15000,
}

type categoryPattern struct {
	name string
	re   *regexp.Regexp
}

// Distinct from the ingestion classifier. The first matching rule wins.
var categoryPatterns = []categoryPattern{
	{"smartphones", regexp.MustCompile(`iphone|samsung galaxy|oneplus|realme|poco`)},
	{"laptops", regexp.MustCompile(`laptop|macbook|dell|hp|asus|lenovo|thinkpad`)},
	{"headphones", regexp.MustCompile(`headphones|earbuds|airpods|jbl|bose|sony wh`)},
	{"monitors", regexp.MustCompile(`monitor|display`)},
	{"keyboards", regexp.MustCompile(`keyboard`)},
	{"mouse", regexp.MustCompile(`mouse`)},
	{"watches", regexp.MustCompile(`watch|smartwatch|apple watch|fitbit`)},
	{"cameras", regexp.MustCompile(`camera|dslr|eos|sony a`)},
	{"tablets", regexp.MustCompile(`tablet|ipad`)},
	{"clothing", regexp.MustCompile(`shirt|pants|dress|top|jacket|jeans`)},
	{"shoes", regexp.MustCompile(`shoe|sneaker|boot|nike|adidas`)},
	{"bags", regexp.MustCompile(`bag|backpack`)},
	{"books", regexp.MustCompile(`book`)},
	{"chargers", regexp.MustCompile(`charger|charging`)},
	{"cables", regexp.MustCompile(`cable|cord|usb`)},
	{"speakers", regexp.MustCompile(`speaker|bluetooth`)},
	{"furniture", regexp.MustCompile(`chair|table|desk`)},
	{"home", regexp.MustCompile(`lamp|pillow|bed`)},
	{"electronics", regexp.MustCompile(`tv|television|projector|ac|refrigerator`)},
}

// DetectCategory maps a search query to a generator category.
func DetectCategory(query string) string {
	q := strings.ToLower(query)
	for _, cp := range categoryPatterns {
		if cp.re.MatchString(q) {
			return cp.name
		}
	}
	return "other"
}

// BasePrice returns the reference price for query: the first known product
// contained in it, else the category default, never below 100.
func BasePrice(query string) float64 {
	q := strings.ToLower(query)
	for _, bp := range basePrices {
		if strings.Contains(q, bp.product) {
			return bp.price
		}
	}
	return math.Max(minBasePrice, defaultCategoryPrices[DetectCategory(query)])
}

// Generator synthesizes plausible platform prices for any query.
type Generator struct {
	Random Random
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// NewGenerator returns a generator drawing from rnd, or from math/rand/v2
// when rnd is nil.
func NewGenerator(rnd Random) *Generator {
	if rnd == nil {
		rnd = globalRandom{}
	}
	return &Generator{Random: rnd}
}

// Generate returns a comparison across the platforms carrying the query's
// category, sorted ascending by price. A blank query yields nil.
func (g *Generator) Generate(query string) *models.ProductPricing {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	rnd := g.Random
	if rnd == nil {
		rnd = globalRandom{}
	}

	category := DetectCategory(query)
	base := BasePrice(query)
	escaped := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")

	var prices []models.PriceData
	for _, p := range platformsFor(category) {
		price := math.Round(base * p.multiplier)
		entry := models.PriceData{
			Platform: p.name,
			Price:    price,
			URL:      p.searchURL + escaped,
		}

		if rnd.Float64() > 0.4 {
			discount := math.Floor(rnd.Float64()*12) + 3
			entry.Discount = models.Float(discount)
			entry.OriginalPrice = models.Float(math.Round(price / (1 - discount/100)))
		}
		entry.InStock = rnd.Float64() > 0.12
		entry.Rating = math.Round((rnd.Float64()*0.8+4.0)*10) / 10
		entry.Reviews = int(math.Floor(rnd.Float64()*8000)) + 150

		prices = append(prices, entry)
	}

	return newPricing(DisplayName(query), prices)
}

func platformsFor(category string) []platform {
	names, ok := platformsByCategory[category]
	if !ok {
		names = platformsByCategory["other"]
	}

	var out []platform
	for _, p := range platforms {
		for _, name := range names {
			if p.name == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
