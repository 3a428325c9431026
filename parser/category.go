package parser

import "strings"

// DefaultCategory is returned when no keyword matches.
const DefaultCategory = "other"

type categoryRule struct {
	name     string
	keywords []string
}

// Order matters: the first category with a matching keyword wins.
var categoryRules = []categoryRule{
	{"smartphones", []string{"iphone", "samsung", "oneplus", "realme", "poco", "phone"}},
	{"laptops", []string{"laptop", "macbook", "dell", "hp", "asus", "lenovo"}},
	{"headphones", []string{"headphones", "earbuds", "airpods", "jbl", "bose", "earphone"}},
	{"clothing", []string{"shirt", "pants", "dress", "jacket", "jeans", "top"}},
	{"shoes", []string{"shoes", "sneakers", "boots", "nike", "adidas", "puma"}},
	{"home", []string{"lamp", "pillow", "bedsheet", "curtains", "furniture"}},
	{"books", []string{"book", "novel", "guide", "manual"}},
	{"electronics", []string{"tv", "refrigerator", "ac", "microwave", "oven"}},
}

// ClassifyCategory maps a product name to one of the fixed categories.
func ClassifyCategory(productName string) string {
	lower := strings.ToLower(productName)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.name
			}
		}
	}
	return DefaultCategory
}

// Categories lists the classifier's categories in match order.
func Categories() []string {
	names := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		names = append(names, rule.name)
	}
	return append(names, DefaultCategory)
}
