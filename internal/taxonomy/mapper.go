// Package taxonomy maps free-text business categories to outreach templates.
package taxonomy

import (
	"strings"
	"unicode"
)

// Key identifies one business category of the template library.
type Key string

const (
	Education            Key = "education"
	Construction         Key = "construction"
	Technology           Key = "technology"
	Manufacturing        Key = "manufacturing"
	Residential          Key = "residential"
	Office               Key = "office"
	ProfessionalServices Key = "professional_services"
	FoodBeverage         Key = "food_beverage"
	Retail               Key = "retail"
	Default              Key = "default"
)

// Rule pairs a keyword set with the key it selects.
type Rule struct {
	Key      Key
	Keywords []string
}

// Rules is evaluated top to bottom; the first rule with a matching keyword
// wins. Keywords match whole words (or phrases), with a trailing "s" allowed.
var Rules = []Rule{
	{Education, []string{"education", "educational", "school", "college", "university", "campus", "academy", "preschool", "daycare", "k 12"}},
	{Construction, []string{"construction", "building", "contractor", "builder", "plumbing", "hvac", "roofing", "remodeling", "excavation"}},
	{Technology, []string{"technology", "tech", "software", "it", "startup", "saas", "computer", "data center", "digital"}},
	{Manufacturing, []string{"manufacturing", "manufacturer", "industrial", "factory", "plant", "fabrication", "warehouse", "production"}},
	{Residential, []string{"residential", "home", "house", "apartment", "family", "homeowner", "condo"}},
	{ProfessionalServices, []string{"professional services", "consulting", "consultant", "advisory", "legal", "law firm", "accounting", "accountant", "financial", "insurance", "marketing", "agency", "engineering", "architecture"}},
	{Office, []string{"office", "coworking", "workspace", "corporate", "business", "headquarters", "professional", "real estate", "property management"}},
	{FoodBeverage, []string{"restaurant", "cafe", "coffee", "food", "beverage", "bakery", "bar", "brewery", "catering", "roaster", "diner"}},
	{Retail, []string{"retail", "store", "shop", "boutique", "mall", "outlet", "showroom", "ecommerce"}},
}

// Map returns the taxonomy key for a free-text category. Empty or
// unrecognized text maps to Default.
func Map(category string) Key {
	text := normalize(category)
	if strings.TrimSpace(text) == "" {
		return Default
	}
	for _, r := range Rules {
		for _, kw := range r.Keywords {
			if containsWord(text, kw) {
				return r.Key
			}
		}
	}
	return Default
}

// normalize lowercases s, replaces punctuation with spaces and pads the
// result so that whole-word checks can use plain substring search.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func containsWord(text, kw string) bool {
	return strings.Contains(text, " "+kw+" ") || strings.Contains(text, " "+kw+"s ")
}
