package constants

import (
	"strings"
)

// Category is the display bucket for a receipt. The backend stores any string,
// so these values are offered choices, not a closed set.
type Category string

const (
	Business   Category = "business"
	Personal   Category = "personal"
	Medical    Category = "medical"
	Electrical Category = "electrical"
	Other      Category = "other"
)

// FilterAll is the category filter value that keeps every receipt.
const FilterAll = "all"

var allCategories = []Category{
	Business,
	Personal,
	Medical,
	Electrical,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free text onto one of the offered categories. The second
// return value is false when the input had to fall back to Other.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"work":        Business,
		"office":      Business,
		"household":   Personal,
		"groceries":   Personal,
		"pharmacy":    Medical,
		"health":      Medical,
		"doctor":      Medical,
		"electronics": Electrical,
		"appliance":   Electrical,
		"appliances":  Electrical,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
