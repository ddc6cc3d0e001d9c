package intent

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

var priceRegex = regexp.MustCompile(`(?:under|below|less than|<)\s*\$?(\d+(?:\.\d+)?)`)

var shoeWords = []string{"shoes", "sneakers"}

// Intent is the structured reading of a free-text shopping query.
type Intent struct {
	text         string
	normalized   string
	priceCeiling *decimal.Decimal
	category     product.Category
	likePattern  string
}

// Parse reads a price ceiling and a category out of free text.
// Only the first price phrase counts. Pure, no I/O.
func Parse(text string, table Keywords) Intent {
	trimmed := strings.TrimSpace(text)
	normalized := strings.ToLower(trimmed)

	in := Intent{
		text:        trimmed,
		normalized:  normalized,
		likePattern: "%" + trimmed + "%",
	}

	if m := priceRegex.FindStringSubmatch(normalized); m != nil {
		if d, err := decimal.NewFromString(m[1]); err == nil {
			in.priceCeiling = &d
		}
	}
	if c, ok := table.match(normalized); ok {
		in.category = c
	}
	return in
}

// Text returns the trimmed query as typed.
func (i *Intent) Text() string { return i.text }

// Normalized returns the lower-cased query.
func (i *Intent) Normalized() string { return i.normalized }

// PriceCeiling returns the inclusive maximum price, if one was stated.
func (i *Intent) PriceCeiling() (decimal.Decimal, bool) {
	if i.priceCeiling == nil {
		return decimal.Decimal{}, false
	}
	return *i.priceCeiling, true
}

// Category returns the matched category, if any.
func (i *Intent) Category() (product.Category, bool) {
	return i.category, i.category != ""
}

// LikePattern returns the wildcard pattern for substring matching.
func (i *Intent) LikePattern() string { return i.likePattern }

// MentionsShoes reports whether the query asks for footwear in general.
// Substring match, so "trail sneakers" and "shoes" both qualify.
func (i *Intent) MentionsShoes() bool {
	for _, w := range shoeWords {
		if strings.Contains(i.normalized, w) {
			return true
		}
	}
	return false
}
