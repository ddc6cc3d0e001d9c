package intent

import (
	"fmt"
	"strings"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

// Keyword maps a phrase to the category it selects.
type Keyword struct {
	Phrase   string
	Category product.Category
}

// Keywords is an ordered phrase table. The first phrase contained in the
// query wins, so more specific phrases must come before general ones.
type Keywords []Keyword

// DefaultKeywords returns the built-in table.
func DefaultKeywords() Keywords {
	return Keywords{
		{"running shoes", product.RunningShoes},
		{"training shoes", product.TrainingShoes},
		{"gym shoes", product.TrainingShoes},
		{"fitness equipment", product.FitnessEquipment},
		{"fitness gear", product.FitnessEquipment},
		{"apparel", product.Apparel},
		{"clothes", product.Apparel},
		{"clothing", product.Apparel},
		{"accessories", product.Accessories},
		{"recovery products", product.Recovery},
		{"recovery gear", product.Recovery},
		{"foam roller", product.Recovery},
		{"massage gun", product.Recovery},
	}
}

// Validate checks phrases are non-empty lower case and categories are known.
func (k Keywords) Validate() error {
	seen := make(map[string]bool, len(k))
	for i, kw := range k {
		if kw.Phrase == "" {
			return fmt.Errorf("keyword %d: empty phrase", i)
		}
		if kw.Phrase != strings.ToLower(kw.Phrase) {
			return fmt.Errorf("keyword %q: phrase must be lower case", kw.Phrase)
		}
		if !kw.Category.IsValid() {
			return fmt.Errorf("keyword %q: unknown category %q", kw.Phrase, kw.Category)
		}
		if seen[kw.Phrase] {
			return fmt.Errorf("keyword %q: duplicate phrase", kw.Phrase)
		}
		seen[kw.Phrase] = true
	}
	return nil
}

func (k Keywords) match(normalized string) (product.Category, bool) {
	for _, kw := range k {
		if strings.Contains(normalized, kw.Phrase) {
			return kw.Category, true
		}
	}
	return "", false
}
