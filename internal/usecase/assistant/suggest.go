package assistant

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
)

// maxSuggestions bounds follow-up suggestions.
const maxSuggestions = 3

// minWordLength skips words too short to match meaningfully.
const minWordLength = 3

// Suggester proposes catalog phrases close to a query that found nothing.
type Suggester struct {
	phrases []string
}

// NewSuggester builds the phrase list from the keyword table and category names.
func NewSuggester(keywords intent.Keywords) *Suggester {
	seen := make(map[string]bool)
	var phrases []string
	add := func(p string) {
		p = strings.ToLower(p)
		if !seen[p] {
			seen[p] = true
			phrases = append(phrases, p)
		}
	}
	for _, k := range keywords {
		add(k.Phrase)
	}
	for _, c := range product.Categories() {
		add(string(c))
	}
	return &Suggester{phrases: phrases}
}

// Suggest ranks phrases against each query word. With no close match it
// falls back to the first categories.
func (s *Suggester) Suggest(query string) []string {
	var ranks fuzzy.Ranks
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) < minWordLength {
			continue
		}
		ranks = append(ranks, fuzzy.RankFindNormalizedFold(w, s.phrases)...)
	}
	sort.Stable(ranks)

	seen := make(map[string]bool)
	var out []string
	for _, r := range ranks {
		if seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		out = append(out, r.Target)
		if len(out) == maxSuggestions {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, c := range product.Categories()[:maxSuggestions] {
		out = append(out, strings.ToLower(string(c)))
	}
	return out
}
