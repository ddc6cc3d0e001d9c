package mode

// Mode is the retrieval strategy chosen for a query.
type Mode string

// Strategy constants.
const (
	// Category filters on an exact catalog category.
	Category Mode = "category"
	// Shoes covers every footwear category at once.
	Shoes Mode = "shoes"
	// Fuzzy matches the raw text against name, description and brand.
	Fuzzy Mode = "fuzzy"
	// Hybrid blends vector similarity with full-text rank.
	Hybrid Mode = "hybrid"
	// Visual ranks by image embedding similarity alone.
	Visual Mode = "visual"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Category, Shoes, Fuzzy, Hybrid, Visual:
		return true
	}
	return false
}

// Structured reports whether the mode runs a keyword-planned statement.
func (m Mode) Structured() bool {
	return m == Category || m == Shoes || m == Fuzzy
}
