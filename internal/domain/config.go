package domain

// RetrievalConfig holds internal ranking settings, loaded once at start.
type RetrievalConfig struct {
	Model               string
	Dimensions          int
	SemanticWeight      float64
	LexicalWeight       float64
	CandidateMultiplier int
	DefaultLimit        int
	MaxLimit            int
}

// DefaultRetrievalConfig returns the defaults tuned for Nova multimodal embeddings.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Model:               "amazon.nova-2-multimodal-embeddings-v1:0",
		Dimensions:          1024,
		SemanticWeight:      0.7,
		LexicalWeight:       0.3,
		CandidateMultiplier: 4,
		DefaultLimit:        5,
		MaxLimit:            50,
	}
}
