package search

import (
	"context"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
)

// ProductFinder runs product-shaped statements on either execution path.
type ProductFinder interface {
	Find(ctx context.Context, sql string, args ...any) ([]product.Product, error)
	FindLiteral(ctx context.Context, sql string) ([]product.Product, error)
}

// ScoredFinder runs ranking statements that add score columns.
type ScoredFinder interface {
	FindScored(ctx context.Context, sql string, args ...any) ([]product.Scored, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// fuzzySearcher is the fallback the ranker degrades to.
type fuzzySearcher interface {
	Fuzzy(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (Outcome, error)
}
