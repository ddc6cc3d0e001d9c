package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/mode"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/request"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
)

// Degradation stages.
const (
	StageEmbed = "embed"
	StageQuery = "query"
)

const lexicalDocument = "to_tsvector('english', name || ' ' || coalesce(description, '') || ' ' || coalesce(brand, ''))"

// Ranker blends vector similarity with full-text rank.
type Ranker struct {
	products ScoredFinder
	embed    Embedder
	fallback fuzzySearcher
	cfg      domain.RetrievalConfig
}

// NewRanker creates a hybrid ranker. embed may also implement
// domain.ImageEmbedder to enable visual search.
func NewRanker(products ScoredFinder, embed Embedder, fallback fuzzySearcher, cfg domain.RetrievalConfig) *Ranker {
	if cfg.CandidateMultiplier < 1 {
		cfg.CandidateMultiplier = 1
	}
	return &Ranker{products: products, embed: embed, fallback: fallback, cfg: cfg}
}

// Search ranks products by weighted semantic and lexical score.
// Embedding or query failures are not returned: the ranker degrades to
// fuzzy matching and reports it in Outcome.Degradation. Only a failed
// fallback surfaces as an error.
func (r *Ranker) Search(ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder) (Outcome, error) {
	limit, err := request.ResolveLimit(limit, r.cfg.DefaultLimit, r.cfg.MaxLimit)
	if err != nil {
		return Outcome{}, err
	}
	if in.Text() == "" {
		return Outcome{}, fmt.Errorf("%w: empty query", domain.ErrInvalidRequest)
	}

	start := time.Now()
	emb, err := r.embed.Embed(ctx, in.Text())
	if err == nil {
		err = r.checkDimensions(emb.Embedding)
	}
	if err != nil {
		return r.degrade(ctx, in, limit, rec, StageEmbed, err)
	}
	rec.Record(activity.Embedding, "Query embedded",
		activity.WithDetail(fmt.Sprintf("%d dimensions", len(emb.Embedding))),
		activity.WithDuration(time.Since(start)),
	)

	q := hybridStatement(&in, emb.Embedding, limit*r.cfg.CandidateMultiplier)
	queryStart := time.Now()
	candidates, err := r.products.FindScored(ctx, q.SQL, q.Args...)
	metrics.SearchRequestsTotal.WithLabelValues(string(mode.Hybrid), PathRanked, metrics.Status(err)).Inc()
	if err != nil {
		return r.degrade(ctx, in, limit, rec, StageQuery, err)
	}

	ranked := r.rank(candidates, limit)
	rec.Record(activity.Search, "Hybrid ranking",
		activity.WithSQL(q.Display),
		activity.WithDuration(time.Since(queryStart)),
		activity.WithDetail(fmt.Sprintf("Ranked %d of %d candidates", len(ranked), len(candidates))),
	)
	return Outcome{Mode: mode.Hybrid, Products: ranked, Display: q.Display}, nil
}

// SearchImage ranks products by similarity to an image. No fallback:
// there is no text to match.
func (r *Ranker) SearchImage(
	ctx context.Context, image []byte, format string, limit int, rec *activity.Recorder,
) (Outcome, error) {
	limit, err := request.ResolveLimit(limit, r.cfg.DefaultLimit, r.cfg.MaxLimit)
	if err != nil {
		return Outcome{}, err
	}
	if len(image) == 0 {
		return Outcome{}, fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}
	ie, ok := r.embed.(domain.ImageEmbedder)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: image embeddings not supported", domain.ErrEmbeddingProviderError)
	}

	start := time.Now()
	emb, err := ie.EmbedImage(ctx, image, format)
	if err == nil {
		err = r.checkDimensions(emb.Embedding)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("embed image: %w", err)
	}
	rec.Record(activity.Embedding, "Image embedded",
		activity.WithDetail(fmt.Sprintf("%s, %d bytes", format, len(image))),
		activity.WithDuration(time.Since(start)),
	)

	q := visualStatement(emb.Embedding, limit)
	queryStart := time.Now()
	found, err := r.products.FindScored(ctx, q.SQL, q.Args...)
	metrics.SearchRequestsTotal.WithLabelValues(string(mode.Visual), PathRanked, metrics.Status(err)).Inc()
	if err != nil {
		return Outcome{}, fmt.Errorf("visual search: %w", err)
	}
	for i := range found {
		sem := score(found[i].Semantic)
		found[i].Combined = &sem
	}
	rec.Record(activity.Search, "Visual similarity search",
		activity.WithSQL(q.Display),
		activity.WithDuration(time.Since(queryStart)),
		activity.WithDetail(fmt.Sprintf("Found %d products", len(found))),
	)
	return Outcome{Mode: mode.Visual, Products: found, Display: q.Display}, nil
}

func (r *Ranker) checkDimensions(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrEmbeddingProviderError)
	}
	if r.cfg.Dimensions > 0 && len(vec) != r.cfg.Dimensions {
		return fmt.Errorf("%w: got %d dimensions, want %d",
			domain.ErrEmbeddingProviderError, len(vec), r.cfg.Dimensions)
	}
	return nil
}

// rank computes combined scores, sorts descending and truncates.
// Ties keep candidate order.
func (r *Ranker) rank(candidates []product.Scored, limit int) []product.Scored {
	for i := range candidates {
		c := r.cfg.SemanticWeight*score(candidates[i].Semantic) + r.cfg.LexicalWeight*score(candidates[i].Lexical)
		candidates[i].Combined = &c
	}
	slices.SortStableFunc(candidates, func(a, b product.Scored) int {
		return cmp.Compare(*b.Combined, *a.Combined)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (r *Ranker) degrade(
	ctx context.Context, in intent.Intent, limit int, rec *activity.Recorder, stage string, cause error,
) (Outcome, error) {
	metrics.RankingFallbackTotal.WithLabelValues(stage).Inc()
	deg := &domain.RankingDegradation{Stage: stage, Err: cause}
	logger.FromContext(ctx).Warn("hybrid ranking degraded, using text search",
		zap.String("stage", stage),
		zap.Error(cause),
	)
	rec.Record(activity.Error, "Semantic search unavailable, falling back to text search",
		activity.WithDetail(deg.Error()),
	)

	out, err := r.fallback.Fuzzy(ctx, in, limit, rec)
	if err != nil {
		return Outcome{}, fmt.Errorf("fuzzy fallback after %s failure: %w", stage, err)
	}
	out.Degradation = deg
	return out, nil
}

func score(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// statement is a ranking query with bound args and its display form.
type statement struct {
	SQL     string
	Args    []any
	Display string
}

// hybridStatement scores the union of two candidate windows: the rows
// nearest by vector and the rows ranked highest by full-text match. Each
// window holds at most candidates rows, so lexical hits far from the query
// vector still reach the ranker.
func hybridStatement(in *intent.Intent, vec []float32, candidates int) statement {
	literal := pgvector.NewVector(vec).String()
	text := in.Text()
	query := "plainto_tsquery('english', ?)"

	filter := ""
	ceiling, priced := in.PriceCeiling()
	if priced {
		filter = " AND price <= ?"
	}

	var b strings.Builder
	b.WriteString(" 1 - (p.embedding <=> ?::vector) AS semantic_score,")
	b.WriteString(" COALESCE(l.lexical_score, 0) AS lexical_score")
	b.WriteString(" FROM products p LEFT JOIN (")
	b.WriteString("SELECT product_id, ts_rank(" + lexicalDocument + ", " + query + ") AS lexical_score")
	b.WriteString(" FROM products WHERE " + lexicalDocument + " @@ " + query)
	b.WriteString(") l ON l.product_id = p.product_id")
	b.WriteString(" WHERE p.embedding IS NOT NULL AND (p.product_id IN (")
	b.WriteString("SELECT product_id FROM products WHERE embedding IS NOT NULL" + filter)
	b.WriteString(" ORDER BY embedding <=> ?::vector LIMIT ?")
	b.WriteString(") OR p.product_id IN (")
	b.WriteString("SELECT product_id FROM products WHERE " + lexicalDocument + " @@ " + query + filter)
	b.WriteString(" ORDER BY ts_rank(" + lexicalDocument + ", " + query + ") DESC LIMIT ?")
	b.WriteString("))")

	vecShown := vectorDisplay(vec)
	args := []any{literal, text, text}
	shown := []any{vecShown, text, text}
	if priced {
		args = append(args, ceiling)
		shown = append(shown, ceiling)
	}
	args = append(args, literal, candidates, text)
	shown = append(shown, vecShown, candidates, text)
	if priced {
		args = append(args, ceiling)
		shown = append(shown, ceiling)
	}
	args = append(args, text, candidates)
	shown = append(shown, text, candidates)

	tail := b.String()
	return statement{
		SQL:     "SELECT " + qualified("p") + "," + tail,
		Args:    args,
		Display: render("SELECT p.*,"+tail, shown),
	}
}

func visualStatement(vec []float32, limit int) statement {
	literal := pgvector.NewVector(vec).String()
	tail := " 1 - (p.embedding <=> ?::vector) AS semantic_score" +
		" FROM products p WHERE p.embedding IS NOT NULL" +
		" ORDER BY p.embedding <=> ?::vector LIMIT ?"
	return statement{
		SQL:     "SELECT " + qualified("p") + "," + tail,
		Args:    []any{literal, literal, limit},
		Display: render("SELECT p.*,"+tail, []any{vectorDisplay(vec), vectorDisplay(vec), limit}),
	}
}

func qualified(alias string) string {
	cols := strings.Split(product.Columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func vectorDisplay(vec []float32) displayValue {
	return displayValue(fmt.Sprintf("'[...%d dims]'", len(vec)))
}
