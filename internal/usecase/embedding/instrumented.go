package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
)

// InstrumentedEmbedder wraps an Embedder with logging and error classification.
// Transport metrics (requests, duration, tokens) are recorded in the
// provider clients. This layer guarantees every failure unwraps to
// domain.ErrEmbeddingProviderError.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	return p.finish("text", start, result, err)
}

// EmbedImage delegates image embedding when the provider supports it.
func (p *InstrumentedEmbedder) EmbedImage(
	ctx context.Context, image []byte, format string,
) (domain.EmbeddingResult, error) {
	ie, ok := p.inner.(domain.ImageEmbedder)
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %s cannot embed images",
			domain.ErrEmbeddingProviderError, p.provider)
	}
	start := time.Now()
	result, err := ie.EmbedImage(ctx, image, format)
	return p.finish("image", start, result, err)
}

// HealthCheck delegates to the inner embedder when it supports checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *InstrumentedEmbedder) finish(
	purpose string, start time.Time, result domain.EmbeddingResult, err error,
) (domain.EmbeddingResult, error) {
	duration := time.Since(start)
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("purpose", purpose),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			return domain.EmbeddingResult{}, fmt.Errorf("embed %s: %w", purpose, err)
		}
		return domain.EmbeddingResult{}, fmt.Errorf("%w: embed %s: %w", domain.ErrEmbeddingProviderError, purpose, err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("purpose", purpose),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
