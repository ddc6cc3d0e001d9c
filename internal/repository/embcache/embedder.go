// Package embcache memoizes query and image embeddings in Redis.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures the cache decorator.
type Options struct {
	// Model namespaces keys; switching models never serves stale vectors.
	Model string
	// Dimensions, when set, turns entries of any other length into misses.
	Dimensions int
	TTL        time.Duration
	// Lookups counts "hit"/"miss" by the "result" label. Optional.
	Lookups *prometheus.CounterVec
	Logger  *zap.Logger
}

// CachedEmbedder wraps a provider. Cache failures degrade to provider calls.
type CachedEmbedder struct {
	inner domain.Embedder
	store store
	opts  Options
}

// New wraps inner with a cache backed by s.
func New(inner domain.Embedder, s store, opts Options) *CachedEmbedder {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, store: s, opts: opts}
}

// Embed serves query text embeddings. Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return c.through(ctx, c.cacheKey("text", []byte(text)), func() (domain.EmbeddingResult, error) {
		return c.inner.Embed(ctx, text)
	})
}

// EmbedImage keys uploads by content hash and format.
func (c *CachedEmbedder) EmbedImage(ctx context.Context, image []byte, format string) (domain.EmbeddingResult, error) {
	ie, ok := c.inner.(domain.ImageEmbedder)
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: provider cannot embed images", domain.ErrEmbeddingProviderError)
	}
	return c.through(ctx, c.cacheKey("image:"+format, image), func() (domain.EmbeddingResult, error) {
		return ie.EmbedImage(ctx, image, format)
	})
}

// HealthCheck reports the provider only; a cache outage is not fatal.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) through(
	ctx context.Context, key string, fetch func() (domain.EmbeddingResult, error),
) (domain.EmbeddingResult, error) {
	log := c.opts.Logger.With(zap.String("key", key))

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		vec, decErr := c.decode(data)
		if decErr == nil {
			c.count("hit")
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
		log.Warn("discarding cached embedding", zap.Error(decErr))
	case !errors.Is(err, db.ErrKeyNotFound):
		log.Warn("embedding cache read failed", zap.Error(err))
	}
	c.count("miss")

	res, err := fetch()
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	if len(res.Embedding) == 0 {
		return res, nil
	}

	buf, err := pgvector.NewVector(res.Embedding).EncodeBinary(nil)
	if err == nil {
		err = c.store.SetWithTTL(ctx, key, buf, c.opts.TTL)
	}
	if err != nil {
		log.Warn("embedding cache write failed", zap.Error(err))
	}
	return res, nil
}

// decode reads the pgvector binary layout: uint16 dim, uint16 zero, then
// dim big-endian float32s.
func (c *CachedEmbedder) decode(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("entry too short: %d bytes", len(data))
	}
	dim := int(binary.BigEndian.Uint16(data))
	if len(data) != 4+4*dim {
		return nil, fmt.Errorf("entry length %d does not match %d dimensions", len(data), dim)
	}
	if c.opts.Dimensions > 0 && dim != c.opts.Dimensions {
		return nil, fmt.Errorf("entry has %d dimensions, want %d", dim, c.opts.Dimensions)
	}
	var v pgvector.Vector
	if err := v.DecodeBinary(data); err != nil {
		return nil, err
	}
	return v.Slice(), nil
}

func (c *CachedEmbedder) count(result string) {
	if c.opts.Lookups != nil {
		c.opts.Lookups.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(kind string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return "emb:" + c.opts.Model + ":" + kind + ":" + hex.EncodeToString(sum[:])
}
