// Package bedrock embeds text and images with Amazon Nova multimodal
// embeddings, so queries and photos share the catalog's vector space.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
)

const (
	provider      = "bedrock"
	schemaVersion = "nova-multimodal-embed-v1"
	taskSingle    = "SINGLE_EMBEDDING"

	purposeText  = "TEXT_RETRIEVAL"
	purposeImage = "IMAGE_RETRIEVAL"

	// MaxTextLength is where query text is cut before sending.
	MaxTextLength = 8192
)

// API is the subset of the Bedrock runtime client the embedder uses.
type API interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds the model settings.
type Config struct {
	Region     string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// Embedder calls InvokeModel once per text or image.
type Embedder struct {
	api        API
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewEmbedder loads AWS credentials and creates a Bedrock embedder.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewEmbedderWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewEmbedderWithAPI creates an embedder over an existing client.
func NewEmbedderWithAPI(api API, cfg Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{api: api, model: cfg.Model, dimensions: cfg.Dimensions, logger: logger}
}

type request struct {
	SchemaVersion string       `json:"schemaVersion"`
	TaskType      string       `json:"taskType"`
	Params        singleParams `json:"singleEmbeddingParams"`
}

type singleParams struct {
	Purpose   string     `json:"embeddingPurpose"`
	Dimension int        `json:"embeddingDimension"`
	Text      *textInput `json:"text,omitempty"`
	Image     *imageIn   `json:"image,omitempty"`
}

type textInput struct {
	TruncationMode string `json:"truncationMode"`
	Value          string `json:"value"`
}

type imageIn struct {
	Format string      `json:"format"`
	Source imageSource `json:"source"`
}

type imageSource struct {
	Bytes string `json:"bytes"`
}

type response struct {
	Embeddings []struct {
		EmbeddingType string    `json:"embeddingType"`
		Embedding     []float32 `json:"embedding"`
	} `json:"embeddings"`
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
	}
	return e.invoke(ctx, "text", singleParams{
		Purpose:   purposeText,
		Dimension: e.dimensions,
		Text:      &textInput{TruncationMode: "END", Value: text},
	})
}

// EmbedImage implements domain.ImageEmbedder. format is jpeg, png, gif or webp.
func (e *Embedder) EmbedImage(ctx context.Context, image []byte, format string) (domain.EmbeddingResult, error) {
	return e.invoke(ctx, "image", singleParams{
		Purpose:   purposeImage,
		Dimension: e.dimensions,
		Image: &imageIn{
			Format: format,
			Source: imageSource{Bytes: base64.StdEncoding.EncodeToString(image)},
		},
	})
}

// HealthCheck embeds a short fixed string.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "health"); err != nil {
		return fmt.Errorf("health check embedding: %w", err)
	}
	return nil
}

func (e *Embedder) invoke(ctx context.Context, purpose string, params singleParams) (domain.EmbeddingResult, error) {
	body, err := json.Marshal(request{SchemaVersion: schemaVersion, TaskType: taskSingle, Params: params})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	out, err := e.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveEmbedding(provider, e.model, purpose, duration, errorType(err))
		return domain.EmbeddingResult{}, fmt.Errorf("invoke %s: %w: %w", e.model, domain.ErrEmbeddingProviderError, err)
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		metrics.ObserveEmbedding(provider, e.model, purpose, duration, "bad_response")
		return domain.EmbeddingResult{}, fmt.Errorf("decode response: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		metrics.ObserveEmbedding(provider, e.model, purpose, duration, "empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.ObserveEmbedding(provider, e.model, purpose, duration, "")
	e.logger.Debug("nova embedding",
		zap.String("purpose", purpose),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(resp.Embeddings[0].Embedding)),
	)

	return domain.EmbeddingResult{Embedding: resp.Embeddings[0].Embedding}, nil
}

func errorType(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "transport"
}
