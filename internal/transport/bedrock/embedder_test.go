package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type fakeAPI struct {
	body  string
	err   error
	input *bedrockruntime.InvokeModelInput
	req   request
}

func (f *fakeAPI) InvokeModel(
	_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options),
) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	_ = json.Unmarshal(in.Body, &f.req)
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

const okBody = `{"embeddings":[{"embeddingType":"TEXT","embedding":[0.5,-0.25,0.125]}]}`

func newTestEmbedder(api API) *Embedder {
	return NewEmbedderWithAPI(api, Config{Model: "amazon.nova-2-multimodal-embeddings-v1:0", Dimensions: 3})
}

func TestEmbed_Text(t *testing.T) {
	api := &fakeAPI{body: okBody}
	result, err := newTestEmbedder(api).Embed(context.Background(), "lightweight trail shoes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[1] != -0.25 {
		t.Errorf("unexpected embedding: %v", result.Embedding)
	}
	if *api.input.ModelId != "amazon.nova-2-multimodal-embeddings-v1:0" {
		t.Errorf("ModelId = %q", *api.input.ModelId)
	}
	if api.req.SchemaVersion != schemaVersion || api.req.TaskType != taskSingle {
		t.Errorf("unexpected envelope: %+v", api.req)
	}
	p := api.req.Params
	if p.Purpose != purposeText || p.Dimension != 3 || p.Text == nil || p.Text.Value != "lightweight trail shoes" {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.Image != nil {
		t.Error("text request must not carry an image")
	}
}

func TestEmbed_Truncates(t *testing.T) {
	api := &fakeAPI{body: okBody}
	if _, err := newTestEmbedder(api).Embed(context.Background(), strings.Repeat("a", MaxTextLength+10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.req.Params.Text.Value) != MaxTextLength {
		t.Errorf("text length = %d, want %d", len(api.req.Params.Text.Value), MaxTextLength)
	}
}

func TestEmbedImage(t *testing.T) {
	api := &fakeAPI{body: okBody}
	img := []byte{0x89, 'P', 'N', 'G'}
	if _, err := newTestEmbedder(api).EmbedImage(context.Background(), img, "png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := api.req.Params
	if p.Purpose != purposeImage || p.Image == nil || p.Image.Format != "png" {
		t.Fatalf("unexpected params: %+v", p)
	}
	if p.Image.Source.Bytes != base64.StdEncoding.EncodeToString(img) {
		t.Errorf("image bytes not base64 encoded: %q", p.Image.Source.Bytes)
	}
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{"api error", &fakeAPI{err: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}}},
		{"bad json", &fakeAPI{body: "{"}},
		{"empty", &fakeAPI{body: `{"embeddings":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEmbedder(tt.api).Embed(context.Background(), "x")
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	if err := newTestEmbedder(&fakeAPI{body: okBody}).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := newTestEmbedder(&fakeAPI{err: errors.New("no credentials")}).HealthCheck(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestErrorType(t *testing.T) {
	if got := errorType(&smithy.GenericAPIError{Code: "AccessDeniedException"}); got != "AccessDeniedException" {
		t.Errorf("errorType = %q", got)
	}
	if got := errorType(errors.New("dial tcp")); got != "transport" {
		t.Errorf("errorType = %q", got)
	}
}
