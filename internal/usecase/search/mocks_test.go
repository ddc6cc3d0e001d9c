package search

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
)

// --- Mocks ---

type mockProducts struct {
	rows []product.Product
	err  error

	findCalled    bool
	literalCalled bool
	lastSQL       string
	lastArgs      []any
}

// Find honours the trailing LIMIT argument like the database would.
func (m *mockProducts) Find(_ context.Context, sql string, args ...any) ([]product.Product, error) {
	m.findCalled = true
	m.lastSQL = sql
	m.lastArgs = args
	if m.err != nil {
		return nil, m.err
	}
	rows := m.rows
	if n, ok := args[len(args)-1].(int); ok && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (m *mockProducts) FindLiteral(_ context.Context, sql string) ([]product.Product, error) {
	m.literalCalled = true
	m.lastSQL = sql
	return m.rows, m.err
}

type mockScored struct {
	rows     []product.Scored
	err      error
	called   bool
	lastSQL  string
	lastArgs []any
}

func (m *mockScored) FindScored(_ context.Context, sql string, args ...any) ([]product.Scored, error) {
	m.called = true
	m.lastSQL = sql
	m.lastArgs = args
	return m.rows, m.err
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
	text   string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called = true
	m.text = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockImageEmbedder struct {
	mockEmbedder
	imageErr error
	format   string
}

func (m *mockImageEmbedder) EmbedImage(_ context.Context, _ []byte, format string) (domain.EmbeddingResult, error) {
	m.format = format
	if m.imageErr != nil {
		return domain.EmbeddingResult{}, m.imageErr
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

// --- Helpers ---

func makeProduct(id string, price int64, cat product.Category) product.Product {
	p, err := product.New(product.Attrs{
		ID:       id,
		Name:     "Product " + id,
		Brand:    "Brand",
		Price:    decimal.NewFromInt(price),
		Category: cat,
	})
	if err != nil {
		panic(err)
	}
	return p
}

func makeProducts(n int) []product.Product {
	out := make([]product.Product, n)
	for i := range out {
		out[i] = makeProduct(fmt.Sprintf("PROD-%03d", i+1), int64(10+i), product.Apparel)
	}
	return out
}

func scored(p product.Product, sem, lex float64) product.Scored {
	return product.Scored{Product: p, Semantic: &sem, Lexical: &lex}
}

func parse(text string) intent.Intent {
	return intent.Parse(text, intent.DefaultKeywords())
}

func vec(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 0.01
	}
	return v
}

func ids(ps []product.Scored) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Product.ID()
	}
	return out
}
