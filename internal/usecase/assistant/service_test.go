package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/mode"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/request"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/usecase/search"
)

// --- Mocks ---

type mockKeyword struct {
	out           search.Outcome
	err           error
	searchCalled  bool
	literalCalled bool
	lastLimit     int
	lastIntent    intent.Intent
}

func (m *mockKeyword) Search(_ context.Context, in intent.Intent, limit int, rec *activity.Recorder) (search.Outcome, error) {
	m.searchCalled = true
	m.lastIntent, m.lastLimit = in, limit
	if m.err == nil {
		rec.Record(activity.Search, "search")
	}
	return m.out, m.err
}

func (m *mockKeyword) SearchLiteral(_ context.Context, in intent.Intent, limit int, rec *activity.Recorder) (search.Outcome, error) {
	m.literalCalled = true
	m.lastIntent, m.lastLimit = in, limit
	if m.err == nil {
		rec.Record(activity.MCP, "run_query")
	}
	return m.out, m.err
}

type mockRanked struct {
	out    search.Outcome
	err    error
	called bool
}

func (m *mockRanked) Search(_ context.Context, _ intent.Intent, _ int, _ *activity.Recorder) (search.Outcome, error) {
	m.called = true
	return m.out, m.err
}

type mockOrders struct {
	c        domorder.Confirmation
	err      error
	customer string
}

func (m *mockOrders) Place(_ context.Context, customerID string, _ []domorder.Item, _ *activity.Recorder) (domorder.Confirmation, error) {
	m.customer = customerID
	return m.c, m.err
}

// argFinder records the bound arguments of parameterized statements.
type argFinder struct{ lastArgs []any }

func (f *argFinder) Find(_ context.Context, _ string, args ...any) ([]product.Product, error) {
	f.lastArgs = args
	return nil, nil
}

func (f *argFinder) FindLiteral(context.Context, string) ([]product.Product, error) {
	return nil, nil
}

type captureSink struct{ got []activity.Entry }

func (s *captureSink) Publish(e activity.Entry) { s.got = append(s.got, e) }

func outcome(m mode.Mode, names ...string) search.Outcome {
	var ps []product.Scored
	for i, n := range names {
		p, err := product.New(product.Attrs{
			ID:       n,
			Name:     strings.ToUpper(n),
			Price:    decimal.NewFromInt(int64(20 + i)),
			Category: product.Apparel,
		})
		if err != nil {
			panic(err)
		}
		ps = append(ps, product.Scored{Product: p})
	}
	return search.Outcome{Mode: m, Products: ps}
}

func newService(k *mockKeyword, r *mockRanked, o *mockOrders) *Service {
	var ranked RankedSearcher
	if r != nil {
		ranked = r
	}
	var orders OrderPlacer
	if o != nil {
		orders = o
	}
	return New(k, ranked, orders, intent.DefaultKeywords(), request.Limits{})
}

// --- Tests ---

func TestHandle_DirectDefault(t *testing.T) {
	k := &mockKeyword{out: outcome(mode.Category, "a", "b")}
	sink := &captureSink{}

	resp, err := newService(k, nil, nil).Handle(context.Background(), Request{Message: "apparel under $30"}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !k.searchCalled || k.literalCalled {
		t.Error("expected parameterized search")
	}
	if k.lastLimit != 5 {
		t.Errorf("limit = %d, want default 5", k.lastLimit)
	}
	if c, ok := k.lastIntent.Category(); !ok || c != product.Apparel {
		t.Errorf("intent category = %q", c)
	}
	if len(resp.Products) != 2 || resp.Mode != mode.Category {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !strings.HasPrefix(resp.Text, "Found 2 products") {
		t.Errorf("Text = %q", resp.Text)
	}
	last := resp.Activities[len(resp.Activities)-1]
	if last.Kind() != activity.Result {
		t.Errorf("last entry kind = %q, want result", last.Kind())
	}
	if len(sink.got) != len(resp.Activities) {
		t.Errorf("sink saw %d entries, response has %d", len(sink.got), len(resp.Activities))
	}
	if last.Actor() != "direct-agent" {
		t.Errorf("actor = %q", last.Actor())
	}
}

func TestHandle_ConfiguredLimits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"configured default", 0, 10},
		{"above package max", 80, 80},
		{"clamped to configured max", 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &argFinder{}
			exec := search.NewExecutor(finder, 10, 100)
			svc := New(exec, nil, nil, intent.DefaultKeywords(), request.Limits{Default: 10, Max: 100})

			_, err := svc.Handle(context.Background(), Request{Message: "apparel", Limit: tt.limit}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(finder.lastArgs) == 0 {
				t.Fatal("no statement executed")
			}
			if got := finder.lastArgs[len(finder.lastArgs)-1]; got != tt.want {
				t.Errorf("LIMIT arg = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestHandle_MCPUsesLiteral(t *testing.T) {
	k := &mockKeyword{out: outcome(mode.Shoes, "a")}
	resp, err := newService(k, nil, nil).Handle(context.Background(), Request{Message: "shoes", Backend: MCP, Limit: 2}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !k.literalCalled || k.searchCalled {
		t.Error("expected literal search")
	}
	if k.lastLimit != 2 {
		t.Errorf("limit = %d", k.lastLimit)
	}
	if resp.Activities[0].Kind() != activity.MCP {
		t.Errorf("first entry = %q, want mcp", resp.Activities[0].Kind())
	}
}

func TestHandle_HybridDelegates(t *testing.T) {
	r := &mockRanked{out: outcome(mode.Hybrid, "a")}
	r.out.Degradation = &domain.RankingDegradation{Stage: "embed", Err: errors.New("down")}

	resp, err := newService(&mockKeyword{}, r, nil).Handle(context.Background(),
		Request{Message: "something warm for winter runs", Backend: Hybrid}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.called {
		t.Fatal("expected ranked search")
	}
	if resp.Activities[0].Kind() != activity.Delegation || resp.Activities[0].Actor() != "supervisor" {
		t.Errorf("expected delegation first, got %q by %q", resp.Activities[0].Kind(), resp.Activities[0].Actor())
	}
	if !resp.Degraded {
		t.Error("expected Degraded")
	}
}

func TestHandle_HybridWithoutRanker(t *testing.T) {
	_, err := newService(&mockKeyword{}, nil, nil).Handle(context.Background(), Request{Message: "x", Backend: Hybrid}, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestHandle_SearchFailure(t *testing.T) {
	k := &mockKeyword{err: domain.NewDataAccess("execute statement", errors.New("boom"))}
	resp, err := newService(k, nil, nil).Handle(context.Background(), Request{Message: "apparel"}, nil)
	if err != nil {
		t.Fatalf("search failures must not surface, got %v", err)
	}
	if resp.Text != NoResultsText {
		t.Errorf("Text = %q", resp.Text)
	}
	var errs int
	for _, e := range resp.Activities {
		if e.Kind() == activity.Error {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("expected one error entry, got %d", errs)
	}
}

func TestHandle_EmptyResultSuggests(t *testing.T) {
	k := &mockKeyword{out: outcome(mode.Fuzzy)}
	resp, err := newService(k, nil, nil).Handle(context.Background(), Request{Message: "runing gear"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
	if resp.Suggestions[0] != "running shoes" {
		t.Errorf("Suggestions = %v", resp.Suggestions)
	}
	if !strings.Contains(resp.Text, "Try: ") {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestHandle_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty message", Request{Message: "  "}},
		{"negative limit", Request{Message: "shoes", Limit: -3}},
		{"unknown backend", Request{Message: "shoes", Backend: "graph"}},
		{"order disabled", Request{CustomerID: "c", Items: []domorder.Item{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService(&mockKeyword{}, nil, nil).Handle(context.Background(), tt.req, nil)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestHandle_PlacesOrder(t *testing.T) {
	it, err := domorder.NewItem("RUN-001", 1, "10")
	if err != nil {
		t.Fatal(err)
	}
	o := &mockOrders{c: domorder.Confirmation{
		OrderID:           "ORD-ABCDEF12",
		Quote:             domorder.Quote{Total: decimal.RequireFromString("97.19")},
		EstimatedDelivery: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
	}}
	k := &mockKeyword{}

	resp, err := newService(k, &mockRanked{}, o).Handle(context.Background(),
		Request{Message: "buy these", Backend: Hybrid, CustomerID: "cust-9", Items: []domorder.Item{it}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.searchCalled {
		t.Error("orders must not search")
	}
	if resp.Order == nil || resp.Order.OrderID != "ORD-ABCDEF12" || o.customer != "cust-9" {
		t.Fatalf("unexpected order: %+v", resp.Order)
	}
	if resp.Text != "Order ORD-ABCDEF12 confirmed. Total $97.19, arriving by Friday, March 6." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Activities[0].Kind() != activity.Delegation {
		t.Errorf("expected delegation entry first, got %q", resp.Activities[0].Kind())
	}
}

func TestHandle_OrderFailure(t *testing.T) {
	it, _ := domorder.NewItem("RUN-001", 1, "")
	o := &mockOrders{err: fmt.Errorf("%w: unknown products", domain.ErrInvalidRequest)}
	_, err := newService(&mockKeyword{}, nil, o).Handle(context.Background(),
		Request{CustomerID: "c", Items: []domorder.Item{it}}, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}
