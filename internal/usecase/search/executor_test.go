package search

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/mode"
)

func TestPlan_Category(t *testing.T) {
	e := NewExecutor(&mockProducts{}, 5, 50)
	p, err := e.Plan(parse("running shoes under $100"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode != mode.Category {
		t.Errorf("Mode = %q, want category", p.Mode)
	}
	if !strings.Contains(p.SQL, "WHERE category = ? AND price <= ? ORDER BY price ASC LIMIT ?") {
		t.Errorf("unexpected SQL: %s", p.SQL)
	}
	if len(p.Args) != 3 || p.Args[0] != "Running Shoes" {
		t.Fatalf("unexpected args: %v", p.Args)
	}
	if d, ok := p.Args[1].(decimal.Decimal); !ok || !d.Equal(decimal.NewFromInt(100)) {
		t.Errorf("ceiling arg = %v, want decimal 100", p.Args[1])
	}
	if p.Args[2] != 5 {
		t.Errorf("limit arg = %v, want default 5", p.Args[2])
	}
	if p.Title != "Category filter: Running Shoes" {
		t.Errorf("Title = %q", p.Title)
	}
	want := "WHERE category = 'Running Shoes' AND price <= 100 ORDER BY price ASC LIMIT 5"
	if !strings.HasSuffix(p.Literal, want) {
		t.Errorf("Literal = %s", p.Literal)
	}
	if !strings.HasPrefix(p.Display, "SELECT ... FROM products") || !strings.HasSuffix(p.Display, want) {
		t.Errorf("Display = %s", p.Display)
	}
}

func TestPlan_Shoes(t *testing.T) {
	e := NewExecutor(&mockProducts{}, 5, 50)
	for _, text := range []string{"shoes", "comfortable sneakers for walking", "any SHOES under 80"} {
		p, err := e.Plan(parse(text), 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Mode != mode.Shoes {
			t.Errorf("%q: Mode = %q, want shoes", text, p.Mode)
		}
		if !strings.Contains(p.SQL, "category IN ('Running Shoes','Training Shoes')") {
			t.Errorf("%q: unexpected SQL: %s", text, p.SQL)
		}
		if p.Args[len(p.Args)-1] != 3 {
			t.Errorf("%q: limit must be the last arg, got %v", text, p.Args)
		}
	}
}

func TestPlan_FuzzyQuotesLiteral(t *testing.T) {
	e := NewExecutor(&mockProducts{}, 5, 50)
	p, err := e.Plan(parse("O'Neill hoodie"), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode != mode.Fuzzy {
		t.Fatalf("Mode = %q, want fuzzy", p.Mode)
	}
	if !strings.Contains(p.SQL, "(name ILIKE ? OR description ILIKE ? OR brand ILIKE ?)") {
		t.Errorf("unexpected SQL: %s", p.SQL)
	}
	if !slices.Equal(p.Args, []any{"%O'Neill hoodie%", "%O'Neill hoodie%", "%O'Neill hoodie%", 2}) {
		t.Errorf("unexpected args: %v", p.Args)
	}
	if !strings.Contains(p.Literal, "name ILIKE '%O''Neill hoodie%'") {
		t.Errorf("quote not doubled: %s", p.Literal)
	}
	if p.Title != "Text search: O'Neill hoodie" {
		t.Errorf("Title = %q", p.Title)
	}
}

func TestPlan_MarkersMatchArgs(t *testing.T) {
	e := NewExecutor(&mockProducts{}, 5, 50)
	for _, text := range []string{"apparel", "apparel under 20", "shoes", "shoes below 90", "yoga", "yoga < 15"} {
		p, err := e.Plan(parse(text), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := strings.Count(p.SQL, "?"); n != len(p.Args) {
			t.Errorf("%q: %d markers, %d args", text, n, len(p.Args))
		}
		if strings.Contains(p.Literal, "?") {
			t.Errorf("%q: literal still has markers: %s", text, p.Literal)
		}
	}
}

func TestPlan_Limit(t *testing.T) {
	e := NewExecutor(&mockProducts{}, 5, 50)
	p, err := e.Plan(parse("yoga"), 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Limit != 50 {
		t.Errorf("Limit = %d, want clamped 50", p.Limit)
	}
	if _, err := e.Plan(parse("yoga"), -1); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSearch_LimitThreeOfTen(t *testing.T) {
	repo := &mockProducts{rows: makeProducts(10)}
	e := NewExecutor(repo, 5, 50)

	out, err := e.Search(context.Background(), parse("hoodie"), 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(out.Products))
	}
	if got := ids(out.Products); !slices.Equal(got, []string{"PROD-001", "PROD-002", "PROD-003"}) {
		t.Errorf("unexpected order: %v", got)
	}
	if repo.lastArgs[len(repo.lastArgs)-1] != 3 {
		t.Errorf("limit not bound last: %v", repo.lastArgs)
	}
}

func TestSearch_RecordsSearchEntry(t *testing.T) {
	repo := &mockProducts{rows: makeProducts(2)}
	rec := activity.NewRecorder("search", nil)

	out, err := NewExecutor(repo, 5, 50).Search(context.Background(), parse("apparel"), 0, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.findCalled || repo.literalCalled {
		t.Error("expected parameterized path only")
	}
	entries := rec.Entries()
	if len(entries) != 1 || entries[0].Kind() != activity.Search {
		t.Fatalf("expected one search entry, got %v", entries)
	}
	if entries[0].DisplaySQL() != out.Display {
		t.Errorf("entry SQL = %q, want %q", entries[0].DisplaySQL(), out.Display)
	}
	if _, ok := entries[0].Duration(); !ok {
		t.Error("expected duration on search entry")
	}
	if entries[0].Detail() != "Found 2 products" {
		t.Errorf("Detail = %q", entries[0].Detail())
	}
}

func TestSearchLiteral_UsesLiteralSQL(t *testing.T) {
	repo := &mockProducts{rows: makeProducts(1)}
	rec := activity.NewRecorder("mcp", nil)

	_, err := NewExecutor(repo, 5, 50).SearchLiteral(context.Background(), parse("training shoes under 80"), 4, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.literalCalled || repo.findCalled {
		t.Fatal("expected literal path only")
	}
	want := "WHERE category = 'Training Shoes' AND price <= 80 ORDER BY price ASC LIMIT 4"
	if !strings.HasSuffix(repo.lastSQL, want) {
		t.Errorf("unexpected literal SQL: %s", repo.lastSQL)
	}
	if rec.Count(activity.MCP) != 1 {
		t.Errorf("expected one mcp entry, got %d", rec.Count(activity.MCP))
	}
}

func TestSearch_DataAccessError(t *testing.T) {
	upstream := domain.NewDataAccess("execute statement", errors.New("relation does not exist"))
	rec := activity.NewRecorder("search", nil)

	_, err := NewExecutor(&mockProducts{err: upstream}, 5, 50).Search(context.Background(), parse("apparel"), 0, rec)
	if !errors.Is(err, domain.ErrDataAccess) {
		t.Fatalf("expected ErrDataAccess, got %v", err)
	}
	if len(rec.Entries()) != 0 {
		t.Errorf("failed search must not record entries, got %d", len(rec.Entries()))
	}
}

func TestFuzzy_IgnoresCategory(t *testing.T) {
	repo := &mockProducts{rows: makeProducts(1)}
	out, err := NewExecutor(repo, 5, 50).Fuzzy(context.Background(), parse("running shoes"), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Mode != mode.Fuzzy {
		t.Errorf("Mode = %q, want fuzzy", out.Mode)
	}
	if repo.lastArgs[0] != "%running shoes%" {
		t.Errorf("unexpected args: %v", repo.lastArgs)
	}
}

func TestRender_SkipsQuoted(t *testing.T) {
	got := render(`SELECT "size?", 'what?' FROM products WHERE id = ? AND name = ?`, []any{"A-1", "it's"})
	want := `SELECT "size?", 'what?' FROM products WHERE id = 'A-1' AND name = 'it''s'`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}
