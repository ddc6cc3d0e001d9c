package product

import (
	"context"
	"fmt"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	domprod "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

// ErrLiteralUnavailable is returned when no literal-SQL runner is wired.
var ErrLiteralUnavailable = fmt.Errorf("%w: literal query runner not configured", domain.ErrDataAccess)

// Repo reads products through the parameterized executor, or the literal
// runner when the caller only has SQL text.
type Repo struct {
	exec    db.Executor
	literal db.QueryRunner
}

// New creates a product repository. literal may be nil.
func New(exec db.Executor, literal db.QueryRunner) *Repo {
	return &Repo{exec: exec, literal: literal}
}

// Find runs a product-shaped parameterized query.
func (r *Repo) Find(ctx context.Context, sql string, args ...any) ([]domprod.Product, error) {
	rows, err := r.exec.Execute(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return toProducts(rows)
}

// FindLiteral runs a product-shaped literal query.
func (r *Repo) FindLiteral(ctx context.Context, sql string) ([]domprod.Product, error) {
	if r.literal == nil {
		return nil, ErrLiteralUnavailable
	}
	rows, err := r.literal.RunQuery(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("find products (literal): %w", err)
	}
	return toProducts(rows)
}

// FindScored runs a ranking query that adds semantic_score and, optionally,
// lexical_score columns. Combined scores are left to the caller.
func (r *Repo) FindScored(ctx context.Context, sql string, args ...any) ([]domprod.Scored, error) {
	rows, err := r.exec.Execute(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find scored products: %w", err)
	}
	out := make([]domprod.Scored, 0, len(rows))
	for i, row := range rows {
		hr, err := decodeHybridRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		p, err := hr.toDomain()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		sem, lex := hr.Semantic, hr.Lexical
		out = append(out, domprod.Scored{Product: p, Semantic: &sem, Lexical: &lex})
	}
	return out, nil
}

// Get loads one product by ID.
func (r *Repo) Get(ctx context.Context, id string) (domprod.Product, error) {
	rows, err := r.exec.Execute(ctx, "SELECT "+domprod.Columns+" FROM products WHERE product_id = ?", id)
	if err != nil {
		return domprod.Product{}, fmt.Errorf("get product: %w", err)
	}
	if len(rows) == 0 {
		return domprod.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	products, err := toProducts(rows[:1])
	if err != nil {
		return domprod.Product{}, err
	}
	return products[0], nil
}

// Stock loads the inventory and size list of one product.
func (r *Repo) Stock(ctx context.Context, id string) (domprod.Inventory, []string, error) {
	rows, err := r.exec.Execute(ctx, "SELECT inventory, available_sizes FROM products WHERE product_id = ?", id)
	if err != nil {
		return domprod.Inventory{}, nil, fmt.Errorf("get stock: %w", err)
	}
	if len(rows) == 0 {
		return domprod.Inventory{}, nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	ir, err := decodeInventoryRow(rows[0])
	if err != nil {
		return domprod.Inventory{}, nil, fmt.Errorf("product %s: %w", id, err)
	}
	return ir.Inventory, ir.Sizes, nil
}

// Price loads the current name and price of one product.
func (r *Repo) Price(ctx context.Context, id string) (domprod.PriceLine, error) {
	rows, err := r.exec.Execute(ctx, "SELECT product_id, name, price FROM products WHERE product_id = ?", id)
	if err != nil {
		return domprod.PriceLine{}, fmt.Errorf("get price: %w", err)
	}
	if len(rows) == 0 {
		return domprod.PriceLine{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	pr, err := decodePriceRow(rows[0])
	if err != nil {
		return domprod.PriceLine{}, err
	}
	return domprod.PriceLine(pr), nil
}

func toProducts(rows []db.Row) ([]domprod.Product, error) {
	out := make([]domprod.Product, 0, len(rows))
	for i, row := range rows {
		pr, err := decodeProductRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		p, err := pr.toDomain()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
