package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

// Availability is the stock answer for one product, optionally one size.
type Availability struct {
	ProductID string
	// Size is empty when the total across sizes was asked for.
	Size     string
	Quantity int
	InStock  bool
	Sizes    []string
}

// Service answers product lookups and stock checks.
type Service struct {
	repo Repository
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get loads one product.
func (s *Service) Get(ctx context.Context, id string, rec *activity.Recorder) (product.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return product.Product{}, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	start := time.Now()
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return product.Product{}, fmt.Errorf("get product: %w", err)
	}
	rec.Record(activity.Search, "Product lookup: "+id,
		activity.WithSQL("SELECT ... FROM products WHERE product_id = "+quote(id)),
		activity.WithDuration(time.Since(start)),
		activity.WithDetail(p.Name()),
	)
	return p, nil
}

// CheckInventory reports stock. With a size, the per-size quantity of a
// sized product is used; otherwise the product total.
func (s *Service) CheckInventory(
	ctx context.Context, id, size string, rec *activity.Recorder,
) (Availability, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Availability{}, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	start := time.Now()
	inv, sizes, err := s.repo.Stock(ctx, id)
	if err != nil {
		return Availability{}, fmt.Errorf("check inventory: %w", err)
	}

	a := Availability{ProductID: id, Sizes: sizes}
	if size != "" && inv.Sized() {
		a.Size = size
		a.Quantity = inv.Size(size)
	} else {
		a.Quantity = inv.Total()
	}
	a.InStock = a.Quantity > 0

	title := "Inventory check: " + id
	if a.Size != "" {
		title += " size " + a.Size
	}
	rec.Record(activity.Inventory, title,
		activity.WithSQL("SELECT inventory, available_sizes FROM products WHERE product_id = "+quote(id)),
		activity.WithDuration(time.Since(start)),
		activity.WithDetail(fmt.Sprintf("%d in stock", a.Quantity)),
	)
	return a, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
