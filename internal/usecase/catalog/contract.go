package catalog

import (
	"context"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

// Repository reads single products and their stock.
type Repository interface {
	Get(ctx context.Context, id string) (product.Product, error)
	Stock(ctx context.Context, id string) (product.Inventory, []string, error)
}
