package order

import (
	"context"

	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

// PriceReader looks up current product prices.
type PriceReader interface {
	Price(ctx context.Context, id string) (product.PriceLine, error)
}

// Repository persists confirmed orders.
type Repository interface {
	Insert(ctx context.Context, c domorder.Confirmation) error
	DisplaySQL(c domorder.Confirmation) string
}
