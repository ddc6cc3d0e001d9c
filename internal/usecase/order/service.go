package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/activity"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/logger"
)

// MaxItems bounds the number of line items in one order.
const MaxItems = 20

// Service prices and places orders.
type Service struct {
	prices  PriceReader
	orders  Repository
	pricing domorder.Pricing
	now     func() time.Time
}

// New creates an order service.
func New(prices PriceReader, orders Repository, pricing domorder.Pricing) *Service {
	return &Service{prices: prices, orders: orders, pricing: pricing, now: time.Now}
}

// Quote prices each item with its own lookup, in item order.
// Unknown products are skipped with an error entry; a basket with no
// known product is rejected.
func (s *Service) Quote(ctx context.Context, items []domorder.Item, rec *activity.Recorder) (domorder.Quote, error) {
	if len(items) == 0 {
		return domorder.Quote{}, fmt.Errorf("%w: order has no items", domain.ErrInvalidRequest)
	}
	if len(items) > MaxItems {
		return domorder.Quote{}, fmt.Errorf("%w: too many items (max %d)", domain.ErrInvalidRequest, MaxItems)
	}

	lines := make([]domorder.Line, 0, len(items))
	var skipped []string
	for _, it := range items {
		start := time.Now()
		pl, err := s.prices.Price(ctx, it.ProductID())
		if errors.Is(err, domain.ErrNotFound) {
			skipped = append(skipped, it.ProductID())
			rec.Record(activity.Error, "Product not found: "+it.ProductID(),
				activity.WithDetail("item skipped"),
			)
			continue
		}
		if err != nil {
			return domorder.Quote{}, fmt.Errorf("price %s: %w", it.ProductID(), err)
		}
		line := domorder.Line{
			ProductID: pl.ID,
			Name:      pl.Name,
			Size:      it.Size(),
			Quantity:  it.Quantity(),
			UnitPrice: pl.Price,
		}
		lines = append(lines, line)
		rec.Record(activity.Order, "Price lookup: "+pl.Name,
			activity.WithSQL("SELECT product_id, name, price FROM products WHERE product_id = '"+
				strings.ReplaceAll(pl.ID, "'", "''")+"'"),
			activity.WithDuration(time.Since(start)),
			activity.WithDetail(fmt.Sprintf("%d x $%s", line.Quantity, line.UnitPrice.StringFixed(2))),
		)
	}
	if len(lines) == 0 {
		return domorder.Quote{}, fmt.Errorf("%w: unknown products: %s",
			domain.ErrInvalidRequest, strings.Join(skipped, ", "))
	}
	return s.pricing.Price(lines), nil
}

// Place quotes the items and writes the order.
func (s *Service) Place(
	ctx context.Context, customerID string, items []domorder.Item, rec *activity.Recorder,
) (domorder.Confirmation, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domorder.Confirmation{}, fmt.Errorf("%w: customer id is required", domain.ErrInvalidRequest)
	}
	q, err := s.Quote(ctx, items, rec)
	if err != nil {
		return domorder.Confirmation{}, err
	}

	placedAt := s.now().UTC()
	c := domorder.Confirmation{
		OrderID:           domorder.NewID(),
		CustomerID:        customerID,
		Status:            domorder.StatusConfirmed,
		Quote:             q,
		PlacedAt:          placedAt,
		EstimatedDelivery: s.pricing.EstimatedDelivery(placedAt),
	}

	start := time.Now()
	if err := s.orders.Insert(ctx, c); err != nil {
		return domorder.Confirmation{}, fmt.Errorf("place order: %w", err)
	}
	rec.Record(activity.Order, "Order placed: "+c.OrderID,
		activity.WithSQL(s.orders.DisplaySQL(c)),
		activity.WithDuration(time.Since(start)),
		activity.WithDetail(fmt.Sprintf("%d items, total $%s", len(q.Lines), q.Total.StringFixed(2))),
	)
	logger.FromContext(ctx).Info("order placed",
		zap.String("order_id", c.OrderID),
		zap.String("customer_id", customerID),
		zap.String("total", q.Total.StringFixed(2)),
	)
	return c, nil
}
