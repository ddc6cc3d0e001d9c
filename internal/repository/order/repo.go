package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	domorder "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/order"
)

const insertOrder = `WITH new_order AS (
    INSERT INTO orders (order_id, customer_id, status, total_amount, created_at)
    VALUES (?, ?, ?, ?, ?)
    RETURNING order_id
)
INSERT INTO order_items (order_id, product_id, size, quantity, unit_price)
SELECT new_order.order_id, v.product_id, v.size, v.quantity, v.unit_price
FROM new_order, (VALUES %s) AS v(product_id, size, quantity, unit_price)`

const itemTuple = "(?::text, ?::text, ?::int, ?::numeric)"

// Repo persists orders.
type Repo struct {
	exec db.Executor
}

// New creates an order repository.
func New(exec db.Executor) *Repo {
	return &Repo{exec: exec}
}

// Insert writes the order and all its items in one statement, so the
// store's statement atomicity covers both tables.
func (r *Repo) Insert(ctx context.Context, c domorder.Confirmation) error {
	sql, args, err := buildInsert(c)
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order %s: %w", c.OrderID, err)
	}
	return nil
}

// DisplaySQL is the audit rendering of Insert.
func (r *Repo) DisplaySQL(c domorder.Confirmation) string {
	return fmt.Sprintf("WITH new_order AS (INSERT INTO orders ... VALUES ('%s', ...)) INSERT INTO order_items ... (%d rows)",
		c.OrderID, len(c.Quote.Lines))
}

func buildInsert(c domorder.Confirmation) (string, []any, error) {
	lines := c.Quote.Lines
	if len(lines) == 0 {
		return "", nil, fmt.Errorf("order %s has no items", c.OrderID)
	}
	args := []any{c.OrderID, c.CustomerID, c.Status, c.Quote.Total, c.PlacedAt}
	tuples := make([]string, len(lines))
	for i, l := range lines {
		tuples[i] = itemTuple
		var size any
		if l.Size != "" {
			size = l.Size
		}
		args = append(args, l.ProductID, size, l.Quantity, l.UnitPrice)
	}
	return fmt.Sprintf(insertOrder, strings.Join(tuples, ", ")), args, nil
}
