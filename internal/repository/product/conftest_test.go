package product

import (
	"context"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
)

// mockExecutor records the last statement and returns canned rows.
type mockExecutor struct {
	sql  string
	args []any
	rows []db.Row
	err  error
}

func (m *mockExecutor) Execute(_ context.Context, sql string, args ...any) ([]db.Row, error) {
	m.sql, m.args = sql, args
	return m.rows, m.err
}

type mockRunner struct {
	sql  string
	rows []db.Row
	err  error
}

func (m *mockRunner) RunQuery(_ context.Context, sql string) ([]db.Row, error) {
	m.sql = sql
	return m.rows, m.err
}

// dataAPIRow mimics a Data API row: NUMERIC as string, JSON columns re-parsed.
func dataAPIRow(id, category, price string) db.Row {
	return db.Row{
		"product_id":      id,
		"name":            "Product " + id,
		"brand":           "Stride",
		"price":           price,
		"description":     nil,
		"image_url":       "https://cdn.example.com/" + id + ".jpg",
		"category":        category,
		"available_sizes": []any{"9", "10", 11.0},
		"inventory":       map[string]any{"9": float64(2), "10": float64(0), "11": float64(5)},
	}
}
