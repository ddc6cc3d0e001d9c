package product

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	domprod "github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
)

// productRow is the decoded shape of a domprod.Columns row.
type productRow struct {
	ID          string
	Name        string
	Brand       string
	Price       decimal.Decimal
	Description string
	ImageURL    string
	Category    string
	Sizes       []string
	Inventory   domprod.Inventory
}

// hybridRow adds the two relevance scores of a ranking query.
type hybridRow struct {
	productRow
	Semantic float64
	Lexical  float64
}

// inventoryRow is the shape of a stock lookup.
type inventoryRow struct {
	Sizes     []string
	Inventory domprod.Inventory
}

// priceRow is the shape of a line item price lookup.
type priceRow struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

func decodeProductRow(r db.Row) (productRow, error) {
	var out productRow
	var err error
	if out.ID, err = requiredString(r, "product_id"); err != nil {
		return productRow{}, err
	}
	if out.Name, err = requiredString(r, "name"); err != nil {
		return productRow{}, err
	}
	if out.Price, err = toDecimal(r["price"]); err != nil {
		return productRow{}, fmt.Errorf("product %s: price: %w", out.ID, err)
	}
	if out.Price.IsNegative() {
		return productRow{}, fmt.Errorf("product %s: negative price %s", out.ID, out.Price)
	}
	out.Brand = optionalString(r, "brand")
	out.Description = optionalString(r, "description")
	out.ImageURL = optionalString(r, "image_url")
	out.Category = optionalString(r, "category")
	if out.Sizes, err = toStrings(r["available_sizes"]); err != nil {
		return productRow{}, fmt.Errorf("product %s: available_sizes: %w", out.ID, err)
	}
	if out.Inventory, err = toInventory(r["inventory"]); err != nil {
		return productRow{}, fmt.Errorf("product %s: inventory: %w", out.ID, err)
	}
	return out, nil
}

func (p productRow) toDomain() (domprod.Product, error) {
	return domprod.New(domprod.Attrs{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    domprod.Category(p.Category),
		Sizes:       p.Sizes,
		Inventory:   p.Inventory,
	})
}

func decodeHybridRow(r db.Row) (hybridRow, error) {
	base, err := decodeProductRow(r)
	if err != nil {
		return hybridRow{}, err
	}
	sem, err := toFloat(r["semantic_score"])
	if err != nil {
		return hybridRow{}, fmt.Errorf("product %s: semantic_score: %w", base.ID, err)
	}
	// lexical_score is absent from semantic-only queries.
	lex := 0.0
	if v, ok := r["lexical_score"]; ok && v != nil {
		if lex, err = toFloat(v); err != nil {
			return hybridRow{}, fmt.Errorf("product %s: lexical_score: %w", base.ID, err)
		}
	}
	return hybridRow{productRow: base, Semantic: sem, Lexical: lex}, nil
}

func decodeInventoryRow(r db.Row) (inventoryRow, error) {
	sizes, err := toStrings(r["available_sizes"])
	if err != nil {
		return inventoryRow{}, fmt.Errorf("available_sizes: %w", err)
	}
	inv, err := toInventory(r["inventory"])
	if err != nil {
		return inventoryRow{}, fmt.Errorf("inventory: %w", err)
	}
	return inventoryRow{Sizes: sizes, Inventory: inv}, nil
}

func decodePriceRow(r db.Row) (priceRow, error) {
	id, err := requiredString(r, "product_id")
	if err != nil {
		return priceRow{}, err
	}
	name, err := requiredString(r, "name")
	if err != nil {
		return priceRow{}, err
	}
	price, err := toDecimal(r["price"])
	if err != nil {
		return priceRow{}, fmt.Errorf("product %s: price: %w", id, err)
	}
	if price.IsNegative() {
		return priceRow{}, fmt.Errorf("product %s: negative price %s", id, price)
	}
	return priceRow{ID: id, Name: name, Price: price}, nil
}

func requiredString(r db.Row, col string) (string, error) {
	s, ok := r[col].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("column %s: expected non-empty string, got %T", col, r[col])
	}
	return s, nil
}

func optionalString(r db.Row, col string) string {
	s, _ := r[col].(string)
	return s
}

// toDecimal accepts the Data API's string form of NUMERIC as well as JSON numbers.
func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case nil:
		return decimal.Decimal{}, fmt.Errorf("missing")
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("fractional quantity %v", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

// toStrings reads a JSON array or a native array column of sizes.
func toStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, len(x))
		for i, el := range x {
			switch s := el.(type) {
			case string:
				out[i] = s
			case float64:
				out[i] = strconv.FormatFloat(s, 'f', -1, 64)
			case int64:
				out[i] = strconv.FormatInt(s, 10)
			default:
				return nil, fmt.Errorf("element %d: unexpected %T", i, el)
			}
		}
		return out, nil
	case string:
		// A JSON column that failed to re-parse arrives raw.
		return nil, fmt.Errorf("not a JSON array: %q", x)
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
}

// toInventory reads {"quantity": n} or {"<size>": n, ...}.
func toInventory(v any) (domprod.Inventory, error) {
	switch x := v.(type) {
	case nil:
		return domprod.NewQuantityInventory(0), nil
	case map[string]any:
		if q, ok := x["quantity"]; ok {
			n, err := toInt(q)
			if err != nil {
				return domprod.Inventory{}, fmt.Errorf("quantity: %w", err)
			}
			return domprod.NewQuantityInventory(n), nil
		}
		bySize := make(map[string]int, len(x))
		for size, q := range x {
			n, err := toInt(q)
			if err != nil {
				return domprod.Inventory{}, fmt.Errorf("size %s: %w", size, err)
			}
			bySize[size] = n
		}
		return domprod.NewSizedInventory(bySize), nil
	default:
		return domprod.Inventory{}, fmt.Errorf("unexpected %T", v)
	}
}
