package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/product"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/intent"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain/search/mode"
)

// Plan is one executable retrieval statement in every form the callers need.
type Plan struct {
	Mode mode.Mode
	// SQL carries ? markers bound by Args, in order. The limit is always last.
	SQL  string
	Args []any
	// Literal is SQL with every value interpolated, for runners without binding.
	Literal string
	// Display is shown to shoppers and is never executed.
	Display string
	Title   string
	Limit   int
}

// newPlan picks the first applicable strategy: category, shoes, fuzzy.
func newPlan(in *intent.Intent, limit int, forceFuzzy bool) Plan {
	var (
		m     mode.Mode
		where string
		args  []any
		title string
	)

	cat, hasCat := in.Category()
	switch {
	case hasCat && !forceFuzzy:
		m = mode.Category
		where = "category = ?"
		args = append(args, string(cat))
		title = "Category filter: " + string(cat)
	case in.MentionsShoes() && !forceFuzzy:
		m = mode.Shoes
		where = "category IN (" + quotedCategories(product.ShoeCategories()) + ")"
		title = "Searching shoe categories"
	default:
		m = mode.Fuzzy
		pattern := in.LikePattern()
		where = "(name ILIKE ? OR description ILIKE ? OR brand ILIKE ?)"
		args = append(args, pattern, pattern, pattern)
		title = "Text search: " + in.Text()
	}
	if ceiling, ok := in.PriceCeiling(); ok {
		where += " AND price <= ?"
		args = append(args, ceiling)
	}
	args = append(args, limit)

	tail := " FROM products WHERE " + where + " ORDER BY price ASC LIMIT ?"
	return Plan{
		Mode:    m,
		SQL:     "SELECT " + product.Columns + tail,
		Args:    args,
		Literal: render("SELECT "+product.Columns+tail, args),
		Display: render("SELECT ..."+tail, args),
		Title:   title,
		Limit:   limit,
	}
}

func quotedCategories(cats []product.Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = quote(string(c))
	}
	return strings.Join(parts, ",")
}

// quote renders s as a single-quoted SQL literal, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// render substitutes args for the ? markers of sql, left to right.
// Markers inside single-quoted literals and double-quoted identifiers are
// kept. Comments are not recognized.
func render(sql string, args []any) string {
	var b strings.Builder
	b.Grow(len(sql) + 16*len(args))
	next := 0
	var open byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' || c == '"':
			if open == 0 {
				open = c
			} else if open == c {
				open = 0
			}
			b.WriteByte(c)
		case c == '?' && open == 0 && next < len(args):
			b.WriteString(literal(args[next]))
			next++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(x)
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.String()
	case displayValue:
		return string(x)
	default:
		return quote(fmt.Sprint(x))
	}
}

// displayValue is rendered verbatim. It only ever appears in display args.
type displayValue string
