package codec

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/db"
	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
)

// DefaultJSONColumns are the columns stored as JSON text.
func DefaultJSONColumns() []string {
	return []string{"inventory", "available_sizes"}
}

// Decoder turns Data API records into rows.
type Decoder struct {
	jsonColumns map[string]bool
}

// NewDecoder creates a decoder that re-parses the named columns as JSON.
func NewDecoder(jsonColumns ...string) *Decoder {
	m := make(map[string]bool, len(jsonColumns))
	for _, c := range jsonColumns {
		m[c] = true
	}
	return &Decoder{jsonColumns: m}
}

// Decode converts records into rows keyed by column name.
// Fields it cannot read become nil and are reported; the rest of the row
// is still decoded.
func (d *Decoder) Decode(records [][]types.Field, columns []string) ([]db.Row, []*domain.DecodeError) {
	rows := make([]db.Row, 0, len(records))
	var problems []*domain.DecodeError

	for ri, rec := range records {
		row := make(db.Row, len(rec))
		for ci, f := range rec {
			name := columnName(columns, ci)
			v, reason := decodeField(f)
			if reason != "" {
				problems = append(problems, &domain.DecodeError{Row: ri, Column: name, Reason: reason})
			}
			if s, ok := v.(string); ok && d.jsonColumns[name] {
				v = reparse(s)
			}
			row[name] = v
		}
		rows = append(rows, row)
	}
	return rows, problems
}

func columnName(columns []string, i int) string {
	if i < len(columns) && columns[i] != "" {
		return columns[i]
	}
	return fmt.Sprintf("col%d", i)
}

func decodeField(f types.Field) (any, string) {
	switch v := f.(type) {
	case *types.FieldMemberIsNull:
		return nil, ""
	case *types.FieldMemberStringValue:
		return v.Value, ""
	case *types.FieldMemberLongValue:
		return v.Value, ""
	case *types.FieldMemberDoubleValue:
		return v.Value, ""
	case *types.FieldMemberBooleanValue:
		return v.Value, ""
	case *types.FieldMemberArrayValue:
		return decodeArray(v.Value)
	case nil:
		return nil, "empty field"
	default:
		return nil, fmt.Sprintf("unsupported field %T", f)
	}
}

func decodeArray(a types.ArrayValue) (any, string) {
	switch v := a.(type) {
	case *types.ArrayValueMemberStringValues:
		return toAny(v.Value), ""
	case *types.ArrayValueMemberLongValues:
		return toAny(v.Value), ""
	case *types.ArrayValueMemberDoubleValues:
		return toAny(v.Value), ""
	case *types.ArrayValueMemberBooleanValues:
		return toAny(v.Value), ""
	case *types.ArrayValueMemberArrayValues:
		out := make([]any, len(v.Value))
		var reason string
		for i, nested := range v.Value {
			el, r := decodeArray(nested)
			if r != "" && reason == "" {
				reason = fmt.Sprintf("element %d: %s", i, r)
			}
			out[i] = el
		}
		return out, reason
	case nil:
		return nil, "empty array"
	default:
		return nil, fmt.Sprintf("unsupported array %T", a)
	}
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func reparse(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Normalize re-parses JSON column strings of a row produced elsewhere
// (for example a literal-SQL tool that returns JSON text). It mutates row.
func (d *Decoder) Normalize(row db.Row) {
	for name := range d.jsonColumns {
		if s, ok := row[name].(string); ok {
			row[name] = reparse(s)
		}
	}
}
