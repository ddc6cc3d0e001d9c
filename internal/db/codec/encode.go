// Package codec marshals Go values to and from RDS Data API typed fields.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/shopspring/decimal"

	"github.com/aws-samples/sample-dat309-agentic-workflows-aurora-mcp/internal/domain"
)

// TimestampLayout is the Data API TIMESTAMP literal format.
const TimestampLayout = "2006-01-02 15:04:05.000"

// ParamName returns the named marker for the i-th positional argument.
func ParamName(i int) string { return "p" + strconv.Itoa(i) }

// Encode converts positional arguments into named parameters p0..pN-1.
// An argument with no wire variant fails the whole call with *domain.EncodeError.
func Encode(args []any) ([]types.SqlParameter, error) {
	params := make([]types.SqlParameter, len(args))
	for i, arg := range args {
		p, err := encodeValue(arg)
		if err != nil {
			return nil, &domain.EncodeError{Index: i, Type: fmt.Sprintf("%T", arg), Err: err}
		}
		p.Name = aws.String(ParamName(i))
		params[i] = p
	}
	return params, nil
}

func encodeValue(v any) (types.SqlParameter, error) {
	// bool first: named bool kinds must never fall into the integer branch.
	switch x := v.(type) {
	case nil:
		return null(), nil
	case bool:
		return field(&types.FieldMemberBooleanValue{Value: x}), nil
	case string:
		return field(&types.FieldMemberStringValue{Value: x}), nil
	case decimal.Decimal:
		return hinted(x.String(), types.TypeHintDecimal), nil
	case time.Time:
		return hinted(x.UTC().Format(TimestampLayout), types.TypeHintTimestamp), nil
	case []byte:
		return field(&types.FieldMemberBlobValue{Value: x}), nil
	case json.RawMessage:
		return field(&types.FieldMemberStringValue{Value: string(x)}), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return null(), nil
		}
		return encodeValue(rv.Elem().Interface())
	case reflect.Bool:
		return field(&types.FieldMemberBooleanValue{Value: rv.Bool()}), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field(&types.FieldMemberLongValue{Value: rv.Int()}), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return types.SqlParameter{}, fmt.Errorf("value %d overflows int64", u)
		}
		return field(&types.FieldMemberLongValue{Value: int64(u)}), nil
	case reflect.Float32, reflect.Float64:
		return field(&types.FieldMemberDoubleValue{Value: rv.Float()}), nil
	case reflect.String:
		return field(&types.FieldMemberStringValue{Value: rv.String()}), nil
	case reflect.Slice, reflect.Array, reflect.Map:
		if rv.Kind() != reflect.Array && rv.IsNil() {
			return null(), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return types.SqlParameter{}, fmt.Errorf("marshal json: %w", err)
		}
		return field(&types.FieldMemberStringValue{Value: string(data)}), nil
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return types.SqlParameter{}, fmt.Errorf("no wire variant for kind %s", rv.Kind())
	}

	if s, ok := v.(fmt.Stringer); ok {
		return field(&types.FieldMemberStringValue{Value: s.String()}), nil
	}
	return field(&types.FieldMemberStringValue{Value: fmt.Sprint(v)}), nil
}

func field(f types.Field) types.SqlParameter {
	return types.SqlParameter{Value: f}
}

func null() types.SqlParameter {
	return field(&types.FieldMemberIsNull{Value: true})
}

func hinted(s string, hint types.TypeHint) types.SqlParameter {
	return types.SqlParameter{Value: &types.FieldMemberStringValue{Value: s}, TypeHint: hint}
}
