package sigil

import (
	"fmt"
	"strings"
)

// ToWire converts a host value to a JSON-safe value. Symbols travel as
// strings with a "sym:" prefix and trees as reader syntax with an
// "expr:" prefix; plain strings carrying those prefixes do not survive
// a round trip. Functions, macros and scopes do not serialize.
func ToWire(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, int64, float64, string:
		return val, nil
	case int:
		return int64(val), nil
	case Symbol:
		return "sym:" + string(val), nil
	case *Call:
		return "expr:" + ExprString(val), nil
	case Quote:
		return "expr:" + ExprString(val), nil
	case Unquote:
		return "expr:" + ExprString(val), nil
	case UnquoteSplice:
		return "expr:" + ExprString(val), nil
	case []any:
		arr := make([]any, len(val))
		for i, e := range val {
			j, err := ToWire(e)
			if err != nil {
				return nil, err
			}
			arr[i] = j
		}
		return arr, nil
	case map[string]any:
		obj := make(map[string]any, len(val))
		for k, e := range val {
			j, err := ToWire(e)
			if err != nil {
				return nil, err
			}
			obj[k] = j
		}
		return obj, nil
	case *Fn:
		return nil, fmt.Errorf("cannot serialize fn to JSON")
	case *Macro:
		return nil, fmt.Errorf("cannot serialize macro to JSON")
	case *Scope:
		return nil, fmt.Errorf("cannot serialize scope to JSON")
	default:
		return nil, fmt.Errorf("cannot serialize %s to JSON", typeName(v))
	}
}

// FromWire converts a JSON value back to a host value, undoing the
// markers ToWire applies. Unparseable expr: strings stay strings.
func FromWire(v any) any {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) && val >= -1<<53 && val <= 1<<53 {
			return int64(val)
		}
		return val
	case string:
		if strings.HasPrefix(val, "sym:") {
			return Symbol(val[4:])
		}
		if strings.HasPrefix(val, "expr:") {
			expr, err := Read(val[5:])
			if err != nil {
				return val
			}
			return expr
		}
		return val
	case []any:
		elems := make([]any, len(val))
		for i, e := range val {
			elems[i] = FromWire(e)
		}
		return elems
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = FromWire(e)
		}
		return m
	default:
		return v
	}
}
