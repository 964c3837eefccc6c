package sigil

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Symbol is a deferred name. Evaluating a symbol looks it up in the scope
// chain; an unevaluated symbol behaves like a string, so macros can build
// new names by concatenation (Symbol("quu") + "x").
type Symbol string

func (s Symbol) String() string { return string(s) }

// Quote defers its item: evaluating a Quote yields the item unevaluated.
type Quote struct {
	Item any
}

func (q Quote) String() string { return "'" + ExprString(q.Item) }

// Unquote marks a hole in a quasiquote template. Evaluating the expanded
// template fills the hole with the evaluated item.
type Unquote struct {
	Item any
}

func (u Unquote) String() string { return "~" + ExprString(u.Item) }

// UnquoteSplice marks a hole whose item must evaluate to a call; the
// call's entries are merged into the surrounding template call.
type UnquoteSplice struct {
	Item any
}

func (u UnquoteSplice) String() string { return "~@" + ExprString(u.Item) }

// Eval evaluates one expression in the given scope. Calls apply their
// target, symbols resolve through the scope chain, quotes unwrap one
// level, and any other value is a literal evaluating to itself. Unquote
// markers are only meaningful inside quasiquote templates; one reaching
// Eval is a protocol error.
func Eval(x any, s *Scope) (any, error) {
	switch v := x.(type) {
	case *Call:
		return v.Eval(s)
	case Symbol:
		return s.Lookup(string(v))
	case Quote:
		return v.Item, nil
	case Unquote:
		return nil, &ProtocolError{Msg: "unquote outside quasiquote"}
	case UnquoteSplice:
		return nil, &ProtocolError{Msg: "unquote-splice outside quasiquote"}
	default:
		return x, nil
	}
}

// ExprString renders a value in the form the reader accepts. Lists and
// maps render as the calls that would rebuild them.
func ExprString(x any) string {
	switch v := x.(type) {
	case nil:
		return "nil"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case Symbol:
		return string(v)
	case []any:
		parts := make([]string, len(v)+1)
		parts[0] = "list"
		for i, e := range v {
			parts[i+1] = ExprString(e)
		}
		return "(" + strings.Join(parts, " ") + ")"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys)*2+1)
		parts = append(parts, "dict")
		for _, k := range keys {
			parts = append(parts, strconv.Quote(k), ExprString(v[k]))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
