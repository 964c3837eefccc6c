package sigil

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/nukata/goarith"
)

// Builtins returns a fresh root scope holding the standard prelude: the
// data builtins, the call constructors shared with quasiquote expansion,
// and the standard macros.
func Builtins() *Scope {
	s := NewScope(nil, nil)
	for name, fn := range prelude() {
		s.Define(name, NewBuiltin(name, fn))
	}
	for _, ctor := range []*Fn{callCtor, concatCtor, kwpairCtor, unquoteCtor, spliceCtor} {
		s.Define(ctor.Name(), ctor)
	}
	for _, m := range standardMacros() {
		s.Define(m.Name(), m)
	}
	return s
}

// prelude returns the data primitive builtins.
func prelude() map[string]Builtin {
	return map[string]Builtin{
		// Arithmetic
		"add": builtinAdd,
		"sub": builtinSub,
		"mul": builtinMul,
		"div": builtinDiv,
		"mod": builtinMod,
		// Comparison
		"lt":     builtinLt,
		"gt":     builtinGt,
		"le":     builtinLe,
		"ge":     builtinGe,
		"num-eq": builtinNumEq,
		"eq":     builtinEq,
		"not":    builtinNot,
		// List
		"list":    builtinList,
		"nth":     builtinNth,
		"head":    builtinHead,
		"rest":    builtinRest,
		"append":  builtinAppend,
		"cons":    builtinCons,
		"sort-by": builtinSortBy,
		// Map
		"dict": builtinDict,
		"get":  builtinGet,
		"put":  builtinPut,
		"keys": builtinKeys,
		"has?": builtinHas,
		"len":  builtinLen,
		// String
		"str-concat": builtinStrConcat,
		"split-once": builtinSplitOnce,
		"to-string":  builtinToString,
		// Call surgery
		"with-kw":     builtinWithKw,
		"uncons-head": builtinUnconsHead,
		"uncons-kw":   builtinUnconsKw,
		"call-items":  builtinCallItems,
		"call-kw":     builtinCallKw,
		// Misc
		"type":     builtinType,
		"apply":    builtinApply,
		"do":       builtinDo,
		"identity": builtinIdentity,
		"print":    builtinPrint,
		"println":  builtinPrintln,
		"gensym":   builtinGensym,
		"assert":   builtinAssert,
		"read":     builtinRead,
	}
}

// typeName names a host value's type for error messages and the type
// builtin.
func typeName(x any) string {
	switch x.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case int64, int:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case Symbol:
		return "symbol"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	case *Call:
		return "call"
	case *Fn:
		return "fn"
	case *Macro:
		return "macro"
	case *Scope:
		return "scope"
	case Quote:
		return "quote"
	case Unquote:
		return "unquote"
	case UnquoteSplice:
		return "unquote-splice"
	default:
		return fmt.Sprintf("%T", x)
	}
}

// --- Arithmetic ---

// numberArg promotes a host value into the numeric tower.
func numberArg(name string, x any) (goarith.Number, error) {
	if n := goarith.AsNumber(x); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%s: expected number, got %s", name, typeName(x))
}

func twoNumbers(name string, args []any) (goarith.Number, goarith.Number, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s: expected 2 args, got %d", name, len(args))
	}
	a, err := numberArg(name, args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := numberArg(name, args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// normalize returns tower results to the host's native numeric types.
// Results too wide for int64 stay goarith values, which still print and
// compare.
func normalize(n goarith.Number) any {
	switch v := n.(type) {
	case goarith.Int32:
		return int64(v)
	case goarith.Int64:
		return int64(v)
	case goarith.Float64:
		return float64(v)
	default:
		return n
	}
}

func isIntValue(x any) bool {
	switch x.(type) {
	case int64, int:
		return true
	}
	return false
}

func builtinAdd(args []any) (any, error) {
	a, b, err := twoNumbers("add", args)
	if err != nil {
		return nil, err
	}
	return normalize(a.Add(b)), nil
}

func builtinSub(args []any) (any, error) {
	a, b, err := twoNumbers("sub", args)
	if err != nil {
		return nil, err
	}
	return normalize(a.Sub(b)), nil
}

func builtinMul(args []any) (any, error) {
	a, b, err := twoNumbers("mul", args)
	if err != nil {
		return nil, err
	}
	return normalize(a.Mul(b)), nil
}

func builtinDiv(args []any) (any, error) {
	a, b, err := twoNumbers("div", args)
	if err != nil {
		return nil, err
	}
	if b.Cmp(goarith.Int64(0)) == 0 {
		return nil, fmt.Errorf("div: division by zero")
	}
	if isIntValue(args[0]) && isIntValue(args[1]) {
		q, _ := a.QuoRem(b)
		return normalize(q), nil
	}
	return normalize(a.RQuo(b)), nil
}

func builtinMod(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("mod: expected 2 args, got %d", len(args))
	}
	if !isIntValue(args[0]) || !isIntValue(args[1]) {
		return nil, fmt.Errorf("mod: expected int args, got %s and %s", typeName(args[0]), typeName(args[1]))
	}
	a, b, err := twoNumbers("mod", args)
	if err != nil {
		return nil, err
	}
	if b.Cmp(goarith.Int64(0)) == 0 {
		return nil, fmt.Errorf("mod: division by zero")
	}
	_, r := a.QuoRem(b)
	return normalize(r), nil
}

// --- Comparison ---

func typeRank(x any) int {
	switch x.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, int, float64:
		return 2
	case string:
		return 3
	case Symbol:
		return 4
	case []any:
		return 5
	case map[string]any:
		return 6
	case *Call:
		return 7
	case *Fn:
		return 8
	default:
		return 99
	}
}

// compareTwo orders two host values: numbers cross-compare through the
// tower, mismatched types order by rank, same types order naturally.
func compareTwo(a, b any) (int, error) {
	if na := goarith.AsNumber(a); na != nil {
		if nb := goarith.AsNumber(b); nb != nil {
			return na.Cmp(nb), nil
		}
	}
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1, nil
		}
		return 1, nil
	}
	switch av := a.(type) {
	case nil:
		return 0, nil
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0, nil
		}
		if !av {
			return -1, nil
		}
		return 1, nil
	case string:
		return strings.Compare(av, b.(string)), nil
	case Symbol:
		return strings.Compare(string(av), string(b.(Symbol))), nil
	case []any:
		bs := b.([]any)
		for i := 0; i < len(av) && i < len(bs); i++ {
			cmp, err := compareTwo(av[i], bs[i])
			if err != nil {
				return 0, err
			}
			if cmp != 0 {
				return cmp, nil
			}
		}
		if len(av) < len(bs) {
			return -1, nil
		}
		if len(av) > len(bs) {
			return 1, nil
		}
		return 0, nil
	case map[string]any:
		bm := b.(map[string]any)
		keySet := make(map[string]bool, len(av)+len(bm))
		for k := range av {
			keySet[k] = true
		}
		for k := range bm {
			keySet[k] = true
		}
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			x, xok := av[k]
			y, yok := bm[k]
			if xok && !yok {
				return 1, nil
			}
			if !xok && yok {
				return -1, nil
			}
			cmp, err := compareTwo(x, y)
			if err != nil {
				return 0, err
			}
			if cmp != 0 {
				return cmp, nil
			}
		}
		return 0, nil
	case *Call:
		return strings.Compare(av.String(), b.(*Call).String()), nil
	case *Fn:
		return strings.Compare(av.String(), b.(*Fn).String()), nil
	default:
		return 0, fmt.Errorf("cannot compare %s values", typeName(a))
	}
}

func compareArgs(name string, args []any) (int, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("%s: expected 2 args, got %d", name, len(args))
	}
	return compareTwo(args[0], args[1])
}

func builtinLt(args []any) (any, error) {
	cmp, err := compareArgs("lt", args)
	if err != nil {
		return nil, err
	}
	return cmp < 0, nil
}

func builtinGt(args []any) (any, error) {
	cmp, err := compareArgs("gt", args)
	if err != nil {
		return nil, err
	}
	return cmp > 0, nil
}

func builtinLe(args []any) (any, error) {
	cmp, err := compareArgs("le", args)
	if err != nil {
		return nil, err
	}
	return cmp <= 0, nil
}

func builtinGe(args []any) (any, error) {
	cmp, err := compareArgs("ge", args)
	if err != nil {
		return nil, err
	}
	return cmp >= 0, nil
}

// builtinNumEq compares numerically, so 1 and 1.0 are equal where eq
// keeps them apart.
func builtinNumEq(args []any) (any, error) {
	a, b, err := twoNumbers("num-eq", args)
	if err != nil {
		return nil, err
	}
	return a.Cmp(b) == 0, nil
}

func builtinEq(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("eq: expected 2 args, got %d", len(args))
	}
	return valuesEqual(args[0], args[1]), nil
}

// valuesEqual is deep structural equality. Ints and floats are distinct;
// keyword entries of a call compare as a mapping, positional entries in
// order.
func valuesEqual(a, b any) bool {
	if ai, ok := a.(int); ok {
		a = int64(ai)
	}
	if bi, ok := b.(int); ok {
		b = int64(bi)
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case Symbol:
		bv, ok := b.(Symbol)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !valuesEqual(x, y) {
				return false
			}
		}
		return true
	case *Call:
		bv, ok := b.(*Call)
		if !ok || av.NumItems() != bv.NumItems() || av.NumKw() != bv.NumKw() {
			return false
		}
		for i := 0; i < av.NumItems(); i++ {
			if !valuesEqual(av.At(i), bv.At(i)) {
				return false
			}
		}
		for _, e := range av.Kw() {
			y, ok := bv.KwValue(e.Name)
			if !ok || !valuesEqual(e.Value, y) {
				return false
			}
		}
		return true
	case Quote:
		bv, ok := b.(Quote)
		return ok && valuesEqual(av.Item, bv.Item)
	case Unquote:
		bv, ok := b.(Unquote)
		return ok && valuesEqual(av.Item, bv.Item)
	case UnquoteSplice:
		bv, ok := b.(UnquoteSplice)
		return ok && valuesEqual(av.Item, bv.Item)
	default:
		if reflect.TypeOf(a) != reflect.TypeOf(b) {
			return false
		}
		if !reflect.TypeOf(a).Comparable() {
			return false
		}
		return a == b
	}
}

func builtinNot(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("not: expected 1 arg, got %d", len(args))
	}
	return !Truthy(args[0]), nil
}

// --- List ---

func builtinList(args []any) (any, error) {
	return args, nil
}

func builtinNth(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("nth: expected 2 args, got %d", len(args))
	}
	elems, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("nth: first arg must be list, got %s", typeName(args[0]))
	}
	idx, ok := args[1].(int64)
	if !ok {
		return nil, fmt.Errorf("nth: second arg must be int, got %s", typeName(args[1]))
	}
	if idx < 0 || idx >= int64(len(elems)) {
		return nil, nil
	}
	return elems[idx], nil
}

func builtinHead(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("head: expected 1 arg, got %d", len(args))
	}
	elems, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("head: expected list, got %s", typeName(args[0]))
	}
	if len(elems) == 0 {
		return nil, nil
	}
	return elems[0], nil
}

func builtinRest(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("rest: expected 1 arg, got %d", len(args))
	}
	elems, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("rest: expected list, got %s", typeName(args[0]))
	}
	if len(elems) == 0 {
		return []any{}, nil
	}
	return elems[1:], nil
}

func builtinAppend(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("append: expected 2 args, got %d", len(args))
	}
	a, aok := args[0].([]any)
	b, bok := args[1].([]any)
	if !aok || !bok {
		return nil, fmt.Errorf("append: expected two lists, got %s and %s", typeName(args[0]), typeName(args[1]))
	}
	out := make([]any, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out, nil
}

// builtinCons prepends to a list, or prepends a new target to a call.
func builtinCons(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("cons: expected 2 args, got %d", len(args))
	}
	switch tail := args[1].(type) {
	case []any:
		out := make([]any, len(tail)+1)
		out[0] = args[0]
		copy(out[1:], tail)
		return out, nil
	case *Call:
		return Cons(args[0], tail), nil
	default:
		return nil, fmt.Errorf("cons: second arg must be list or call, got %s", typeName(args[1]))
	}
}

func builtinSortBy(args []any) (any, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("sort-by: expected 2-3 args (fn [dir] list), got %d", len(args))
	}
	keyFn := args[0]
	desc := false
	listIdx := 1
	if len(args) == 3 {
		dir, ok := args[1].(string)
		if !ok || (dir != "asc" && dir != "desc") {
			return nil, fmt.Errorf("sort-by: dir must be \"asc\" or \"desc\"")
		}
		desc = dir == "desc"
		listIdx = 2
	}
	elems, ok := args[listIdx].([]any)
	if !ok {
		return nil, fmt.Errorf("sort-by: last arg must be list, got %s", typeName(args[listIdx]))
	}
	type keyed struct {
		val any
		key any
	}
	items := make([]keyed, len(elems))
	for i, elem := range elems {
		k, err := applyTarget(keyFn, []any{elem}, nil)
		if err != nil {
			return nil, err
		}
		items[i] = keyed{val: elem, key: k}
	}
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := compareTwo(items[i].key, items[j].key)
		if err != nil {
			sortErr = err
			return false
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it.val
	}
	return out, nil
}

// --- Map ---

func builtinDict(args []any) (any, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("dict: expected even number of args (key-value pairs), got %d", len(args))
	}
	m := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key must be string, got %s", typeName(args[i]))
		}
		m[k] = args[i+1]
	}
	return m, nil
}

// builtinGet reads a map by string key, or a call through its mapping
// view (int keys index positional entries, string keys name keyword
// entries). Missing keys yield nil.
func builtinGet(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("get: expected 2 args, got %d", len(args))
	}
	switch v := args[0].(type) {
	case map[string]any:
		k, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("get: map key must be string, got %s", typeName(args[1]))
		}
		return v[k], nil
	case *Call:
		out, _ := v.Get(args[1])
		return out, nil
	default:
		return nil, fmt.Errorf("get: expected map or call, got %s", typeName(args[0]))
	}
}

func builtinPut(args []any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("put: expected 3 args, got %d", len(args))
	}
	orig, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("put: first arg must be map, got %s", typeName(args[0]))
	}
	k, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("put: key must be string, got %s", typeName(args[1]))
	}
	m := make(map[string]any, len(orig)+1)
	for key, v := range orig {
		m[key] = v
	}
	m[k] = args[2]
	return m, nil
}

func builtinKeys(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("keys: expected 1 arg, got %d", len(args))
	}
	switch v := args[0].(type) {
	case map[string]any:
		names := make([]string, 0, len(v))
		for k := range v {
			names = append(names, k)
		}
		sort.Strings(names)
		out := make([]any, len(names))
		for i, k := range names {
			out[i] = k
		}
		return out, nil
	case *Call:
		return v.Keys(), nil
	default:
		return nil, fmt.Errorf("keys: expected map or call, got %s", typeName(args[0]))
	}
}

func builtinHas(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("has?: expected 2 args, got %d", len(args))
	}
	switch v := args[0].(type) {
	case map[string]any:
		k, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("has?: map key must be string, got %s", typeName(args[1]))
		}
		_, present := v[k]
		return present, nil
	case *Call:
		return v.Contains(args[1]), nil
	default:
		return nil, fmt.Errorf("has?: expected map or call, got %s", typeName(args[0]))
	}
}

func builtinLen(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len: expected 1 arg, got %d", len(args))
	}
	switch v := args[0].(type) {
	case []any:
		return int64(len(v)), nil
	case map[string]any:
		return int64(len(v)), nil
	case string:
		return int64(len(v)), nil
	case *Call:
		return int64(v.Len()), nil
	default:
		return nil, fmt.Errorf("len: expected list, map, string or call, got %s", typeName(args[0]))
	}
}

// --- String ---

func builtinStrConcat(args []any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("str-concat: expected at least 1 arg, got 0")
	}
	var sb strings.Builder
	for _, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, fmt.Errorf("str-concat: expected string, got %s", typeName(a))
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

func builtinSplitOnce(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("split-once: expected 2 args, got %d", len(args))
	}
	needle, nok := args[0].(string)
	haystack, hok := args[1].(string)
	if !nok || !hok {
		return nil, fmt.Errorf("split-once: expected two strings, got %s and %s", typeName(args[0]), typeName(args[1]))
	}
	if needle == "" {
		return nil, fmt.Errorf("split-once: needle must not be empty")
	}
	idx := strings.Index(haystack, needle)
	if idx == -1 {
		return nil, nil
	}
	return []any{haystack[:idx], haystack[idx+len(needle):]}, nil
}

func builtinToString(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("to-string: expected 1 arg, got %d", len(args))
	}
	if s, ok := args[0].(string); ok {
		return s, nil
	}
	return ExprString(args[0]), nil
}

// --- Call surgery ---

func callArg(name string, args []any, i int) (*Call, error) {
	c, ok := args[i].(*Call)
	if !ok {
		return nil, fmt.Errorf("%s: expected call, got %s", name, typeName(args[i]))
	}
	return c, nil
}

func builtinWithKw(args []any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("with-kw: expected 3 args, got %d", len(args))
	}
	c, err := callArg("with-kw", args, 0)
	if err != nil {
		return nil, err
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("with-kw: name must be a string, got %s", typeName(args[1]))
	}
	return c.WithKw(name, args[2]), nil
}

// builtinUnconsHead splits a call into (list head rest), or nil when it
// has no positional entries.
func builtinUnconsHead(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("uncons-head: expected 1 arg, got %d", len(args))
	}
	c, err := callArg("uncons-head", args, 0)
	if err != nil {
		return nil, err
	}
	head, rest, ok := c.UnconsHead()
	if !ok {
		return nil, nil
	}
	return []any{head, rest}, nil
}

// builtinUnconsKw splits a call into (list name value rest) using the
// first-inserted keyword entry, or nil when it has none.
func builtinUnconsKw(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("uncons-kw: expected 1 arg, got %d", len(args))
	}
	c, err := callArg("uncons-kw", args, 0)
	if err != nil {
		return nil, err
	}
	name, value, rest, ok := c.UnconsKw()
	if !ok {
		return nil, nil
	}
	return []any{name, value, rest}, nil
}

func builtinCallItems(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("call-items: expected 1 arg, got %d", len(args))
	}
	c, err := callArg("call-items", args, 0)
	if err != nil {
		return nil, err
	}
	return c.Items(), nil
}

func builtinCallKw(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("call-kw: expected 1 arg, got %d", len(args))
	}
	c, err := callArg("call-kw", args, 0)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any, c.NumKw())
	for _, e := range c.Kw() {
		m[e.Name] = e.Value
	}
	return m, nil
}

// --- Misc ---

func builtinType(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type: expected 1 arg, got %d", len(args))
	}
	return typeName(args[0]), nil
}

// builtinApply calls a target with an argument pack: a list supplies
// positional arguments, a call supplies both positional and keyword.
func builtinApply(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("apply: expected 2 args (target pack), got %d", len(args))
	}
	switch pack := args[1].(type) {
	case []any:
		return applyTarget(args[0], pack, nil)
	case *Call:
		var kw map[string]any
		if pack.NumKw() > 0 {
			kw = make(map[string]any, pack.NumKw())
			for _, e := range pack.Kw() {
				kw[e.Name] = e.Value
			}
		}
		return applyTarget(args[0], pack.Items(), kw)
	default:
		return nil, fmt.Errorf("apply: second arg must be list or call, got %s", typeName(args[1]))
	}
}

// builtinDo relies on argument evaluation order: all entries have been
// evaluated left to right by the time it runs, so it just returns the
// last result.
func builtinDo(args []any) (any, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("do: expected at least one expression")
	}
	return args[len(args)-1], nil
}

func builtinIdentity(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("identity: expected 1 arg, got %d", len(args))
	}
	return args[0], nil
}

// displayString renders for output: strings bare, everything else in
// reader syntax.
func displayString(x any) string {
	if s, ok := x.(string); ok {
		return s
	}
	return ExprString(x)
}

func builtinPrint(args []any) (any, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = displayString(a)
	}
	fmt.Print(strings.Join(parts, " "))
	return nil, nil
}

func builtinPrintln(args []any) (any, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = displayString(a)
	}
	fmt.Println(strings.Join(parts, " "))
	return nil, nil
}

func builtinGensym(args []any) (any, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("gensym: expected at most 1 arg, got %d", len(args))
	}
	prefix := ""
	if len(args) == 1 {
		switch v := args[0].(type) {
		case string:
			prefix = v
		case Symbol:
			prefix = string(v)
		default:
			return nil, fmt.Errorf("gensym: prefix must be string or symbol, got %s", typeName(args[0]))
		}
	}
	return Gensym(prefix), nil
}

// builtinAssert returns true when the condition is truthy, otherwise an
// AssertError with the message.
func builtinAssert(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("assert: expected 2 args (condition message), got %d", len(args))
	}
	msg, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("assert: message must be string, got %s", typeName(args[1]))
	}
	if Truthy(args[0]) {
		return true, nil
	}
	return nil, &AssertError{Message: msg}
}

func builtinRead(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("read: expected 1 arg, got %d", len(args))
	}
	src, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("read: expected string, got %s", typeName(args[0]))
	}
	return Read(src)
}
