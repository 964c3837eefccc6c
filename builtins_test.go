package sigil

import (
	"strings"
	"testing"
)

// --- Arithmetic ---

func TestBuiltinAdd(t *testing.T) {
	testEval(t, "(add 1 2)", int64(3))
	testEval(t, "(add 1.5 2)", 3.5)
	testEval(t, "(add 1 2.5)", 3.5)
}

func TestBuiltinSubMul(t *testing.T) {
	testEval(t, "(sub 10 4)", int64(6))
	testEval(t, "(mul 6 7)", int64(42))
	testEval(t, "(mul 1.5 2)", 3.0)
}

func TestBuiltinDiv(t *testing.T) {
	testEval(t, "(div 7 2)", int64(3)) // int division truncates
	testEval(t, "(div -7 2)", int64(-3))
	testEval(t, "(div 7 2.0)", 3.5)
	testEval(t, "(div 7.0 2)", 3.5)
}

func TestBuiltinDivByZero(t *testing.T) {
	err := testEvalError(t, "(div 1 0)")
	if !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("expected zero error, got %v", err)
	}
}

func TestBuiltinMod(t *testing.T) {
	testEval(t, "(mod 7 3)", int64(1))
	testEval(t, "(mod -7 3)", int64(-1))
	testEvalError(t, "(mod 7 0)")
	testEvalError(t, "(mod 1.5 2)")
}

func TestBuiltinArithTypeError(t *testing.T) {
	err := testEvalError(t, `(add 1 "x")`)
	if !strings.Contains(err.Error(), "add: expected number, got string") {
		t.Fatalf("unexpected message: %v", err)
	}
}

// --- Comparison ---

func TestBuiltinCompare(t *testing.T) {
	testEval(t, "(lt 1 2)", true)
	testEval(t, "(lt 2 1)", false)
	testEval(t, "(lt 1 1.5)", true) // cross-type numeric
	testEval(t, "(gt 2 1)", true)
	testEval(t, "(le 1 1)", true)
	testEval(t, "(ge 1 2)", false)
	testEval(t, `(lt "a" "b")`, true)
	testEval(t, "(lt (list 1 2) (list 1 3))", true)
	testEval(t, "(lt (list 1) (list 1 0))", true)
}

func TestBuiltinNumEq(t *testing.T) {
	testEval(t, "(num-eq 1 1.0)", true)
	testEval(t, "(num-eq 1 2)", false)
	testEval(t, "(eq 1 1.0)", false) // eq keeps int and float apart
}

func TestBuiltinEq(t *testing.T) {
	testEval(t, "(eq 1 1)", true)
	testEval(t, `(eq "a" "a")`, true)
	testEval(t, "(eq nil nil)", true)
	testEval(t, "(eq (list 1 2) (list 1 2))", true)
	testEval(t, "(eq (list 1 2) (list 1))", false)
	testEval(t, `(eq (dict "a" 1) (dict "a" 1))`, true)
	testEval(t, "(eq 'x 'x)", true)
	testEval(t, `(eq 'x "x")`, false)
	testEval(t, "(eq '(f 1 :k 2) '(f 1 :k 2))", true)
	testEval(t, "(eq '(f :a 1 :b 2) '(f :b 2 :a 1))", true) // keywords compare as a mapping
	testEval(t, "(eq '(f 1) '(f 2))", false)
}

func TestBuiltinNot(t *testing.T) {
	testEval(t, "(not nil)", true)
	testEval(t, "(not 0)", true)
	testEval(t, "(not 1)", false)
	testEval(t, `(not "")`, true)
}

// --- Lists ---

func TestBuiltinListNth(t *testing.T) {
	testEval(t, "(list 1 2 3)", []any{int64(1), int64(2), int64(3)})
	testEval(t, "(list)", []any{})
	testEval(t, "(nth (list 10 20) 1)", int64(20))
	testEval(t, "(nth (list 10 20) 5)", nil)
	testEval(t, "(nth (list 10 20) -1)", nil)
}

func TestBuiltinHeadRest(t *testing.T) {
	testEval(t, "(head (list 1 2))", int64(1))
	testEval(t, "(head (list))", nil)
	testEval(t, "(rest (list 1 2 3))", []any{int64(2), int64(3)})
	testEval(t, "(rest (list))", []any{})
}

func TestBuiltinAppend(t *testing.T) {
	testEval(t, "(append (list 1) (list 2 3))", []any{int64(1), int64(2), int64(3)})
	testEval(t, "(append (list) (list))", []any{})
}

func TestBuiltinCons(t *testing.T) {
	testEval(t, "(cons 0 (list 1 2))", []any{int64(0), int64(1), int64(2)})
	testEval(t, "(cons 'f '(1 2))", NewCall(Symbol("f"), int64(1), int64(2)))
	err := testEvalError(t, "(cons 1 2)")
	if !strings.Contains(err.Error(), "must be list or call") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestBuiltinSortBy(t *testing.T) {
	testEval(t, "(sort-by identity (list 3 1 2))", []any{int64(1), int64(2), int64(3)})
	testEval(t, `(sort-by identity "desc" (list 1 3 2))`, []any{int64(3), int64(2), int64(1)})
	testEval(t, `(sort-by (fn (m) (get m "k")) (list (dict "k" 2) (dict "k" 1)))`,
		[]any{map[string]any{"k": int64(1)}, map[string]any{"k": int64(2)}})
	testEvalError(t, `(sort-by identity "sideways" (list 1))`)
}

// --- Maps ---

func TestBuiltinDictGet(t *testing.T) {
	testEval(t, `(get (dict "a" 1 "b" 2) "a")`, int64(1))
	testEval(t, `(get (dict "a" 1) "missing")`, nil)
	testEvalError(t, `(dict "a")`)
	testEvalError(t, `(dict 1 2)`)
}

func TestBuiltinGetCallMappingView(t *testing.T) {
	testEval(t, "(get '(f 10 :k 20) 0)", Symbol("f"))
	testEval(t, "(get '(f 10 :k 20) 1)", int64(10))
	testEval(t, `(get '(f 10 :k 20) "k")`, int64(20))
	testEval(t, "(get '(f) 9)", nil)
}

func TestBuiltinPut(t *testing.T) {
	s := Builtins()
	evalIn(t, s, `(setq m (dict "a" 1))`)
	testEvalIn(t, s, `(put m "b" 2)`, map[string]any{"a": int64(1), "b": int64(2)})
	// The original map is untouched.
	testEvalIn(t, s, "m", map[string]any{"a": int64(1)})
}

func TestBuiltinKeys(t *testing.T) {
	testEval(t, `(keys (dict "b" 2 "a" 1))`, []any{"a", "b"})
	testEval(t, "(keys '(f 1 :k 2))", []any{0, 1, "k"})
}

func TestBuiltinHas(t *testing.T) {
	testEval(t, `(has? (dict "a" 1) "a")`, true)
	testEval(t, `(has? (dict "a" 1) "b")`, false)
	testEval(t, `(has? '(f :k 1) "k")`, true)
	testEval(t, "(has? '(f :k 1) 0)", true)
	testEval(t, "(has? '(f :k 1) 5)", false)
}

func TestBuiltinLen(t *testing.T) {
	testEval(t, "(len (list 1 2 3))", int64(3))
	testEval(t, `(len (dict "a" 1))`, int64(1))
	testEval(t, `(len "hello")`, int64(5))
	testEval(t, "(len '(f 1 :k 2))", int64(3))
	testEvalError(t, "(len 42)")
}

// --- Strings ---

func TestBuiltinStrConcat(t *testing.T) {
	testEval(t, `(str-concat "hello" " " "world")`, "hello world")
	testEval(t, `(str-concat "one")`, "one")
	testEvalError(t, `(str-concat "a" 1)`)
}

func TestBuiltinSplitOnce(t *testing.T) {
	testEval(t, `(split-once "=" "a=b=c")`, []any{"a", "b=c"})
	testEval(t, `(split-once "!" "abc")`, nil)
	testEval(t, `(split-once "ab" "abc")`, []any{"", "c"})
	testEvalError(t, `(split-once "" "abc")`)
}

func TestBuiltinToString(t *testing.T) {
	testEval(t, "(to-string 42)", "42")
	testEval(t, "(to-string nil)", "nil")
	testEval(t, `(to-string "raw")`, "raw") // strings pass through unquoted
	testEval(t, "(to-string '(add 1 2))", "(add 1 2)")
	testEval(t, "(to-string (list 1 2))", "(list 1 2)")
}

// --- Call surgery ---

func TestBuiltinWithKw(t *testing.T) {
	testEval(t, `(with-kw '(f) "k" 7)`, NewCall(Symbol("f")).WithKw("k", int64(7)))
	testEval(t, `(with-kw '(f :k 1) "k" 2)`, NewCall(Symbol("f")).WithKw("k", int64(2)))
	testEvalError(t, `(with-kw (list) "k" 7)`)
}

func TestBuiltinUnconsHead(t *testing.T) {
	testEval(t, "(uncons-head '(f 1 :k 2))",
		[]any{Symbol("f"), NewCall(int64(1)).WithKw("k", int64(2))})
	testEval(t, "(uncons-head '())", nil)
}

func TestBuiltinUnconsKw(t *testing.T) {
	testEval(t, "(uncons-kw '(f :a 1 :b 2))",
		[]any{"a", int64(1), NewCall(Symbol("f")).WithKw("b", int64(2))})
	testEval(t, "(uncons-kw '(f 1))", nil)
}

func TestBuiltinCallItemsKw(t *testing.T) {
	testEval(t, "(call-items '(f 1 2 :k 3))", []any{Symbol("f"), int64(1), int64(2)})
	testEval(t, "(call-kw '(f :a 1 :b 2))", map[string]any{"a": int64(1), "b": int64(2)})
}

// --- Misc ---

func TestBuiltinType(t *testing.T) {
	testEval(t, "(type nil)", "nil")
	testEval(t, "(type 1)", "int")
	testEval(t, "(type 1.5)", "float")
	testEval(t, `(type "s")`, "string")
	testEval(t, "(type 'x)", "symbol")
	testEval(t, "(type (list))", "list")
	testEval(t, "(type (dict))", "map")
	testEval(t, "(type '(f))", "call")
	testEval(t, "(type add)", "fn")
	testEval(t, "(type if)", "macro")
	testEval(t, "(type (scope))", "scope")
	testEval(t, "(type ''x)", "quote")
}

func TestBuiltinApply(t *testing.T) {
	testEval(t, "(apply add (list 20 22))", int64(42))
	testEval(t, "(apply add '(20 22))", int64(42))
	testEvalError(t, "(apply add 5)")
}

func TestBuiltinApplyCallPack(t *testing.T) {
	s := Builtins()
	s.Define("echo-kw", NewFn("echo-kw", func(args []any, kw map[string]any) (any, error) {
		return []any{args, kw["k"]}, nil
	}))
	testEvalIn(t, s, "(apply echo-kw '(1 :k 2))",
		[]any{[]any{int64(1)}, int64(2)})
}

func TestBuiltinDo(t *testing.T) {
	testEval(t, "(do 1 2 3)", int64(3))
	testEvalError(t, "(do)")
}

func TestBuiltinIdentity(t *testing.T) {
	testEval(t, "(identity 42)", int64(42))
	testEval(t, "(identity '(f))", NewCall(Symbol("f")))
}

func TestBuiltinAssert(t *testing.T) {
	testEval(t, `(assert true "fine")`, true)
	testEval(t, `(assert 1 "fine")`, true)
	err := testEvalError(t, `(assert (lt 2 1) "1 is not less than 2")`)
	if !strings.Contains(err.Error(), "assert failed: 1 is not less than 2") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestBuiltinRead(t *testing.T) {
	testEval(t, `(read "(add 1 2)")`, NewCall(Symbol("add"), int64(1), int64(2)))
	testEval(t, `(eval (read "(add 1 2)"))`, int64(3))
	testEvalError(t, `(read "(unclosed")`)
}

func TestBuiltinArityErrors(t *testing.T) {
	cases := []string{
		"(add 1)",
		"(head)",
		"(nth (list 1))",
		"(get (dict))",
		"(identity 1 2)",
		"(type)",
	}
	for _, input := range cases {
		testEvalError(t, input)
	}
}
