package sigil

import (
	"strings"
	"testing"
)

func mustRead(t *testing.T, input string) any {
	t.Helper()
	v, err := Read(input)
	if err != nil {
		t.Fatalf("read %q: %v", input, err)
	}
	return v
}

func TestReadInt(t *testing.T) {
	if v := mustRead(t, "42"); v != int64(42) {
		t.Fatalf("expected 42, got %v", v)
	}
	if v := mustRead(t, "-7"); v != int64(-7) {
		t.Fatalf("expected -7, got %v", v)
	}
}

func TestReadFloat(t *testing.T) {
	if v := mustRead(t, "3.14"); v != 3.14 {
		t.Fatalf("expected 3.14, got %v", v)
	}
}

func TestReadBoolNil(t *testing.T) {
	if v := mustRead(t, "true"); v != true {
		t.Fatalf("expected true, got %v", v)
	}
	if v := mustRead(t, "false"); v != false {
		t.Fatalf("expected false, got %v", v)
	}
	if v := mustRead(t, "nil"); v != nil {
		t.Fatalf("expected nil, got %v", v)
	}
}

func TestReadString(t *testing.T) {
	if v := mustRead(t, `"hello world"`); v != "hello world" {
		t.Fatalf("expected 'hello world', got %v", v)
	}
}

func TestReadStringEscapes(t *testing.T) {
	v := mustRead(t, `"line\none\ttab\\ and \"quoted\""`)
	if v != "line\none\ttab\\ and \"quoted\"" {
		t.Fatalf("expected escapes, got %q", v)
	}
}

func TestReadSymbol(t *testing.T) {
	if v := mustRead(t, "foo-bar?"); v != Symbol("foo-bar?") {
		t.Fatalf("expected symbol foo-bar?, got %v", v)
	}
	// Arithmetic-looking tokens that fail to parse as numbers are symbols.
	if v := mustRead(t, "->"); v != Symbol("->") {
		t.Fatalf("expected symbol ->, got %v", v)
	}
}

func TestReadCall(t *testing.T) {
	v := mustRead(t, "(add 1 2)")
	if !valuesEqual(v, NewCall(Symbol("add"), int64(1), int64(2))) {
		t.Fatalf("expected (add 1 2), got %s", ExprString(v))
	}
}

func TestReadNestedCall(t *testing.T) {
	v := mustRead(t, "(if true (list 1) (list 2))")
	c, ok := v.(*Call)
	if !ok || c.NumItems() != 4 {
		t.Fatalf("expected call with 4 entries, got %s", ExprString(v))
	}
}

func TestReadEmptyCall(t *testing.T) {
	v := mustRead(t, "()")
	c, ok := v.(*Call)
	if !ok || c.Len() != 0 {
		t.Fatalf("expected empty call, got %s", ExprString(v))
	}
}

func TestReadKeywordEntries(t *testing.T) {
	v := mustRead(t, "(f 1 :a 2 :b (add 1 2))")
	c := v.(*Call)
	if c.NumItems() != 2 || c.NumKw() != 2 {
		t.Fatalf("expected 2 positional and 2 keyword entries, got %s", c)
	}
	if a, _ := c.KwValue("a"); a != int64(2) {
		t.Fatalf("expected a=2, got %v", a)
	}
	b, _ := c.KwValue("b")
	if !valuesEqual(b, NewCall(Symbol("add"), int64(1), int64(2))) {
		t.Fatalf("expected call value for b, got %s", ExprString(b))
	}
}

func TestReadKeywordRepeatLastWins(t *testing.T) {
	v := mustRead(t, "(f :a 1 :a 2)")
	c := v.(*Call)
	if c.NumKw() != 1 {
		t.Fatalf("expected 1 keyword entry, got %d", c.NumKw())
	}
	if a, _ := c.KwValue("a"); a != int64(2) {
		t.Fatalf("expected last value to win, got %v", a)
	}
}

func TestReadComment(t *testing.T) {
	if v := mustRead(t, "; leading comment\n42"); v != int64(42) {
		t.Fatalf("expected 42, got %v", v)
	}
	v := mustRead(t, "(add 1 ; inline\n 2)")
	if !valuesEqual(v, NewCall(Symbol("add"), int64(1), int64(2))) {
		t.Fatalf("expected (add 1 2), got %s", ExprString(v))
	}
}

// --- Sugar ---

func TestReadQuoteSugar(t *testing.T) {
	v := mustRead(t, "'foo")
	if !valuesEqual(v, Quote{Item: Symbol("foo")}) {
		t.Fatalf("expected quote, got %s", ExprString(v))
	}
}

func TestReadQuasiquoteSugar(t *testing.T) {
	v := mustRead(t, "`(a ~b ~@c)")
	c, ok := v.(*Call)
	if !ok || c.At(0) != Symbol("quasiquote") {
		t.Fatalf("expected quasiquote call, got %s", ExprString(v))
	}
	tmpl := c.At(1).(*Call)
	if !valuesEqual(tmpl.At(1), Unquote{Item: Symbol("b")}) {
		t.Fatalf("expected unquote entry, got %s", ExprString(tmpl.At(1)))
	}
	if !valuesEqual(tmpl.At(2), UnquoteSplice{Item: Symbol("c")}) {
		t.Fatalf("expected splice entry, got %s", ExprString(tmpl.At(2)))
	}
}

// --- Errors ---

func TestReadErrors(t *testing.T) {
	cases := []string{
		"",             // empty
		"(unclosed",    // unclosed call
		`"unclosed`,    // unclosed string
		"1 2",          // trailing input
		`"bad \q"`,     // unknown escape
		"(f :k)",       // keyword entry with no value
		"(f :k :m 1)",  // keyword entry followed by another keyword
		"(f : 1)",      // empty keyword name
		":loose",       // keyword outside a call
		"#:hidden$1",   // generated name spelled in source
		"~",            // marker with no expression
	}
	for _, input := range cases {
		if _, err := Read(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestReadAll(t *testing.T) {
	exprs, err := ReadAll("1 2 (add 1 2)")
	if err != nil {
		t.Fatal(err)
	}
	if len(exprs) != 3 {
		t.Fatalf("expected 3 expressions, got %d", len(exprs))
	}
	if exprs[0] != int64(1) || exprs[1] != int64(2) {
		t.Fatalf("unexpected atoms: %v", exprs)
	}
}

func TestReadAllEmpty(t *testing.T) {
	exprs, err := ReadAll("  ; nothing here\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(exprs) != 0 {
		t.Fatalf("expected no expressions, got %d", len(exprs))
	}
}

// --- Round trips ---

func TestReadPrintRoundTrip(t *testing.T) {
	cases := []string{
		"42",
		"3.5",
		`"hi"`,
		"foo",
		"(add 1 2)",
		`(f 1 "two" :k v)`,
		"(f (g 1) :k (h 2))",
	}
	for _, input := range cases {
		v := mustRead(t, input)
		out := ExprString(v)
		if out != input {
			t.Fatalf("round trip %q: got %q", input, out)
		}
		again := mustRead(t, out)
		if !valuesEqual(v, again) {
			t.Fatalf("reread of %q differs", out)
		}
	}
}

func TestReadPositionInErrors(t *testing.T) {
	_, err := Read("1 2")
	if err == nil || !strings.Contains(err.Error(), "position") {
		t.Fatalf("expected position in error, got %v", err)
	}
}
