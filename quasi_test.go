package sigil

import (
	"strings"
	"testing"
)

// --- Template building ---

func TestQuasiquoteLiteral(t *testing.T) {
	testEval(t, "`42", int64(42))
	testEval(t, "`x", Symbol("x"))
	testEval(t, "`()", NewCall())
}

func TestQuasiquoteSymbolsStayUnevaluated(t *testing.T) {
	// Neither f nor y is bound; the template still builds.
	testEval(t, "`(f y)", NewCall(Symbol("f"), Symbol("y")))
}

func TestQuasiquoteUnquote(t *testing.T) {
	testEval(t, "(let ((x 5)) `(add 1 ~x))",
		NewCall(Symbol("add"), int64(1), int64(5)))
}

func TestQuasiquoteUnquoteNested(t *testing.T) {
	testEval(t, "(let ((x 2)) `(f (g ~(mul x 3))))",
		NewCall(Symbol("f"), NewCall(Symbol("g"), int64(6))))
}

func TestQuasiquoteEvalRoundTrip(t *testing.T) {
	testEval(t, "(let ((x 5)) (eval `(add 1 ~x)))", int64(6))
}

// --- Splices ---

func TestQuasiquoteSplice(t *testing.T) {
	testEval(t, "(let ((xs '(1 2 3))) `(f ~@xs 9))",
		NewCall(Symbol("f"), int64(1), int64(2), int64(3), int64(9)))
}

func TestQuasiquoteSpliceMergesKeywords(t *testing.T) {
	testEval(t, "(let ((xs '(1 :k 2))) `(f ~@xs))",
		NewCall(Symbol("f"), int64(1)).WithKw("k", int64(2)))
}

func TestQuasiquoteSpliceNonCall(t *testing.T) {
	err := testEvalError(t, "(let ((xs 5)) `(f ~@xs))")
	if !strings.Contains(err.Error(), "expected call") {
		t.Fatalf("expected splice type error, got %v", err)
	}
}

func TestQuasiquoteSpliceOutsideCall(t *testing.T) {
	err := testEvalError(t, "`~@x")
	if !strings.Contains(err.Error(), "call template") {
		t.Fatalf("expected top-level splice error, got %v", err)
	}
}

// --- Keyword entries ---

func TestQuasiquoteKeywordHole(t *testing.T) {
	testEval(t, "(let ((v 7)) `(f :k ~v))",
		NewCall(Symbol("f")).WithKw("k", int64(7)))
}

func TestQuasiquoteKeywordSpliceRejected(t *testing.T) {
	err := testEvalError(t, "(let ((v '(1))) `(f :k ~@v))")
	if !strings.Contains(err.Error(), "keyword value") {
		t.Fatalf("expected keyword splice error, got %v", err)
	}
}

// --- Quote opacity ---

func TestQuasiquoteQuotedFormsAreOpaque(t *testing.T) {
	testEval(t, "`(f '(g ~x))",
		NewCall(Symbol("f"), Quote{Item: NewCall(Symbol("g"), Unquote{Item: Symbol("x")})}))
}

// --- Nesting depth ---

func TestQuasiquoteNested(t *testing.T) {
	// One expansion leaves the inner template intact with the double
	// unquote collapsed to the bound value.
	testEval(t, "(let ((x 5)) `(a `(b ~~x)))",
		NewCall(Symbol("a"),
			NewCall(Symbol("quasiquote"),
				NewCall(Symbol("b"), Unquote{Item: int64(5)}))))
}

func TestQuasiquoteNestedFullEval(t *testing.T) {
	testEval(t, "(let ((x 5)) (eval (eval ``(add 1 ~~x))))", int64(6))
}

func TestQuasiquoteOverDeepUnquote(t *testing.T) {
	// A double unquote under a single quasiquote leaves a marker for the
	// evaluator, which rejects it.
	err := testEvalError(t, "(let ((x 5)) `(f ~~x))")
	if !strings.Contains(err.Error(), "unquote outside quasiquote") {
		t.Fatalf("expected marker error, got %v", err)
	}
}

// --- Reuse ---

func TestQuasiquoteTemplateReuse(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(defn mk (x) `(add 1 ~x))")
	testEvalIn(t, s, "(mk 5)", NewCall(Symbol("add"), int64(1), int64(5)))
	testEvalIn(t, s, "(mk 10)", NewCall(Symbol("add"), int64(1), int64(10)))
	testEvalIn(t, s, "(eval (mk 41))", int64(42))
}

func TestQuasiquoteArityError(t *testing.T) {
	err := testEvalError(t, "(quasiquote 1 2)")
	if !strings.Contains(err.Error(), "expected 1 template") {
		t.Fatalf("expected arity error, got %v", err)
	}
}
