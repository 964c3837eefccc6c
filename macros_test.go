package sigil

import (
	"errors"
	"strings"
	"testing"
)

// --- Conditionals ---

func TestMacroIf(t *testing.T) {
	testEval(t, `(if (lt 1 2) "yes" "no")`, "yes")
	testEval(t, `(if (sub 1 1) "yes" "no")`, "no") // 0 is falsy
	testEval(t, "(if nil 1 2)", int64(2))
}

func TestMacroIfWithoutElse(t *testing.T) {
	testEval(t, "(if false 1)", NewCall())
	testEval(t, "(if true 1)", int64(1))
}

func TestMacroIfErrors(t *testing.T) {
	err := testEvalError(t, "(if true)")
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected protocol error, got %T", err)
	}
	testEvalError(t, "(if 1 2 3 4)")
	testEvalError(t, "(if true 1 :k 2)")
}

func TestMacroCond(t *testing.T) {
	testEval(t, `(cond (lt 2 1) "a" (lt 1 2) "b")`, "b")
	testEval(t, `(cond true "a" true "b")`, "a")
	testEval(t, "(cond false 1)", nil)
	testEvalError(t, "(cond true)")
}

func TestMacroCase(t *testing.T) {
	testEval(t, `(case (add 1 1) 1 "one" 2 "two" "other")`, "two")
	testEval(t, `(case 9 1 "one" 2 "two" "other")`, "other")
	testEval(t, `(case 9 1 "one")`, nil)
	testEvalError(t, "(case)")
}

func TestMacroCaseLazyBranches(t *testing.T) {
	// Only the matching branch evaluates.
	testEval(t, `(case 1 1 "hit" 2 (boom))`, "hit")
}

// --- Binding forms ---

func TestMacroLet(t *testing.T) {
	testEval(t, "(let ((x 1)) x)", int64(1))
	testEval(t, "(let ((x 1) (y (add x 1))) y)", int64(2)) // bindings are sequential
	testEval(t, "(let ((x 1)) (setq x 5) x)", int64(5))
	testEval(t, "(let ((x 1)) (let ((x 2)) x))", int64(2))
	testEval(t, "(let ((x 1)))", nil)
}

func TestMacroLetErrors(t *testing.T) {
	testEvalError(t, "(let)")
	testEvalError(t, "(let 5 1)")
	testEvalError(t, "(let (x) x)")
	testEvalError(t, `(let (("x" 1)) 1)`)
}

func TestMacroLetDoesNotLeak(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(let ((hidden 1)) hidden)")
	if s.Contains("hidden") {
		t.Fatal("let binding leaked into the outer scope")
	}
}

func TestMacroFn(t *testing.T) {
	testEval(t, "((fn (x) (mul x x)) 7)", int64(49))
	testEval(t, "((fn () 42))", int64(42))
	testEval(t, "((fn (x y) (sub x y)) 10 4)", int64(6))
}

func TestMacroFnClosure(t *testing.T) {
	testEval(t, "(let ((make (fn (n) (fn (x) (add x n)))) (add5 (make 5))) (add5 37))", int64(42))
}

func TestMacroFnArity(t *testing.T) {
	err := testEvalError(t, "((fn (x) x) 1 2)")
	if !strings.Contains(err.Error(), "expected 1 args, got 2") {
		t.Fatalf("unexpected message: %v", err)
	}
	testEvalError(t, "((fn (x) x))")
}

func TestMacroFnRest(t *testing.T) {
	testEval(t, "((fn (x & rest) (len rest)) 1 2 3 4)", int64(3))
	testEval(t, "((fn (x & rest) rest) 1)", []any{})
	testEval(t, "((fn (& all) all) 1 2)", []any{int64(1), int64(2)})
	testEvalError(t, "((fn (& a b) a) 1 2)")
}

func TestMacroFnRejectsKw(t *testing.T) {
	err := testEvalError(t, "((fn (x) x) :k 1)")
	if !strings.Contains(err.Error(), "unexpected keyword arguments") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestMacroDefn(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(defn square (x) (mul x x))")
	testEvalIn(t, s, "(square 9)", int64(81))

	err := testEvalError(t, "(do (defn one (x) x) (one 1 2))")
	if !strings.Contains(err.Error(), "one: expected 1 args, got 2") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestMacroSetq(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(setq a 1 b (add a 1))") // pairs evaluate left to right
	testEvalIn(t, s, "a", int64(1))
	testEvalIn(t, s, "b", int64(2))
	testEvalError(t, "(setq a)")
	testEvalError(t, `(setq "a" 1)`)
}

func TestMacroNonlocal(t *testing.T) {
	input := `(let ((counter (let ((n 0)) (fn () (nonlocal n) (setq n (add n 1)) n))))
	            (do (counter) (counter) (counter)))`
	testEval(t, input, int64(3))
}

func TestMacroNonlocalUndefined(t *testing.T) {
	err := testEvalError(t, "((fn () (nonlocal ghost) (setq ghost 1)))")
	var nerr *NameError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected name error, got %T", err)
	}
	if !nerr.Nonlocal {
		t.Fatal("expected a nonlocal name error")
	}
}

// --- User macros ---

func TestMacroDefmacro(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(defmacro unless (test then) `(if ~test nil ~then))")
	testEvalIn(t, s, "(unless false 42)", int64(42))
	testEvalIn(t, s, "(unless true 42)", nil)
}

func TestMacroDefmacroUnevaluatedArgs(t *testing.T) {
	s := Builtins()
	// The macro body sees the argument tree, not its value.
	evalIn(t, s, "(defmacro first-entry (form) `(quote ~(head (call-items form))))")
	testEvalIn(t, s, "(first-entry (boom 1 2))", Symbol("boom"))
}

func TestMacroDefmacroRest(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(defmacro count-forms (& forms) (len forms))")
	testEvalIn(t, s, "(count-forms a b c)", int64(3))
}

// --- Threading ---

func TestMacroThreadFirst(t *testing.T) {
	testEval(t, "(-> 1 (add 2))", int64(3))
	testEval(t, "(-> 1 (add 2) (mul 3))", int64(9))
	testEval(t, "(-> 5 identity)", int64(5)) // bare symbol step
	testEval(t, "(-> 2 (sub 10))", int64(-8))
	testEvalError(t, "(->)")
}

func TestMacroThreadLast(t *testing.T) {
	testEval(t, "(->> 2 (sub 10))", int64(8))
	testEval(t, "(->> (list 2 3) (cons 1))", []any{int64(1), int64(2), int64(3)})
	testEval(t, "(->> 2 (sub 10) (sub 100))", int64(92))
	testEvalError(t, "(->>)")
}

// --- Reflection ---

func TestMacroScope(t *testing.T) {
	s := Builtins()
	v := evalIn(t, s, "(scope)")
	got, ok := v.(*Scope)
	if !ok {
		t.Fatalf("expected scope, got %T", v)
	}
	if !got.Contains("add") {
		t.Fatal("scope result cannot see the prelude")
	}
	testEvalError(t, "(scope 1)")
}

func TestMacroEval(t *testing.T) {
	testEval(t, "(eval '(add 1 2))", int64(3))
	testEval(t, `(eval (read "(mul 6 7)"))`, int64(42))
	testEval(t, "(eval 5)", int64(5))
	testEval(t, "(eval (cons 'mul '(6 7)))", int64(42))
	testEvalError(t, "(eval)")
}

func TestMacroExpand1(t *testing.T) {
	testEval(t, "(macroexpand-1 '(-> 1 (add 2)))", NewCall(Symbol("add"), int64(1), int64(2)))
	testEval(t, "(macroexpand-1 42)", int64(42))
	testEval(t, "(macroexpand-1 '(add 1 2))", NewCall(Symbol("add"), int64(1), int64(2)))
}

func TestMacroExpand1SingleStep(t *testing.T) {
	s := Builtins()
	evalIn(t, s, "(defmacro unless (test then) `(if ~test nil ~then))")
	testEvalIn(t, s, "(macroexpand-1 '(unless false 42))",
		NewCall(Symbol("if"), false, nil, int64(42)))
}

func TestMacroExpand(t *testing.T) {
	// Expansion stops once the target is no longer a macro.
	testEval(t, "(macroexpand '(-> 1 (add 2) (mul 3)))",
		NewCall(Symbol("mul"), NewCall(Symbol("add"), int64(1), int64(2)), int64(3)))
	testEval(t, "(macroexpand 42)", int64(42))
}

func TestMacroQuoteArity(t *testing.T) {
	err := testEvalError(t, "(quote)")
	if !strings.Contains(err.Error(), "quote: expected 1 form") {
		t.Fatalf("unexpected message: %v", err)
	}
}
