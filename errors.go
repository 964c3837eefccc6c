package sigil

import "fmt"

// NameError reports a symbol that could not be resolved anywhere in a
// scope chain.
type NameError struct {
	Name     string
	Nonlocal bool
}

func (e *NameError) Error() string {
	if e.Nonlocal {
		return fmt.Sprintf("nonlocal %s: not defined in any enclosing scope", e.Name)
	}
	return fmt.Sprintf("unbound symbol: %s", e.Name)
}

// ProtocolError reports misuse of the expression protocol itself, such as
// an unquote marker reaching the evaluator outside a quasiquote template.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return e.Msg }

// EvalError carries the textual form of the call that was being evaluated
// when the underlying failure occurred.
type EvalError struct {
	Expr string
	Err  error
}

func (e *EvalError) Error() string { return fmt.Sprintf("eval %s: %s", e.Expr, e.Err) }

func (e *EvalError) Unwrap() error { return e.Err }

// AssertError is raised by the assert builtin.
type AssertError struct {
	Message string
}

func (e *AssertError) Error() string { return fmt.Sprintf("assert failed: %s", e.Message) }
