package sigil

import (
	"errors"
	"fmt"
	"reflect"
)

// Callable applies positional and keyword arguments.
type Callable interface {
	Apply(args []any, kw map[string]any) (any, error)
}

// Fn adapts a Go function into a named callable value.
type Fn struct {
	name  string
	apply func(args []any, kw map[string]any) (any, error)
}

// NewFn wraps apply as a named callable.
func NewFn(name string, apply func(args []any, kw map[string]any) (any, error)) *Fn {
	return &Fn{name: name, apply: apply}
}

// Builtin is a function implemented in Go, called with eagerly evaluated
// positional arguments.
type Builtin func(args []any) (any, error)

// NewBuiltin wraps a positional-only function, rejecting keyword
// arguments.
func NewBuiltin(name string, fn Builtin) *Fn {
	return &Fn{name: name, apply: func(args []any, kw map[string]any) (any, error) {
		if len(kw) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", name)
		}
		return fn(args)
	}}
}

func (f *Fn) Apply(args []any, kw map[string]any) (any, error) { return f.apply(args, kw) }

// Name returns the name the fn was created under, or "".
func (f *Fn) Name() string { return f.name }

func (f *Fn) String() string {
	if f.name == "" {
		return "<fn>"
	}
	return "<fn " + f.name + ">"
}

// Macro rewrites calls instead of receiving evaluated arguments. The
// evaluator hands expand the scope and the call's entries unevaluated;
// the returned expression is evaluated once more in the same scope.
// Whether a target is a macro is fixed by its type at creation.
type Macro struct {
	name   string
	expand func(s *Scope, form *Call) (any, error)
}

// NewMacro wraps expand as a named macro.
func NewMacro(name string, expand func(s *Scope, form *Call) (any, error)) *Macro {
	return &Macro{name: name, expand: expand}
}

// AsMacro lifts a callable into a macro: the callable receives the call's
// entries unevaluated as its arguments.
func AsMacro(name string, target Callable) *Macro {
	return &Macro{name: name, expand: func(s *Scope, form *Call) (any, error) {
		var kw map[string]any
		if form.NumKw() > 0 {
			kw = make(map[string]any, form.NumKw())
			for _, e := range form.Kw() {
				kw[e.Name] = e.Value
			}
		}
		return target.Apply(form.Items(), kw)
	}}
}

// Name returns the name the macro was created under.
func (m *Macro) Name() string { return m.name }

// Expand rewrites form without the follow-up evaluation.
func (m *Macro) Expand(s *Scope, form *Call) (any, error) { return m.expand(s, form) }

func (m *Macro) String() string { return "<macro " + m.name + ">" }

// Eval evaluates the call in scope. The target entry is evaluated first;
// if it is a macro, the remaining entries are handed over unevaluated and
// the rewrite is evaluated once more in the same scope. Otherwise the
// remaining entries are evaluated, positional left to right then keyword
// in insertion order, and the target is applied to the results. The empty
// call evaluates to itself. Failures surface as an EvalError carrying the
// form of the innermost failing call.
func (c *Call) Eval(s *Scope) (any, error) {
	if len(c.items) == 0 && len(c.kw) == 0 {
		return c, nil
	}
	if len(c.items) == 0 {
		return nil, c.evalErr(&ProtocolError{Msg: "call has no target"})
	}
	target, err := Eval(c.items[0], s)
	if err != nil {
		return nil, c.evalErr(err)
	}
	if m, ok := target.(*Macro); ok {
		expanded, err := m.expand(s, c.Rest())
		if err != nil {
			return nil, c.evalErr(err)
		}
		out, err := Eval(expanded, s)
		if err != nil {
			return nil, c.evalErr(err)
		}
		return out, nil
	}
	args := make([]any, 0, len(c.items)-1)
	for _, it := range c.items[1:] {
		v, err := Eval(it, s)
		if err != nil {
			return nil, c.evalErr(err)
		}
		args = append(args, v)
	}
	var kw map[string]any
	if len(c.kw) > 0 {
		kw = make(map[string]any, len(c.kw))
		for _, e := range c.kw {
			v, err := Eval(e.Value, s)
			if err != nil {
				return nil, c.evalErr(err)
			}
			kw[e.Name] = v
		}
	}
	out, err := applyTarget(target, args, kw)
	if err != nil {
		return nil, c.evalErr(err)
	}
	return out, nil
}

// evalErr attaches the call's form unless an inner call already did.
func (c *Call) evalErr(err error) error {
	var ee *EvalError
	if errors.As(err, &ee) {
		return err
	}
	return &EvalError{Expr: c.String(), Err: err}
}

// applyTarget applies an evaluated target. Callables apply directly. A
// call target takes keyword arguments only and evaluates itself against
// them as bindings. Anything else goes through reflection.
func applyTarget(target any, args []any, kw map[string]any) (any, error) {
	switch t := target.(type) {
	case Callable:
		return t.Apply(args, kw)
	case *Macro:
		return nil, &ProtocolError{Msg: "macro " + t.name + " applied as a function"}
	case *Call:
		if len(args) > 0 {
			return nil, fmt.Errorf("call target: expected keyword arguments only, got %d positional", len(args))
		}
		return t.EvalWith(Bindings(kw))
	default:
		return applyReflect(target, args, kw)
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// applyReflect invokes an arbitrary Go function. Numeric arguments
// convert to the parameter type; other mismatches are errors. Supported
// return shapes: none, one value, one error, or a value and an error.
func applyReflect(target any, args []any, kw map[string]any) (any, error) {
	fv := reflect.ValueOf(target)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("cannot apply %s", ExprString(target))
	}
	if len(kw) > 0 {
		return nil, errors.New("keyword arguments not supported by Go functions")
	}
	ft := fv.Type()
	numIn := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("expected at least %d args, got %d", numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("expected %d args, got %d", numIn, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var want reflect.Type
		if ft.IsVariadic() && i >= numIn-1 {
			want = ft.In(numIn - 1).Elem()
		} else {
			want = ft.In(i)
		}
		av, err := conformValue(a, want)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		in[i] = av
	}
	outs := fv.Call(in)
	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errType {
			return nil, asError(outs[0])
		}
		return outs[0].Interface(), nil
	case 2:
		if ft.Out(1) != errType {
			return nil, errors.New("unsupported Go function signature")
		}
		if err := asError(outs[1]); err != nil {
			return nil, err
		}
		return outs[0].Interface(), nil
	default:
		return nil, errors.New("unsupported Go function signature")
	}
}

func conformValue(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch want.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("expected %s, got nil", want)
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	if numericKind(av.Kind()) && numericKind(want.Kind()) {
		return av.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("expected %s, got %T", want, a)
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// Truthy reports host truthiness: nil, false, zero numbers, empty
// strings, and empty lists, maps and calls are falsy; everything else is
// truthy.
func Truthy(x any) bool {
	switch v := x.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case *Call:
		return v.Len() > 0
	default:
		return true
	}
}
