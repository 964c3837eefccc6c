package sigil

import "fmt"

// standardMacros returns the control and binding forms of the prelude.
// Each one receives its entries unevaluated and returns either a tree
// for the caller's scope to evaluate or a Quote around a finished value.
func standardMacros() []*Macro {
	return []*Macro{
		quoteMacro(),
		quasiquoteMacro(),
		ifMacro(),
		condMacro(),
		caseMacro(),
		letMacro(),
		fnMacro(),
		defnMacro(),
		setqMacro(),
		nonlocalMacro(),
		defmacroMacro(),
		threadFirstMacro(),
		threadLastMacro(),
		scopeMacro(),
		evalMacro(),
		macroexpand1Macro(),
		macroexpandMacro(),
	}
}

func quoteMacro() *Macro {
	return NewMacro("quote", func(_ *Scope, form *Call) (any, error) {
		if form.Len() != 1 || form.NumItems() != 1 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("quote: expected 1 form, got %d entries", form.Len())}
		}
		return Quote{Item: form.At(0)}, nil
	})
}

func ifMacro() *Macro {
	return NewMacro("if", func(s *Scope, form *Call) (any, error) {
		if form.NumKw() != 0 || form.NumItems() < 2 || form.NumItems() > 3 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("if: expected condition, then branch and optional else branch, got %d entries", form.Len())}
		}
		cond, err := Eval(form.At(0), s)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return form.At(1), nil
		}
		if form.NumItems() == 3 {
			return form.At(2), nil
		}
		return NewCall(), nil
	})
}

func condMacro() *Macro {
	return NewMacro("cond", func(s *Scope, form *Call) (any, error) {
		if form.NumKw() != 0 || form.NumItems()%2 != 0 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("cond: expected test and expression pairs, got %d entries", form.Len())}
		}
		for i := 0; i < form.NumItems(); i += 2 {
			test, err := Eval(form.At(i), s)
			if err != nil {
				return nil, err
			}
			if Truthy(test) {
				return form.At(i + 1), nil
			}
		}
		return nil, nil
	})
}

// caseMacro dispatches on the value of its first entry: the remaining
// entries are value and expression pairs, with an optional trailing
// default expression.
func caseMacro() *Macro {
	return NewMacro("case", func(s *Scope, form *Call) (any, error) {
		if form.NumKw() != 0 || form.NumItems() < 1 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("case: expected a target expression, got %d entries", form.Len())}
		}
		target, err := Eval(form.At(0), s)
		if err != nil {
			return nil, err
		}
		i := 1
		for ; i+1 < form.NumItems(); i += 2 {
			v, err := Eval(form.At(i), s)
			if err != nil {
				return nil, err
			}
			if valuesEqual(target, v) {
				return form.At(i + 1), nil
			}
		}
		if i < form.NumItems() {
			return form.At(i), nil
		}
		return nil, nil
	})
}

// letMacro evaluates its body in a child scope seeded by the bindings
// of the first entry, each a (name value) pair. Bindings are
// sequential, so later pairs see earlier ones.
func letMacro() *Macro {
	return NewMacro("let", func(s *Scope, form *Call) (any, error) {
		if form.NumItems() < 1 {
			return nil, &ProtocolError{Msg: "let: expected a bindings call and body"}
		}
		bindings, ok := form.At(0).(*Call)
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("let: first entry must be a bindings call, got %s", typeName(form.At(0)))}
		}
		child := NewScope(s, nil)
		for i := 0; i < bindings.NumItems(); i++ {
			pair, ok := bindings.At(i).(*Call)
			if !ok || pair.NumItems() != 2 || pair.NumKw() != 0 {
				return nil, &ProtocolError{Msg: fmt.Sprintf("let: binding %d must be a (name value) pair, got %s", i, ExprString(bindings.At(i)))}
			}
			name, ok := pair.At(0).(Symbol)
			if !ok {
				return nil, &ProtocolError{Msg: fmt.Sprintf("let: binding name must be a symbol, got %s", typeName(pair.At(0)))}
			}
			v, err := Eval(pair.At(1), child)
			if err != nil {
				return nil, err
			}
			child.Define(string(name), v)
		}
		var result any
		for i := 1; i < form.NumItems(); i++ {
			var err error
			result, err = Eval(form.At(i), child)
			if err != nil {
				return nil, err
			}
		}
		return Quote{Item: result}, nil
	})
}

// paramNames reads a parameter call: plain symbols, optionally followed
// by & and a single rest parameter that collects trailing arguments.
func paramNames(label string, params *Call) ([]string, string, error) {
	if params.NumKw() != 0 {
		return nil, "", &ProtocolError{Msg: label + ": parameter call cannot have keyword entries"}
	}
	var names []string
	restName := ""
	for i := 0; i < params.NumItems(); i++ {
		sym, ok := params.At(i).(Symbol)
		if !ok {
			return nil, "", &ProtocolError{Msg: fmt.Sprintf("%s: parameter must be a symbol, got %s", label, typeName(params.At(i)))}
		}
		if sym == "&" {
			if i+2 != params.NumItems() {
				return nil, "", &ProtocolError{Msg: label + ": & must be followed by exactly one rest parameter"}
			}
			restSym, ok := params.At(i + 1).(Symbol)
			if !ok {
				return nil, "", &ProtocolError{Msg: fmt.Sprintf("%s: rest parameter must be a symbol, got %s", label, typeName(params.At(i+1)))}
			}
			restName = string(restSym)
			break
		}
		names = append(names, string(sym))
	}
	return names, restName, nil
}

// makeFn builds a function closing over the defining scope. Each
// application binds arguments in a fresh child scope and evaluates the
// body entries in order.
func makeFn(s *Scope, name string, form *Call) (*Fn, error) {
	if form.NumItems() < 1 {
		return nil, &ProtocolError{Msg: "fn: expected a parameter call and body"}
	}
	params, ok := form.At(0).(*Call)
	if !ok {
		return nil, &ProtocolError{Msg: fmt.Sprintf("fn: first entry must be a parameter call, got %s", typeName(form.At(0)))}
	}
	names, restName, err := paramNames("fn", params)
	if err != nil {
		return nil, err
	}
	body := make([]any, 0, form.NumItems()-1)
	for i := 1; i < form.NumItems(); i++ {
		body = append(body, form.At(i))
	}
	label := name
	if label == "" {
		label = "fn"
	}
	apply := func(args []any, kw map[string]any) (any, error) {
		if len(kw) > 0 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("%s: unexpected keyword arguments", label)}
		}
		if restName == "" {
			if len(args) != len(names) {
				return nil, fmt.Errorf("%s: expected %d args, got %d", label, len(names), len(args))
			}
		} else if len(args) < len(names) {
			return nil, fmt.Errorf("%s: expected at least %d args, got %d", label, len(names), len(args))
		}
		child := NewScope(s, nil)
		for i, p := range names {
			child.Define(p, args[i])
		}
		if restName != "" {
			rest := make([]any, len(args)-len(names))
			copy(rest, args[len(names):])
			child.Define(restName, rest)
		}
		var result any
		for _, b := range body {
			var err error
			result, err = Eval(b, child)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	}
	return NewFn(name, apply), nil
}

func fnMacro() *Macro {
	return NewMacro("fn", func(s *Scope, form *Call) (any, error) {
		f, err := makeFn(s, "", form)
		if err != nil {
			return nil, err
		}
		return Quote{Item: f}, nil
	})
}

func defnMacro() *Macro {
	return NewMacro("defn", func(s *Scope, form *Call) (any, error) {
		if form.NumItems() < 2 {
			return nil, &ProtocolError{Msg: "defn: expected name, parameter call and body"}
		}
		name, ok := form.At(0).(Symbol)
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("defn: name must be a symbol, got %s", typeName(form.At(0)))}
		}
		f, err := makeFn(s, string(name), form.Rest())
		if err != nil {
			return nil, err
		}
		s.Define(string(name), f)
		return Quote{Item: f}, nil
	})
}

// setqMacro assigns name and value pairs in the calling scope. Values
// evaluate left to right, so later pairs see earlier assignments.
func setqMacro() *Macro {
	return NewMacro("setq", func(s *Scope, form *Call) (any, error) {
		if form.NumItems()%2 != 0 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("setq: expected name and value pairs, got %d entries", form.NumItems())}
		}
		for i := 0; i < form.NumItems(); i += 2 {
			name, ok := form.At(i).(Symbol)
			if !ok {
				return nil, &ProtocolError{Msg: fmt.Sprintf("setq: name must be a symbol, got %s", typeName(form.At(i)))}
			}
			v, err := Eval(form.At(i+1), s)
			if err != nil {
				return nil, err
			}
			if err := s.Assign(string(name), v); err != nil {
				return nil, err
			}
		}
		return Quote{Item: nil}, nil
	})
}

func nonlocalMacro() *Macro {
	return NewMacro("nonlocal", func(s *Scope, form *Call) (any, error) {
		if form.NumItems() < 1 {
			return nil, &ProtocolError{Msg: "nonlocal: expected at least one name"}
		}
		for i := 0; i < form.NumItems(); i++ {
			name, ok := form.At(i).(Symbol)
			if !ok {
				return nil, &ProtocolError{Msg: fmt.Sprintf("nonlocal: name must be a symbol, got %s", typeName(form.At(i)))}
			}
			s.DeclareNonlocal(string(name))
		}
		return Quote{Item: nil}, nil
	})
}

// defmacroMacro defines a named macro. Its body runs in a child of the
// defining scope with the parameters bound to the unevaluated entries
// of each use site; whatever the body returns is then evaluated where
// the macro was called.
func defmacroMacro() *Macro {
	return NewMacro("defmacro", func(s *Scope, form *Call) (any, error) {
		if form.NumItems() < 2 {
			return nil, &ProtocolError{Msg: "defmacro: expected name, parameter call and body"}
		}
		nameSym, ok := form.At(0).(Symbol)
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("defmacro: name must be a symbol, got %s", typeName(form.At(0)))}
		}
		name := string(nameSym)
		rest := form.Rest()
		params, ok := rest.At(0).(*Call)
		if !ok {
			return nil, &ProtocolError{Msg: fmt.Sprintf("defmacro: second entry must be a parameter call, got %s", typeName(rest.At(0)))}
		}
		names, restName, err := paramNames("defmacro", params)
		if err != nil {
			return nil, err
		}
		body := make([]any, 0, rest.NumItems()-1)
		for i := 1; i < rest.NumItems(); i++ {
			body = append(body, rest.At(i))
		}
		m := NewMacro(name, func(_ *Scope, args *Call) (any, error) {
			if args.NumKw() != 0 {
				return nil, &ProtocolError{Msg: fmt.Sprintf("%s: unexpected keyword entries", name)}
			}
			raw := args.Items()
			if restName == "" {
				if len(raw) != len(names) {
					return nil, fmt.Errorf("%s: expected %d args, got %d", name, len(names), len(raw))
				}
			} else if len(raw) < len(names) {
				return nil, fmt.Errorf("%s: expected at least %d args, got %d", name, len(names), len(raw))
			}
			child := NewScope(s, nil)
			for i, p := range names {
				child.Define(p, raw[i])
			}
			if restName != "" {
				child.Define(restName, raw[len(names):])
			}
			var result any
			for _, b := range body {
				var err error
				result, err = Eval(b, child)
				if err != nil {
					return nil, err
				}
			}
			return result, nil
		})
		s.Define(name, m)
		return Quote{Item: m}, nil
	})
}

// threadFirstMacro rewrites (-> x (f a) g) into (g (f x a)): each step
// receives the accumulated expression as its first argument.
func threadFirstMacro() *Macro {
	return NewMacro("->", func(_ *Scope, form *Call) (any, error) {
		if form.NumItems() < 1 {
			return nil, &ProtocolError{Msg: "->: expected an initial expression"}
		}
		acc := form.At(0)
		for i := 1; i < form.NumItems(); i++ {
			switch step := form.At(i).(type) {
			case *Call:
				head, rest, ok := step.UnconsHead()
				if !ok {
					return nil, &ProtocolError{Msg: "->: step call has no target"}
				}
				acc = Cons(head, Cons(acc, rest))
			default:
				acc = NewCall(step, acc)
			}
		}
		return acc, nil
	})
}

// threadLastMacro rewrites (->> x (f a) g) into (g (f a x)): each step
// receives the accumulated expression as its last argument.
func threadLastMacro() *Macro {
	return NewMacro("->>", func(_ *Scope, form *Call) (any, error) {
		if form.NumItems() < 1 {
			return nil, &ProtocolError{Msg: "->>: expected an initial expression"}
		}
		acc := form.At(0)
		for i := 1; i < form.NumItems(); i++ {
			switch step := form.At(i).(type) {
			case *Call:
				acc = Concat(step, NewCall(acc))
			default:
				acc = NewCall(step, acc)
			}
		}
		return acc, nil
	})
}

func scopeMacro() *Macro {
	return NewMacro("scope", func(s *Scope, form *Call) (any, error) {
		if form.Len() != 0 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("scope: expected no entries, got %d", form.Len())}
		}
		return s, nil
	})
}

// evalMacro evaluates its entry to obtain a tree, then lets the calling
// convention evaluate that tree: (eval '(add 1 2)) yields 3.
func evalMacro() *Macro {
	return NewMacro("eval", func(s *Scope, form *Call) (any, error) {
		if form.NumKw() != 0 || form.NumItems() != 1 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("eval: expected 1 form, got %d entries", form.Len())}
		}
		return Eval(form.At(0), s)
	})
}

// expandOnce performs a single macro expansion step on a call: it
// evaluates the target and, if that names a macro, runs the expansion
// without the follow-up evaluation.
func expandOnce(s *Scope, c *Call) (any, bool, error) {
	if c.NumItems() == 0 {
		return c, false, nil
	}
	target, err := Eval(c.At(0), s)
	if err != nil {
		return nil, false, err
	}
	m, ok := target.(*Macro)
	if !ok {
		return c, false, nil
	}
	out, err := m.Expand(s, c.Rest())
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func macroexpand1Macro() *Macro {
	return NewMacro("macroexpand-1", func(s *Scope, form *Call) (any, error) {
		if form.NumKw() != 0 || form.NumItems() != 1 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("macroexpand-1: expected 1 form, got %d entries", form.Len())}
		}
		v, err := Eval(form.At(0), s)
		if err != nil {
			return nil, err
		}
		c, ok := v.(*Call)
		if !ok {
			return Quote{Item: v}, nil
		}
		out, _, err := expandOnce(s, c)
		if err != nil {
			return nil, err
		}
		return Quote{Item: out}, nil
	})
}

func macroexpandMacro() *Macro {
	return NewMacro("macroexpand", func(s *Scope, form *Call) (any, error) {
		if form.NumKw() != 0 || form.NumItems() != 1 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("macroexpand: expected 1 form, got %d entries", form.Len())}
		}
		cur, err := Eval(form.At(0), s)
		if err != nil {
			return nil, err
		}
		for {
			c, ok := cur.(*Call)
			if !ok {
				break
			}
			out, changed, err := expandOnce(s, c)
			if err != nil {
				return nil, err
			}
			if !changed {
				break
			}
			cur = out
		}
		return Quote{Item: cur}, nil
	})
}
