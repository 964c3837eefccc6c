package sigil

import "fmt"

// A quasiquote template expands into a tree of constructor calls that,
// when evaluated, rebuilds the template with unquote holes filled and
// splices merged. The constructors are embedded as values rather than
// symbols, so an expanded template evaluates correctly in any scope.
// The same constructors are registered in the prelude as call, concat,
// kwpair, unquote and unquote-splice.
var (
	callCtor = NewBuiltin("call", func(args []any) (any, error) {
		return NewCall(args...), nil
	})

	concatCtor = NewBuiltin("concat", func(args []any) (any, error) {
		calls := make([]*Call, len(args))
		for i, a := range args {
			c, ok := a.(*Call)
			if !ok {
				return nil, &ProtocolError{Msg: fmt.Sprintf("concat: expected call, got %s", typeName(a))}
			}
			calls[i] = c
		}
		return Concat(calls...), nil
	})

	kwpairCtor = NewBuiltin("kwpair", func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("kwpair: expected 2 args, got %d", len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("kwpair: name must be a string, got %s", typeName(args[0]))
		}
		return NewCall().WithKw(name, args[1]), nil
	})

	unquoteCtor = NewBuiltin("unquote", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("unquote: expected 1 arg, got %d", len(args))
		}
		return Unquote{Item: args[0]}, nil
	})

	spliceCtor = NewBuiltin("unquote-splice", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("unquote-splice: expected 1 arg, got %d", len(args))
		}
		return UnquoteSplice{Item: args[0]}, nil
	})
)

func quasiquoteMacro() *Macro {
	return NewMacro("quasiquote", func(s *Scope, form *Call) (any, error) {
		if form.NumItems() != 1 || form.NumKw() != 0 {
			return nil, &ProtocolError{Msg: fmt.Sprintf("quasiquote: expected 1 template, got %d entries", form.Len())}
		}
		return qqExpand(form.At(0), 0)
	})
}

func isQuasiquoteForm(c *Call) bool {
	if c.NumItems() == 0 {
		return false
	}
	switch h := c.At(0).(type) {
	case Symbol:
		return h == "quasiquote"
	case *Macro:
		return h.name == "quasiquote"
	}
	return false
}

// qqExpand rewrites one template node. depth counts quasiquote levels
// enclosing the node beyond the one being expanded: a marker at depth
// zero is consumed, a deeper marker is rebuilt with one level stripped,
// and each nested quasiquote form raises the depth for its template.
func qqExpand(x any, depth int) (any, error) {
	switch v := x.(type) {
	case Unquote:
		if depth == 0 {
			return v.Item, nil
		}
		inner, err := qqExpand(v.Item, depth-1)
		if err != nil {
			return nil, err
		}
		return NewCall(unquoteCtor, inner), nil
	case UnquoteSplice:
		if depth == 0 {
			return nil, &ProtocolError{Msg: "unquote-splice: must appear inside a call template"}
		}
		inner, err := qqExpand(v.Item, depth-1)
		if err != nil {
			return nil, err
		}
		return NewCall(spliceCtor, inner), nil
	case *Call:
		if isQuasiquoteForm(v) {
			return qqSeq(v, depth+1)
		}
		return qqSeq(v, depth)
	case Symbol:
		return Quote{Item: v}, nil
	case Quote:
		// quoted forms are opaque; markers inside them survive untouched
		return Quote{Item: v}, nil
	default:
		return x, nil
	}
}

// qqSeq rebuilds a call template by decomposing one positional entry at a
// time, then one keyword entry at a time, merging the reconstructed
// segments with concat. The empty remainder rebuilds as itself.
func qqSeq(c *Call, depth int) (any, error) {
	if head, rest, ok := c.UnconsHead(); ok {
		seg, err := qqElem(head, depth)
		if err != nil {
			return nil, err
		}
		restTree, err := qqSeq(rest, depth)
		if err != nil {
			return nil, err
		}
		return NewCall(concatCtor, seg, restTree), nil
	}
	if name, value, rest, ok := c.UnconsKw(); ok {
		if _, bad := value.(UnquoteSplice); bad && depth == 0 {
			return nil, &ProtocolError{Msg: "unquote-splice: cannot splice a keyword value"}
		}
		inner, err := qqExpand(value, depth)
		if err != nil {
			return nil, err
		}
		restTree, err := qqSeq(rest, depth)
		if err != nil {
			return nil, err
		}
		return NewCall(concatCtor, NewCall(kwpairCtor, name, inner), restTree), nil
	}
	return c, nil
}

// qqElem rebuilds one positional entry as a single-entry call segment,
// except for a splice, whose item merges wholesale.
func qqElem(x any, depth int) (any, error) {
	switch v := x.(type) {
	case Unquote:
		if depth == 0 {
			return NewCall(callCtor, v.Item), nil
		}
		inner, err := qqExpand(v.Item, depth-1)
		if err != nil {
			return nil, err
		}
		return NewCall(callCtor, NewCall(unquoteCtor, inner)), nil
	case UnquoteSplice:
		if depth == 0 {
			return v.Item, nil
		}
		inner, err := qqExpand(v.Item, depth-1)
		if err != nil {
			return nil, err
		}
		return NewCall(callCtor, NewCall(spliceCtor, inner)), nil
	case *Call:
		tree, err := qqExpand(v, depth)
		if err != nil {
			return nil, err
		}
		return NewCall(callCtor, tree), nil
	default:
		return Quote{Item: NewCall(x)}, nil
	}
}
