package sigil

import (
	"fmt"
	"sort"
	"strings"
)

// KwEntry is one keyword entry of a Call.
type KwEntry struct {
	Name  string
	Value any
}

// Call is a deferred invocation: ordered positional entries, the first of
// which is the call target, plus keyword entries in insertion order. A
// Call is immutable; every operation returns a new one. Evaluating a Call
// evaluates its entries and applies the target; the empty call evaluates
// to itself.
type Call struct {
	items []any
	kw    []KwEntry
}

// NewCall builds a call from positional entries.
func NewCall(items ...any) *Call {
	c := &Call{}
	if len(items) > 0 {
		c.items = make([]any, len(items))
		copy(c.items, items)
	}
	return c
}

// WithKw returns a copy with name bound to value. An existing name keeps
// its insertion position; a new one appends.
func (c *Call) WithKw(name string, value any) *Call {
	out := c.clone()
	out.setKw(name, value)
	return out
}

func (c *Call) clone() *Call {
	out := &Call{}
	if len(c.items) > 0 {
		out.items = make([]any, len(c.items))
		copy(out.items, c.items)
	}
	if len(c.kw) > 0 {
		out.kw = make([]KwEntry, len(c.kw))
		copy(out.kw, c.kw)
	}
	return out
}

// setKw mutates in place; callers only use it on calls not yet shared.
func (c *Call) setKw(name string, value any) {
	for i := range c.kw {
		if c.kw[i].Name == name {
			c.kw[i].Value = value
			return
		}
	}
	c.kw = append(c.kw, KwEntry{Name: name, Value: value})
}

// NumItems returns the number of positional entries.
func (c *Call) NumItems() int { return len(c.items) }

// NumKw returns the number of keyword entries.
func (c *Call) NumKw() int { return len(c.kw) }

// Len returns the total number of entries.
func (c *Call) Len() int { return len(c.items) + len(c.kw) }

// At returns the positional entry at i.
func (c *Call) At(i int) any { return c.items[i] }

// Items copies the positional entries.
func (c *Call) Items() []any {
	out := make([]any, len(c.items))
	copy(out, c.items)
	return out
}

// Kw copies the keyword entries in insertion order.
func (c *Call) Kw() []KwEntry {
	out := make([]KwEntry, len(c.kw))
	copy(out, c.kw)
	return out
}

// KwValue returns the value bound to a keyword name.
func (c *Call) KwValue(name string) (any, bool) {
	for _, e := range c.kw {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Get treats the call as a mapping: int keys index positional entries,
// string keys name keyword entries.
func (c *Call) Get(key any) (any, bool) {
	switch k := key.(type) {
	case int:
		if k >= 0 && k < len(c.items) {
			return c.items[k], true
		}
	case int64:
		if k >= 0 && k < int64(len(c.items)) {
			return c.items[k], true
		}
	case string:
		return c.KwValue(k)
	}
	return nil, false
}

// Contains reports whether the mapping view has key.
func (c *Call) Contains(key any) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns the mapping view's keys: positions in order, then keyword
// names in insertion order.
func (c *Call) Keys() []any {
	out := make([]any, 0, len(c.items)+len(c.kw))
	for i := range c.items {
		out = append(out, i)
	}
	for _, e := range c.kw {
		out = append(out, e.Name)
	}
	return out
}

// FromMapping builds a call from a mapping view: int keys are positions,
// string keys are keyword names. Positions must be dense from zero.
// Keyword entries are inserted in sorted name order, since a Go map has
// no insertion order to preserve.
func FromMapping(m map[any]any) (*Call, error) {
	type posEntry struct {
		pos int
		val any
	}
	positional := make([]posEntry, 0, len(m))
	names := make([]string, 0, len(m))
	for k, v := range m {
		switch key := k.(type) {
		case int:
			positional = append(positional, posEntry{key, v})
		case int64:
			positional = append(positional, posEntry{int(key), v})
		case string:
			names = append(names, key)
		default:
			return nil, fmt.Errorf("from mapping: key must be int or string, got %T", k)
		}
	}
	sort.Slice(positional, func(i, j int) bool { return positional[i].pos < positional[j].pos })
	sort.Strings(names)
	c := &Call{}
	for i, e := range positional {
		if e.pos != i {
			return nil, fmt.Errorf("from mapping: missing position %d", i)
		}
		c.items = append(c.items, e.val)
	}
	for _, n := range names {
		c.kw = append(c.kw, KwEntry{Name: n, Value: m[n]})
	}
	return c, nil
}

// FromBindings builds a keyword-only call from named values, in sorted
// name order.
func FromBindings(b Bindings) *Call {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	c := &Call{kw: make([]KwEntry, 0, len(names))}
	for _, n := range names {
		c.kw = append(c.kw, KwEntry{Name: n, Value: b[n]})
	}
	return c
}

// UnconsHead splits off the first positional entry, keeping all keyword
// entries with the remainder. ok is false when there is none.
func (c *Call) UnconsHead() (head any, rest *Call, ok bool) {
	if len(c.items) == 0 {
		return nil, nil, false
	}
	rest = &Call{}
	if len(c.items) > 1 {
		rest.items = make([]any, len(c.items)-1)
		copy(rest.items, c.items[1:])
	}
	if len(c.kw) > 0 {
		rest.kw = make([]KwEntry, len(c.kw))
		copy(rest.kw, c.kw)
	}
	return c.items[0], rest, true
}

// UnconsKw splits off the first-inserted keyword entry, keeping all
// positional entries with the remainder. ok is false when there is none.
func (c *Call) UnconsKw() (name string, value any, rest *Call, ok bool) {
	if len(c.kw) == 0 {
		return "", nil, nil, false
	}
	rest = &Call{}
	if len(c.items) > 0 {
		rest.items = make([]any, len(c.items))
		copy(rest.items, c.items)
	}
	if len(c.kw) > 1 {
		rest.kw = make([]KwEntry, len(c.kw)-1)
		copy(rest.kw, c.kw[1:])
	}
	return c.kw[0].Name, c.kw[0].Value, rest, true
}

// Concat merges calls left to right: positional entries append in order,
// keyword entries merge with later values winning while keeping the
// position of first insertion.
func Concat(calls ...*Call) *Call {
	out := &Call{}
	for _, c := range calls {
		if c == nil {
			continue
		}
		out.items = append(out.items, c.items...)
		for _, e := range c.kw {
			out.setKw(e.Name, e.Value)
		}
	}
	return out
}

// Cons returns the call with a new target prepended.
func Cons(target any, c *Call) *Call {
	out := &Call{items: make([]any, 0, len(c.items)+1)}
	out.items = append(out.items, target)
	out.items = append(out.items, c.items...)
	if len(c.kw) > 0 {
		out.kw = make([]KwEntry, len(c.kw))
		copy(out.kw, c.kw)
	}
	return out
}

// Rest returns the call without its target.
func (c *Call) Rest() *Call {
	if _, rest, ok := c.UnconsHead(); ok {
		return rest
	}
	return c.clone()
}

// EvalWith evaluates the call against fresh bindings.
func (c *Call) EvalWith(vars Bindings) (any, error) {
	return c.Eval(NewScope(nil, vars))
}

// String renders the call in reader syntax.
func (c *Call) String() string {
	parts := make([]string, 0, len(c.items)+len(c.kw)*2)
	for _, it := range c.items {
		parts = append(parts, ExprString(it))
	}
	for _, e := range c.kw {
		parts = append(parts, ":"+e.Name, ExprString(e.Value))
	}
	return "(" + strings.Join(parts, " ") + ")"
}
