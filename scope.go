package sigil

import "sort"

// Bindings maps names to values for seeding a scope.
type Bindings map[string]any

// Scope is a chain of name bindings. Lookup walks toward the root, Define
// always binds locally, and Assign binds locally unless the name was
// declared nonlocal, in which case it rebinds the nearest enclosing
// definition. A Scope is not safe for concurrent mutation.
type Scope struct {
	vars      map[string]any
	parent    *Scope
	nonlocals map[string]struct{}
}

// NewScope returns a child of parent seeded with a copy of vars. Both
// arguments may be nil.
func NewScope(parent *Scope, vars Bindings) *Scope {
	s := &Scope{vars: make(map[string]any, len(vars)), parent: parent}
	for k, v := range vars {
		s.vars[k] = v
	}
	return s
}

// Lookup resolves name through the chain.
func (s *Scope) Lookup(name string) (any, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, nil
		}
	}
	return nil, &NameError{Name: name}
}

// Get resolves name through the chain without failing.
func (s *Scope) Get(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Contains reports whether name resolves anywhere in the chain.
func (s *Scope) Contains(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Define binds name locally, shadowing any enclosing binding.
func (s *Scope) Define(name string, value any) {
	s.vars[name] = value
}

// DeclareNonlocal marks names so that Assign rebinds them in the
// enclosing chain instead of locally.
func (s *Scope) DeclareNonlocal(names ...string) {
	if s.nonlocals == nil {
		s.nonlocals = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		s.nonlocals[n] = struct{}{}
	}
}

// Assign binds name locally. For names declared nonlocal it instead
// rebinds the nearest enclosing scope that defines the name, failing if
// none does.
func (s *Scope) Assign(name string, value any) error {
	if _, ok := s.nonlocals[name]; ok {
		for cur := s.parent; cur != nil; cur = cur.parent {
			if _, defined := cur.vars[name]; defined {
				cur.vars[name] = value
				return nil
			}
		}
		return &NameError{Name: name, Nonlocal: true}
	}
	s.vars[name] = value
	return nil
}

// Undefine removes a local binding, reporting whether it existed.
func (s *Scope) Undefine(name string) bool {
	if _, ok := s.vars[name]; !ok {
		return false
	}
	delete(s.vars, name)
	return true
}

// LocalNames returns the locally bound names, sorted.
func (s *Scope) LocalNames() []string {
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the local bindings.
func (s *Scope) Snapshot() Bindings {
	out := make(Bindings, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Parent returns the enclosing scope, nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) String() string { return "<scope>" }
