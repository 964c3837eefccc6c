package sigil

import (
	"fmt"
	"sync/atomic"
)

// Gensyms issues symbols guaranteed unique for the life of the counter.
// The counter is atomic, so concurrent callers never collide. Generated
// names start with "#:", which the reader rejects, so read source cannot
// spell them.
type Gensyms struct {
	counter uint64
}

// Next returns a fresh symbol "#:prefix$N".
func (g *Gensyms) Next(prefix string) Symbol {
	n := atomic.AddUint64(&g.counter, 1)
	return Symbol(fmt.Sprintf("#:%s$%d", prefix, n))
}

var defaultGensyms Gensyms

// Gensym returns a fresh symbol from the shared counter. Macros use
// gensyms for bindings that must not capture or collide with symbols in
// the expansion's environment.
func Gensym(prefix string) Symbol {
	return defaultGensyms.Next(prefix)
}
