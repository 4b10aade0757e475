// Package fibre implements the incremental evaluation engine described by
// the runtime: a tree of evaluation records ("fibres"), their lifecycle,
// the props-and-dependency memoization protocol, the hook system, the
// predecessor/successor dependency graph, and the tick-driven scheduler.
package fibre

import (
	"fmt"
	"strings"
)

// Key is a child's identity relative to its parent. It must be a Go
// comparable value (string, int, or any type usable as a map key) so it
// can index a parent's child map directly.
type Key any

// KeyPath is the ordered sequence of keys from the root to a fibre. It is
// globally unique per fibre for the lifetime of the tree.
type KeyPath []Key

func (p KeyPath) child(key Key) KeyPath {
	next := make(KeyPath, len(p)+1)
	copy(next, p)
	next[len(p)] = key
	return next
}

// String renders the path the way instrumentation and the visualization
// export display it: slash-separated segments.
func (p KeyPath) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, k := range p {
		parts[i] = fmt.Sprintf("%v", k)
	}
	return "/" + strings.Join(parts, "/")
}

// Equal reports whether two key paths name the same fibre.
func (p KeyPath) Equal(other KeyPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
