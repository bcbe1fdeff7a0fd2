// Package arena implements the append-only node store shared by the regex
// AST, the NFA, and the DFA. Nodes are addressed by an opaque, phantom-typed
// index rather than a pointer: arenas are append-only for the lifetime of
// one compilation, so an Index is never dangling and is cheap to copy,
// compare, and use as a map key.
package arena

import "github.com/reparse-dev/reparse/internal/invariant"

// Index addresses a node of type T inside an Arena[T]. The phantom type
// parameter exists purely so an NFA index and a DFA index are not
// interchangeable at compile time, even though both are plain ints
// underneath.
type Index[T any] int

// Arena is an append-only vector of T, addressable by Index[T].
type Arena[T any] struct {
	nodes []T
}

// New creates an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Add appends a node and returns its index.
func (a *Arena[T]) Add(node T) Index[T] {
	a.nodes = append(a.nodes, node)
	return Index[T](len(a.nodes) - 1)
}

// Get returns the node at idx.
func (a *Arena[T]) Get(idx Index[T]) T {
	invariant.InRange(int(idx), 0, len(a.nodes)-1, "arena index")
	return a.nodes[idx]
}

// Set overwrites the node at idx in place. Used to materialize a
// placeholder inserted before its transitions were known (the DFA
// worklist relies on this to break cycles while it is still computing
// a state's own outgoing edges).
func (a *Arena[T]) Set(idx Index[T], node T) {
	invariant.InRange(int(idx), 0, len(a.nodes)-1, "arena index")
	a.nodes[idx] = node
}

// Len returns the number of nodes in the arena.
func (a *Arena[T]) Len() int {
	return len(a.nodes)
}

// All returns every valid index in insertion order.
func (a *Arena[T]) All() []Index[T] {
	out := make([]Index[T], len(a.nodes))
	for i := range a.nodes {
		out[i] = Index[T](i)
	}
	return out
}

// Walk performs an insertion-ordered flood fill over the arena starting
// from start, calling neighbors to discover each node's successors. It
// visits each reachable index exactly once and returns them in the order
// first discovered (breadth-first), which is what gives ε-closures and the
// DFA's "iterate all nodes" queries (used by the code generator) their
// deterministic, byte-stable ordering.
func Walk[T any](start Index[T], neighbors func(Index[T]) []Index[T]) []Index[T] {
	visited := map[Index[T]]bool{start: true}
	order := []Index[T]{start}
	queue := []Index[T]{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range neighbors(cur) {
			if visited[next] {
				continue
			}
			visited[next] = true
			order = append(order, next)
			queue = append(queue, next)
		}
	}
	return order
}
