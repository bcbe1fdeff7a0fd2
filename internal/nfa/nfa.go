// Package nfa implements the Thompson-style construction described in
// spec.md §4.3: a depth-first walk of the regex AST that threads a
// predecessor node through each visit and returns the target node reached
// once that subtree matches.
package nfa

import (
	"fmt"
	"strings"

	"github.com/reparse-dev/reparse/internal/arena"
	"github.com/reparse-dev/reparse/internal/diag"
	"github.com/reparse-dev/reparse/internal/invariant"
	"github.com/reparse-dev/reparse/internal/rast"
)

// EdgeKind discriminates how a node is entered: via an epsilon transition
// (no input consumed) or by matching a Pattern against the current input
// character.
type EdgeKind int

const (
	Epsilon EdgeKind = iota
	OnPattern
)

// NodeKind discriminates a Simple node from one tagged with a capture.
type NodeKind int

const (
	Simple NodeKind = iota
	Variable
)

// Node is one arena-addressed NFA node. Out holds every unconditional
// successor; the edge is "traversed when this node's own incoming-edge
// kind matches the input" — i.e. Out describes what this node connects
// *to*, while Edge/Pattern describe how this node itself is *entered*.
type Node struct {
	Edge       EdgeKind
	Pattern    rast.Pattern // meaningful when Edge == OnPattern
	Out        []arena.Index[Node]
	Accepting  bool
	Kind       NodeKind
	VarName    string        // Kind == Variable
	VarKind    rast.VarKind  // Kind == Variable
}

// Nfa is a complete epsilon-NFA: an arena plus its root index. The root is
// always an epsilon node.
type Nfa struct {
	Arena *arena.Arena[Node]
	Root  arena.Index[Node]
}

// Build walks tree and produces its Thompson-construction NFA. The only
// error this stage can raise is DuplicateVariable: two distinct capture
// nodes sharing one name (spec.md §4.3's "duplicate-variable invariant").
func Build(tree *rast.Tree) (*Nfa, error) {
	b := &builder{tree: tree, arena: arena.New[Node]()}

	root := b.arena.Add(Node{Edge: Epsilon})
	target := b.compile(tree.Root, root)

	// The accepting flag must live on a fresh epsilon successor, not on
	// target itself: target's own Pattern (if any) still needs an Out edge
	// to transition along once it matches, and a node with no further Out
	// would have that final edge silently dropped by the DFA builder
	// (EpsilonClosureOf of an empty set is empty), firing accept one
	// character too early.
	accept := b.epsilonNode()
	b.connect(target, accept)
	b.markAccepting(accept)

	if err := b.checkDuplicateVariables(); err != nil {
		return nil, err
	}

	return &Nfa{Arena: b.arena, Root: root}, nil
}

type builder struct {
	tree  *rast.Tree
	arena *arena.Arena[Node]
}

func (b *builder) markAccepting(idx arena.Index[Node]) {
	n := b.arena.Get(idx)
	n.Accepting = true
	b.arena.Set(idx, n)
}

func (b *builder) connect(from, to arena.Index[Node]) {
	n := b.arena.Get(from)
	n.Out = append(n.Out, to)
	b.arena.Set(from, n)
}

func (b *builder) epsilonNode() arena.Index[Node] {
	return b.arena.Add(Node{Edge: Epsilon})
}

// compile walks one AST subtree and returns the NFA node reached once the
// subtree matches, having wired predecessor into the subtree's entry
// point(s).
func (b *builder) compile(astIdx arena.Index[rast.Node], predecessor arena.Index[Node]) arena.Index[Node] {
	n := b.tree.Arena.Get(astIdx)
	switch n.Kind {
	case rast.Literal:
		target := b.arena.Add(Node{Edge: OnPattern, Pattern: n.Pattern})
		b.connect(predecessor, target)
		return target

	case rast.Variable:
		target := b.arena.Add(Node{
			Edge:    OnPattern,
			Pattern: rast.Pattern{Kind: rast.AnyCharLazy},
			Kind:    Variable,
			VarName: n.Name,
			VarKind: n.VarKind,
		})
		b.connect(predecessor, target)
		b.connect(target, target) // self-loop: repeated consumption of the lazy wildcard
		return target

	case rast.And:
		cur := predecessor
		for _, child := range n.Children {
			cur = b.compile(child, cur)
		}
		if len(n.Children) == 0 {
			// Empty concatenation (only reachable for the whole-pattern
			// empty-match case): predecessor already is the target.
			return predecessor
		}
		return cur

	case rast.Or:
		joined := b.epsilonNode()
		for _, child := range n.Children {
			childTarget := b.compile(child, predecessor)
			b.connect(childTarget, joined)
		}
		return joined

	case rast.ZeroOrOne:
		joined := b.epsilonNode()
		b.connect(predecessor, joined)
		childTarget := b.compile(n.Child, predecessor)
		b.connect(childTarget, joined)
		return joined

	case rast.Many:
		iter := b.epsilonNode()
		joined := b.epsilonNode()
		b.connect(predecessor, iter)
		b.connect(predecessor, joined)
		childTarget := b.compile(n.Child, iter)
		b.connect(childTarget, iter)
		b.connect(childTarget, joined)
		return joined

	case rast.OneOrMore:
		iter := b.epsilonNode()
		joined := b.epsilonNode()
		b.connect(predecessor, iter)
		childTarget := b.compile(n.Child, iter)
		b.connect(childTarget, iter)
		b.connect(childTarget, joined)
		return joined

	default:
		invariant.Unreachable("unknown AST node kind %v", n.Kind)
		return 0
	}
}

// checkDuplicateVariables enforces spec.md §4.3's invariant: no two
// distinct variable nodes may share a name. Detected here (on the NFA)
// rather than on the AST because it is purely a name-collision check, not
// a determinization question — that is DFA-stage ambiguity (spec.md §4.4,
// §9).
func (b *builder) checkDuplicateVariables() error {
	seen := map[string]bool{}
	for _, idx := range b.arena.All() {
		n := b.arena.Get(idx)
		if n.Kind != Variable {
			continue
		}
		if seen[n.VarName] {
			return diag.NewDuplicateVariableError(n.VarName, diag.Span{}, "")
		}
		seen[n.VarName] = true
	}
	return nil
}

// EpsilonClosure returns the set of nodes reachable from start via epsilon
// edges only, including start itself, using the shared arena flood-fill.
func EpsilonClosure(n *Nfa, start arena.Index[Node]) []arena.Index[Node] {
	return arena.Walk(start, func(idx arena.Index[Node]) []arena.Index[Node] {
		node := n.Arena.Get(idx)
		// A node's own Out edges are free (epsilon) transitions only
		// when the node itself was entered without consuming input.
		// Once a node requires a Pattern match to be reached, its Out
		// edges are exactly the post-match transitions the DFA builder
		// computes separately — they are not part of this closure.
		if node.Edge != Epsilon {
			return nil
		}
		return node.Out
	})
}

// EpsilonClosureOf extends EpsilonClosure across a whole set of starting
// nodes (used by the DFA builder when materializing a state's own
// transitions).
func EpsilonClosureOf(n *Nfa, starts []arena.Index[Node]) []arena.Index[Node] {
	seen := map[arena.Index[Node]]bool{}
	var out []arena.Index[Node]
	for _, s := range starts {
		for _, idx := range EpsilonClosure(n, s) {
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	return out
}

// String renders the NFA as a debug dump: one line per node, in insertion-
// ordered flood-fill order (internal/arena.Walk) from the root, listing its
// incoming-edge kind, accepting flag, variable tag, and outgoing edges. Used
// by the `reparsegen explain` subcommand and by tests.
func (n *Nfa) String() string {
	order := arena.Walk(n.Root, func(idx arena.Index[Node]) []arena.Index[Node] {
		return n.Arena.Get(idx).Out
	})
	ids := map[arena.Index[Node]]int{}
	for i, idx := range order {
		ids[idx] = i
	}

	var b strings.Builder
	for i, idx := range order {
		node := n.Arena.Get(idx)
		fmt.Fprintf(&b, "n%d:", i)
		switch node.Edge {
		case Epsilon:
			b.WriteString(" eps")
		case OnPattern:
			fmt.Fprintf(&b, " on=%s", node.Pattern)
		}
		if node.Accepting {
			b.WriteString(" accepting")
		}
		if node.Kind == Variable {
			fmt.Fprintf(&b, " var=%s(%s)", node.VarName, node.VarKind)
		}
		for _, out := range node.Out {
			fmt.Fprintf(&b, " ->n%d", ids[out])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
