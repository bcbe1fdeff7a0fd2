// Package dfa implements the subset-construction and minimisation
// described in spec.md §4.4: an ε-NFA becomes a deterministic automaton
// whose states carry at most one variable tag, with ambiguous-variable
// detection performed at this stage (spec.md §9) because whether two
// captures collide depends on determinisation, not on parsing.
package dfa

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/reparse-dev/reparse/internal/arena"
	"github.com/reparse-dev/reparse/internal/diag"
	"github.com/reparse-dev/reparse/internal/invariant"
	"github.com/reparse-dev/reparse/internal/nfa"
	"github.com/reparse-dev/reparse/internal/rast"
)

// VarTag names the capture a DFA node is positioned inside of, if any.
type VarTag struct {
	Name string
	Kind rast.VarKind
}

// Edges is a DFA node's outgoing transition table: an explicit per-char map
// plus an optional default used when no explicit char matches (spec.md §3's
// "at most one default edge" invariant).
//
// DefaultIsLazy records which pattern the default edge was built from: a
// variable's own AnyCharLazy self-match (true), or a greedy `.` / nothing at
// all (false). Explicit per-char edges are never built from a variable's
// pattern (variables only ever compile to AnyCharLazy, which always lands in
// the default bucket), so only the default edge needs this distinction. The
// code generator uses it to tell "this char continues the variable already
// open on this state" apart from "this char crosses into or out of a
// capture", which the state's Variable tag alone cannot disambiguate once a
// capture's own node lingers in a set it merely happens to share with other
// live nodes (spec.md §4.5).
type Edges struct {
	Default       arena.Index[Node]
	HasDefault    bool
	DefaultIsLazy bool
	Table         map[rune]arena.Index[Node]
}

// Node is one arena-addressed DFA state.
type Node struct {
	Accepting bool
	Variable  *VarTag
	Edges     Edges
}

// Dfa is a complete, minimised deterministic automaton: an arena plus its
// root index. Every node reachable from Root via Edges is live; nodes
// retired during minimisation are simply unreachable garbage left in the
// arena (the arena never shrinks mid-compilation, per internal/arena's
// append-only contract).
type Dfa struct {
	Arena *arena.Arena[Node]
	Root  arena.Index[Node]
}

// Build runs subset construction over n, then a structural-equality
// minimisation fixpoint, and returns the resulting DFA. The only error
// this stage can raise is AmbiguousVariables: two differently-named
// captures reachable at the same automaton position (spec.md §4.4).
//
// source is the original pattern text, threaded through purely so a
// DfaError can render the same rustc-style snippet a ParseError does;
// ambiguity has no single token to underline, so the span is left zero.
func Build(n *nfa.Nfa, source string) (*Dfa, error) {
	b := &builder{
		nfa:    n,
		arena:  arena.New[Node](),
		byKey:  map[string]arena.Index[Node]{},
		source: source,
	}

	rootSet := canonicalize(nfa.EpsilonClosure(n, n.Root))
	rootIdx := b.materializePlaceholder(rootSet)

	for len(b.worklist) > 0 {
		key := b.worklist[0]
		b.worklist = b.worklist[1:]
		set := b.sets[key]
		node, err := b.buildNode(set)
		if err != nil {
			return nil, err
		}
		b.arena.Set(b.byKey[key], node)
	}

	minimize(b.arena)

	return &Dfa{Arena: b.arena, Root: rootIdx}, nil
}

type builder struct {
	nfa    *nfa.Nfa
	arena  *arena.Arena[Node]
	byKey  map[string]arena.Index[Node]
	sets   map[string][]arena.Index[nfa.Node]
	worklist []string
	source string
}

// materializePlaceholder returns the DFA index for set, inserting a
// placeholder and enqueueing it for transition computation if this is the
// first time set's canonical key has been seen. This is what lets the
// worklist tolerate cycles: a state can be referenced as a transition
// target before its own outgoing edges are known.
func (b *builder) materializePlaceholder(set []arena.Index[nfa.Node]) arena.Index[Node] {
	key := setKey(set)
	if idx, ok := b.byKey[key]; ok {
		return idx
	}
	idx := b.arena.Add(Node{})
	b.byKey[key] = idx
	if b.sets == nil {
		b.sets = map[string][]arena.Index[nfa.Node]{}
	}
	b.sets[key] = set
	b.worklist = append(b.worklist, key)
	return idx
}

// canonicalize sorts and dedupes an NFA index set so two equal sets always
// produce the same key regardless of discovery order.
func canonicalize(set []arena.Index[nfa.Node]) []arena.Index[nfa.Node] {
	seen := map[arena.Index[nfa.Node]]bool{}
	out := make([]arena.Index[nfa.Node], 0, len(set))
	for _, idx := range set {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func setKey(set []arena.Index[nfa.Node]) string {
	parts := make([]string, len(set))
	for i, idx := range set {
		parts[i] = strconv.Itoa(int(idx))
	}
	return strings.Join(parts, ",")
}

// buildNode computes one DFA state's accepting flag, variable tag, and
// outgoing edges from its underlying NFA index set (spec.md §4.4 steps 3
// and "Edge derivation").
func (b *builder) buildNode(set []arena.Index[nfa.Node]) (Node, error) {
	node := Node{Edges: Edges{Table: map[rune]arena.Index[Node]{}}}

	explicit := map[rune][]arena.Index[nfa.Node]{}
	var greedyDefault, lazyDefault []arena.Index[nfa.Node]
	var varTag *VarTag

	for _, idx := range set {
		n := b.nfa.Arena.Get(idx)
		if n.Accepting {
			node.Accepting = true
		}
		if n.Kind == nfa.Variable {
			if varTag != nil && varTag.Name != n.VarName {
				return Node{}, diag.NewAmbiguousVariablesError(varTag.Name, n.VarName, diag.Span{}, b.source)
			}
			varTag = &VarTag{Name: n.VarName, Kind: n.VarKind}
		}
		if n.Edge != nfa.OnPattern {
			continue
		}
		switch n.Pattern.Kind {
		case rast.Char:
			explicit[n.Pattern.Char] = append(explicit[n.Pattern.Char], n.Out...)
		case rast.Range:
			for r := n.Pattern.Lo; r <= n.Pattern.Hi; r++ {
				explicit[r] = append(explicit[r], n.Out...)
			}
		case rast.AnyChar:
			greedyDefault = append(greedyDefault, n.Out...)
		case rast.AnyCharLazy:
			lazyDefault = append(lazyDefault, n.Out...)
		default:
			invariant.Unreachable("unknown pattern kind %v", n.Pattern.Kind)
		}
	}
	node.Variable = varTag

	// Step 1: explicit-char buckets also receive the greedy default,
	// because `.` matches any char including ones with explicit edges.
	for c := range explicit {
		explicit[c] = append(explicit[c], greedyDefault...)
	}

	// Step 2: greedy wins over lazy when both are live in this state. Only
	// the lazy branch is ever driven by a variable's own pattern node, so
	// this also decides DefaultIsLazy for the resulting edge below.
	var defaultTargets []arena.Index[nfa.Node]
	defaultIsLazy := false
	if len(greedyDefault) > 0 {
		defaultTargets = greedyDefault
	} else {
		defaultTargets = lazyDefault
		defaultIsLazy = len(lazyDefault) > 0
	}

	chars := make([]rune, 0, len(explicit))
	for c := range explicit {
		chars = append(chars, c)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

	for _, c := range chars {
		closed := canonicalize(nfa.EpsilonClosureOf(b.nfa, explicit[c]))
		if len(closed) == 0 {
			continue
		}
		node.Edges.Table[c] = b.materializePlaceholder(closed)
	}

	if len(defaultTargets) > 0 {
		closed := canonicalize(nfa.EpsilonClosureOf(b.nfa, defaultTargets))
		if len(closed) > 0 {
			node.Edges.HasDefault = true
			node.Edges.Default = b.materializePlaceholder(closed)
			node.Edges.DefaultIsLazy = defaultIsLazy
		}
	}

	return node, nil
}

// minimize collapses structurally-identical DFA nodes in place: every edge
// anywhere in the arena that targets a retired duplicate is rewritten to
// its canonical representative (spec.md §4.4 "Minimisation").
//
// This is a structural-equality sweep, not partition refinement: it is
// simple and suffices because pattern DFAs stay small (spec.md §4.4 notes
// this is intentional).
func minimize(a *arena.Arena[Node]) {
	retired := map[arena.Index[Node]]arena.Index[Node]{}
	resolve := func(i arena.Index[Node]) arena.Index[Node] {
		for {
			canon, ok := retired[i]
			if !ok {
				return i
			}
			i = canon
		}
	}

	rewriteAll := func() {
		for _, idx := range a.All() {
			if _, dead := retired[idx]; dead {
				continue
			}
			n := a.Get(idx)
			if n.Edges.HasDefault {
				n.Edges.Default = resolve(n.Edges.Default)
			}
			for c, t := range n.Edges.Table {
				n.Edges.Table[c] = resolve(t)
			}
			a.Set(idx, n)
		}
	}

	for {
		rewriteAll()
		changed := false
		live := a.All()
		for i := 0; i < len(live); i++ {
			if _, dead := retired[live[i]]; dead {
				continue
			}
			for j := i + 1; j < len(live); j++ {
				if _, dead := retired[live[j]]; dead {
					continue
				}
				if structurallyEqual(a.Get(live[i]), a.Get(live[j])) {
					retired[live[j]] = live[i]
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	rewriteAll()
}

func structurallyEqual(a, b Node) bool {
	if a.Accepting != b.Accepting {
		return false
	}
	if (a.Variable == nil) != (b.Variable == nil) {
		return false
	}
	if a.Variable != nil && *a.Variable != *b.Variable {
		return false
	}
	if a.Edges.HasDefault != b.Edges.HasDefault {
		return false
	}
	if a.Edges.HasDefault && (a.Edges.Default != b.Edges.Default || a.Edges.DefaultIsLazy != b.Edges.DefaultIsLazy) {
		return false
	}
	if len(a.Edges.Table) != len(b.Edges.Table) {
		return false
	}
	for c, t := range a.Edges.Table {
		bt, ok := b.Edges.Table[c]
		if !ok || bt != t {
			return false
		}
	}
	return true
}

// States returns every live DFA node reachable from Root, in insertion-
// ordered flood-fill order (internal/arena.Walk), which is what gives the
// code generator its deterministic, byte-stable state ordering (spec.md §5).
func (d *Dfa) States() []arena.Index[Node] {
	return arena.Walk(d.Root, func(idx arena.Index[Node]) []arena.Index[Node] {
		n := d.Arena.Get(idx)
		chars := make([]rune, 0, len(n.Edges.Table))
		for c := range n.Edges.Table {
			chars = append(chars, c)
		}
		sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

		out := make([]arena.Index[Node], 0, len(chars)+1)
		for _, c := range chars {
			out = append(out, n.Edges.Table[c])
		}
		if n.Edges.HasDefault {
			out = append(out, n.Edges.Default)
		}
		return out
	})
}

// VariableNames returns every distinct capture name tagged anywhere in the
// DFA, in the order its state is first visited by States.
func (d *Dfa) VariableNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, idx := range d.States() {
		v := d.Arena.Get(idx).Variable
		if v != nil && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	}
	return names
}

// VariableKind returns the kind (Singular/Multiple) of name, and whether
// name was found at all.
func (d *Dfa) VariableKind(name string) (rast.VarKind, bool) {
	for _, idx := range d.States() {
		v := d.Arena.Get(idx).Variable
		if v != nil && v.Name == name {
			return v.Kind, true
		}
	}
	return 0, false
}

// String renders the DFA as a debug dump: one line per state, in States()
// order, listing its accepting flag, variable tag, and edges. Used by the
// `reparsegen explain` subcommand.
func (d *Dfa) String() string {
	var b strings.Builder
	ids := map[arena.Index[Node]]int{}
	states := d.States()
	for i, idx := range states {
		ids[idx] = i
	}
	for i, idx := range states {
		n := d.Arena.Get(idx)
		fmt.Fprintf(&b, "s%d:", i)
		if n.Accepting {
			b.WriteString(" accepting")
		}
		if n.Variable != nil {
			fmt.Fprintf(&b, " var=%s(%s)", n.Variable.Name, n.Variable.Kind)
		}
		chars := make([]rune, 0, len(n.Edges.Table))
		for c := range n.Edges.Table {
			chars = append(chars, c)
		}
		sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
		for _, c := range chars {
			fmt.Fprintf(&b, " %q->s%d", c, ids[n.Edges.Table[c]])
		}
		if n.Edges.HasDefault {
			fmt.Fprintf(&b, " default->s%d", ids[n.Edges.Default])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
