package dfa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reparse-dev/reparse/internal/dfa"
	"github.com/reparse-dev/reparse/internal/nfa"
	"github.com/reparse-dev/reparse/internal/parse"
	"github.com/reparse-dev/reparse/internal/rast"
)

// build compiles pattern all the way through the DFA stage, failing the
// test immediately on any error.
func build(t *testing.T, pattern string) *dfa.Dfa {
	t.Helper()
	tree, err := parse.Parse(pattern)
	require.NoError(t, err)
	n, err := nfa.Build(tree)
	require.NoError(t, err)
	d, err := dfa.Build(n, pattern)
	require.NoError(t, err)
	return d
}

// simulate is a reference interpreter used only by this test file to check
// the DFA's transition function directly, independent of the code
// generator. It is not part of the shipped package: spec.md's Non-goals
// exclude runtime interpretation as a product feature, but validating the
// automaton's shape before trusting generated code needs some way to run
// it.
func simulate(d *dfa.Dfa, s string) bool {
	cur := d.Root
	for _, r := range s {
		n := d.Arena.Get(cur)
		next, ok := n.Edges.Table[r]
		if !ok {
			if !n.Edges.HasDefault {
				return false
			}
			next = n.Edges.Default
		}
		cur = next
	}
	return d.Arena.Get(cur).Accepting
}

func TestRepetitionOperators(t *testing.T) {
	d := build(t, "A*B+C?")
	require.True(t, simulate(d, "BC"))
	require.True(t, simulate(d, "AAABBBC"))
	require.False(t, simulate(d, "C"))  // B+ requires at least one B
	require.False(t, simulate(d, "AC")) // same
}

func TestEmptyPatternAcceptsOnlyEmptyString(t *testing.T) {
	d := build(t, "")
	require.True(t, simulate(d, ""))
	require.False(t, simulate(d, "1"))
}

func TestLiteralConcatenation(t *testing.T) {
	d := build(t, "ab")
	require.True(t, simulate(d, "ab"))
	require.False(t, simulate(d, "a"))
	require.False(t, simulate(d, "abc"))
	require.False(t, simulate(d, "ax"))
}

func TestAlternation(t *testing.T) {
	d := build(t, "cat|dog")
	require.True(t, simulate(d, "cat"))
	require.True(t, simulate(d, "dog"))
	require.False(t, simulate(d, "cow"))
}

func TestCharClassAndRange(t *testing.T) {
	d := build(t, "[ABC]*")
	require.True(t, simulate(d, "ABCBA"))
	require.True(t, simulate(d, ""))
	require.False(t, simulate(d, "ABCD"))

	d = build(t, "[a-c]+")
	require.True(t, simulate(d, "abcba"))
	require.False(t, simulate(d, "abd"))
}

func TestGreedyWildcardBeatsExplicitAndLazy(t *testing.T) {
	// "." must still match 'a' even though 'a' also has an explicit edge
	// from the alternation; spec.md §4.4 step 1.
	d := build(t, ".|a")
	require.True(t, simulate(d, "a"))
	require.True(t, simulate(d, "z"))

	// Once x has taken one char, x's lazy wildcard and the greedy "." are
	// live in the same state; the greedy default wins and the lazy one is
	// dropped, so x cannot take a second char (spec.md §4.4 step 2).
	d = build(t, "A{x}.B")
	require.True(t, simulate(d, "A1zB"))
	require.False(t, simulate(d, "A12zB"))
}

func TestSingleCaptureTag(t *testing.T) {
	d := build(t, "A{x}B")
	kind, ok := d.VariableKind("x")
	require.True(t, ok)
	require.Equal(t, rast.Singular, kind)
	require.True(t, simulate(d, "A1B"))
	require.True(t, simulate(d, "A123B"))
	require.False(t, simulate(d, "AB")) // capture requires >=1 char
}

func TestMultipleCaptureTag(t *testing.T) {
	d := build(t, "({x*},?)*")
	kind, ok := d.VariableKind("x")
	require.True(t, ok)
	require.Equal(t, rast.Multiple, kind)
}

func TestAmbiguousVariablesIsRejected(t *testing.T) {
	tree, err := parse.Parse("A{foo}B?{bar}")
	require.NoError(t, err)
	n, err := nfa.Build(tree)
	require.NoError(t, err)
	_, err = dfa.Build(n, "A{foo}B?{bar}")
	require.Error(t, err)
}

func TestUnambiguousAdjacentCapturesAcrossFixedChar(t *testing.T) {
	// A{x}B{y} is fine: a fixed 'B' separates the two captures (spec.md §9).
	d := build(t, "A{x}B{y}")
	names := d.VariableNames()
	require.ElementsMatch(t, []string{"x", "y"}, names)
}

func TestNoStructurallyDuplicateStatesAfterMinimisation(t *testing.T) {
	d := build(t, "(a|a|a)*")
	states := d.States()
	for i := range states {
		for j := i + 1; j < len(states); j++ {
			ni, nj := d.Arena.Get(states[i]), d.Arena.Get(states[j])
			require.Falsef(t, sameShape(ni, nj), "states %d and %d were not merged by minimisation", i, j)
		}
	}
}

func sameShape(a, b dfa.Node) bool {
	if a.Accepting != b.Accepting || len(a.Edges.Table) != len(b.Edges.Table) {
		return false
	}
	if a.Edges.HasDefault != b.Edges.HasDefault {
		return false
	}
	return true
}

func TestCharEdgesAreDisjointPerState(t *testing.T) {
	d := build(t, "[a-c]|[b-d]")
	for _, idx := range d.States() {
		n := d.Arena.Get(idx)
		seen := map[rune]bool{}
		for c := range n.Edges.Table {
			require.False(t, seen[c], "char %q appeared twice in one state's edge map", c)
			seen[c] = true
		}
	}
}
