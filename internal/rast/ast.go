// Package rast implements the regex AST described in spec.md §3: an
// arena-addressed syntax tree built by internal/parse and consumed by
// internal/nfa. Nodes are never freed during compilation; cycles are
// impossible at this stage (they only appear once NFA/DFA edges are woven
// in), so the tree is a genuine tree, not a graph.
package rast

import (
	"fmt"
	"strings"

	"github.com/reparse-dev/reparse/internal/arena"
)

// NodeKind discriminates an AST node's variant.
type NodeKind int

const (
	And        NodeKind = iota // ordered concatenation of Children
	Or                         // alternation among Children (order kept for display only)
	Literal                    // a single Pattern
	Variable                   // a named capture
	ZeroOrOne                  // Child?
	Many                       // Child* (zero or more, greedy)
	OneOrMore                  // Child+
)

// VarKind distinguishes a plain `{x}` capture from a repeated `{x*}` one.
type VarKind int

const (
	Singular VarKind = iota
	Multiple
)

func (k VarKind) String() string {
	if k == Multiple {
		return "Multiple"
	}
	return "Singular"
}

// PatternKind discriminates the leaf match unit a Literal node carries.
type PatternKind int

const (
	Char        PatternKind = iota // exact character
	Range                          // inclusive [Lo, Hi] character range
	AnyChar                        // greedy wildcard `.`
	AnyCharLazy                    // variable-origin wildcard (self-loop), see spec.md §4.4
)

// Pattern is the leaf match unit of a Literal AST node, and later of an
// NFA pattern-edge.
type Pattern struct {
	Kind PatternKind
	Char rune // Kind == Char
	Lo   rune // Kind == Range
	Hi   rune // Kind == Range
}

func (p Pattern) String() string {
	switch p.Kind {
	case Char:
		return string(p.Char)
	case Range:
		return fmt.Sprintf("%c-%c", p.Lo, p.Hi)
	case AnyChar, AnyCharLazy:
		return "."
	default:
		return "?"
	}
}

// Matches reports whether r falls within the pattern (AnyChar/AnyCharLazy
// always match). Neither the compiler pipeline nor the generated scanner
// calls it; the scanner only ever consults compiled DFA edges.
func (p Pattern) Matches(r rune) bool {
	switch p.Kind {
	case Char:
		return r == p.Char
	case Range:
		return r >= p.Lo && r <= p.Hi
	case AnyChar, AnyCharLazy:
		return true
	default:
		return false
	}
}

// Node is one arena-addressed AST node.
type Node struct {
	Kind     NodeKind
	Children []arena.Index[Node] // And, Or
	Child    arena.Index[Node]   // ZeroOrOne, Many, OneOrMore
	Pattern  Pattern             // Literal
	Name     string              // Variable
	VarKind  VarKind             // Variable
}

// Tree is a complete regex AST: an arena plus its root index.
type Tree struct {
	Arena *arena.Arena[Node]
	Root  arena.Index[Node]
}

// NewTree wraps an arena and root index already built by the parser.
func NewTree(a *arena.Arena[Node], root arena.Index[Node]) *Tree {
	return &Tree{Arena: a, Root: root}
}

// String renders the tree back to surface syntax. Parentheses are inserted
// around every Or and around the operand of every postfix operator, so the
// rendering parses back to an equivalent tree (spec.md §8, testable
// property #2). A concatenation nested directly in another concatenation
// is rendered without parentheses and reparses flattened into its parent.
// It does not attempt to reproduce the original source text.
func (t *Tree) String() string {
	return t.render(t.Root)
}

func (t *Tree) render(idx arena.Index[Node]) string {
	n := t.Arena.Get(idx)
	switch n.Kind {
	case Literal:
		return renderPattern(n.Pattern)
	case Variable:
		if n.VarKind == Multiple {
			return fmt.Sprintf("{%s*}", n.Name)
		}
		return fmt.Sprintf("{%s}", n.Name)
	case And:
		var b strings.Builder
		for _, c := range n.Children {
			b.WriteString(t.render(c))
		}
		return b.String()
	case Or:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = t.render(c)
		}
		return "(" + strings.Join(parts, "|") + ")"
	case ZeroOrOne:
		return "(" + t.render(n.Child) + ")?"
	case Many:
		return "(" + t.render(n.Child) + ")*"
	case OneOrMore:
		return "(" + t.render(n.Child) + ")+"
	default:
		return "?"
	}
}

func renderPattern(p Pattern) string {
	switch p.Kind {
	case Char:
		if strings.ContainsRune(`{}()[]-?*+|.\`, p.Char) {
			return `\` + string(p.Char)
		}
		return string(p.Char)
	case Range:
		return fmt.Sprintf("[%c-%c]", p.Lo, p.Hi)
	case AnyChar, AnyCharLazy:
		return "."
	default:
		return "?"
	}
}

// VariableNames returns every capture name appearing in the tree, in
// left-to-right source order, without deduplicating — duplicate detection
// is the NFA builder's job (spec.md §4.3), not the AST's.
func (t *Tree) VariableNames() []string {
	var names []string
	var walk func(arena.Index[Node])
	walk = func(idx arena.Index[Node]) {
		n := t.Arena.Get(idx)
		switch n.Kind {
		case Variable:
			names = append(names, n.Name)
		case And, Or:
			for _, c := range n.Children {
				walk(c)
			}
		case ZeroOrOne, Many, OneOrMore:
			walk(n.Child)
		}
	}
	walk(t.Root)
	return names
}
