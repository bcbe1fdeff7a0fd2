package parse_test

import (
	"testing"

	"github.com/reparse-dev/reparse/internal/arena"
	"github.com/reparse-dev/reparse/internal/parse"
	"github.com/reparse-dev/reparse/internal/rast"
)

func mustParse(t *testing.T, pattern string) *rast.Tree {
	t.Helper()
	tree, err := parse.Parse(pattern)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", pattern, err)
	}
	return tree
}

func TestParseEmptyPattern(t *testing.T) {
	tree := mustParse(t, "")
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.And || len(root.Children) != 0 {
		t.Fatalf("expected an empty And root, got %+v", root)
	}
}

func TestParseLiteralConcatenation(t *testing.T) {
	tree := mustParse(t, "abc")
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.And || len(root.Children) != 3 {
		t.Fatalf("expected And with 3 children, got %+v", root)
	}
}

func TestParseVariableSingularAndMultiple(t *testing.T) {
	tree := mustParse(t, "{foo}{bar*}")
	root := tree.Arena.Get(tree.Root)
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	foo := tree.Arena.Get(root.Children[0])
	bar := tree.Arena.Get(root.Children[1])
	if foo.Kind != rast.Variable || foo.Name != "foo" || foo.VarKind != rast.Singular {
		t.Fatalf("unexpected foo node: %+v", foo)
	}
	if bar.Kind != rast.Variable || bar.Name != "bar" || bar.VarKind != rast.Multiple {
		t.Fatalf("unexpected bar node: %+v", bar)
	}
}

func TestParseAlternation(t *testing.T) {
	tree := mustParse(t, "a|b|c")
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.Or || len(root.Children) != 3 {
		t.Fatalf("expected Or with 3 children, got %+v", root)
	}
}

func TestParsePostfixOperators(t *testing.T) {
	cases := []struct {
		pattern string
		kind    rast.NodeKind
	}{
		{"a?", rast.ZeroOrOne},
		{"a*", rast.Many},
		{"a+", rast.OneOrMore},
	}
	for _, c := range cases {
		tree := mustParse(t, c.pattern)
		root := tree.Arena.Get(tree.Root)
		if root.Kind != c.kind {
			t.Errorf("Parse(%q): root.Kind = %v, want %v", c.pattern, root.Kind, c.kind)
		}
	}
}

func TestParseGroupingDoesNotAddExtraNode(t *testing.T) {
	tree := mustParse(t, "(a)")
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.Literal {
		t.Fatalf("expected grouping to be transparent, got %+v", root)
	}
}

func TestParseCharClassRange(t *testing.T) {
	tree := mustParse(t, "[a-z]")
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.Literal || root.Pattern.Kind != rast.Range {
		t.Fatalf("expected a single Range literal, got %+v", root)
	}
	if root.Pattern.Lo != 'a' || root.Pattern.Hi != 'z' {
		t.Fatalf("unexpected range bounds: %+v", root.Pattern)
	}
}

func TestParseCharClassMultipleItemsBuildsOr(t *testing.T) {
	tree := mustParse(t, "[abc]")
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.Or || len(root.Children) != 3 {
		t.Fatalf("expected Or of 3, got %+v", root)
	}
}

func TestParseShortcutsExpand(t *testing.T) {
	tree := mustParse(t, `\d`)
	root := tree.Arena.Get(tree.Root)
	if root.Kind != rast.Literal || root.Pattern.Kind != rast.Range || root.Pattern.Lo != '0' || root.Pattern.Hi != '9' {
		t.Fatalf("expected digit range, got %+v", root)
	}

	tree = mustParse(t, `\w`)
	root = tree.Arena.Get(tree.Root)
	if root.Kind != rast.Or || len(root.Children) != 4 {
		t.Fatalf("expected \\w to expand to 4 alternatives, got %+v", root)
	}
}

func TestParseLeadingPostfixIsError(t *testing.T) {
	if _, err := parse.Parse("*a"); err == nil {
		t.Fatal("expected an error for a leading postfix operator")
	}
}

func TestParseStrayBarIsError(t *testing.T) {
	if _, err := parse.Parse("a|"); err == nil {
		t.Fatal("expected an error for a stray trailing '|'")
	}
}

func TestParseUnterminatedGroupIsError(t *testing.T) {
	if _, err := parse.Parse("(a"); err == nil {
		t.Fatal("expected an error for an unterminated group")
	}
}

func TestParseUnterminatedClassIsError(t *testing.T) {
	if _, err := parse.Parse("[a-z"); err == nil {
		t.Fatal("expected an error for an unterminated character class")
	}
}

func TestParseEmptyIdentifierIsError(t *testing.T) {
	if _, err := parse.Parse("{}"); err == nil {
		t.Fatal("expected an error for an empty capture name")
	}
}

func TestParseStrayClosingDelimiterIsError(t *testing.T) {
	if _, err := parse.Parse("a)"); err == nil {
		t.Fatal("expected an error for a stray ')'")
	}
}

func TestParseInvalidRangeIsError(t *testing.T) {
	if _, err := parse.Parse("[z-a]"); err == nil {
		t.Fatal("expected an error for an inverted character range")
	}
}

func TestParseTrailingInputIsError(t *testing.T) {
	if _, err := parse.Parse("a**"); err == nil {
		t.Fatal("expected an error for trailing input after the root expression")
	}
}

// TestRoundTrip exercises testable property #2 from spec.md §8: rendering
// a parsed tree back to surface syntax and reparsing it yields a
// structurally equal tree.
func TestRoundTrip(t *testing.T) {
	patterns := []string{
		"abc",
		"a|b|c",
		"a?",
		"a*",
		"a+",
		"{foo}",
		"{foo*}",
		"[a-z]",
		`\d`,
		"A{var}B{var2}",
	}
	for _, pattern := range patterns {
		tree := mustParse(t, pattern)
		rendered := tree.String()
		reparsed, err := parse.Parse(rendered)
		if err != nil {
			t.Fatalf("pattern %q rendered to %q which failed to reparse: %v", pattern, rendered, err)
		}
		if !structurallyEqual(tree, tree.Root, reparsed, reparsed.Root) {
			t.Fatalf("pattern %q: round trip through %q changed the tree", pattern, rendered)
		}
	}
}

func structurallyEqual(a *rast.Tree, ai arena.Index[rast.Node], b *rast.Tree, bi arena.Index[rast.Node]) bool {
	na, nb := a.Arena.Get(ai), b.Arena.Get(bi)
	if na.Kind != nb.Kind {
		return false
	}
	switch na.Kind {
	case rast.Literal:
		return na.Pattern == nb.Pattern
	case rast.Variable:
		return na.Name == nb.Name && na.VarKind == nb.VarKind
	case rast.And, rast.Or:
		if len(na.Children) != len(nb.Children) {
			return false
		}
		for i := range na.Children {
			if !structurallyEqual(a, na.Children[i], b, nb.Children[i]) {
				return false
			}
		}
		return true
	case rast.ZeroOrOne, rast.Many, rast.OneOrMore:
		return structurallyEqual(a, na.Child, b, nb.Child)
	default:
		return true
	}
}
