package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reparse-dev/reparse/internal/dfa"
	"github.com/reparse-dev/reparse/internal/nfa"
	"github.com/reparse-dev/reparse/internal/parse"
	"github.com/reparse-dev/reparse/internal/token"
)

// newExplainCmd implements SPEC_FULL.md's supplemented `-explain` display
// feature: it runs one pattern through tokenizer -> parser -> NFA -> DFA
// and prints each stage's intermediate structure, using the debug String()
// methods those packages already expose for tests. It never writes to any
// file; it is purely a diagnostic aid for understanding how a pattern
// compiles, the same role `-explain` plans played for the host compiler
// this tool's marker function was designed to plug into.
func newExplainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <pattern>",
		Short: "Print the tokens, AST, NFA, and DFA a pattern compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return explain(cmd, args[0])
		},
	}
	return cmd
}

func explain(cmd *cobra.Command, pattern string) error {
	out := cmd.OutOrStdout()

	tokens, err := token.Tokenize(pattern)
	if err != nil {
		return fmt.Errorf("tokenizing: %w", err)
	}
	fmt.Fprintf(out, "tokens:\n")
	for _, tok := range tokens {
		fmt.Fprintf(out, "  %s\n", tok)
	}

	tree, err := parse.Parse(pattern)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	fmt.Fprintf(out, "ast (round-tripped): %s\n", tree.String())

	n, err := nfa.Build(tree)
	if err != nil {
		return fmt.Errorf("building nfa: %w", err)
	}
	fmt.Fprintf(out, "nfa:\n%s", indent(n.String()))

	d, err := dfa.Build(n, pattern)
	if err != nil {
		return fmt.Errorf("building dfa: %w", err)
	}
	fmt.Fprintf(out, "dfa:\n%s", indent(d.String()))

	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
