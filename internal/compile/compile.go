// Package compile wires the five compiler stages (spec.md §2) into the
// single entry point cmd/reparsegen calls for each annotated call site:
// parse → NFA → DFA → codegen. It owns no algorithm of its own; it is
// the "Shared" glue that threads one pattern's source text through the
// pipeline and turns a CaptureDecl mismatch into the fuzzy-matched
// suggestion diagnostic described in SPEC_FULL.md's domain stack.
package compile

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/reparse-dev/reparse/internal/codegen"
	"github.com/reparse-dev/reparse/internal/dfa"
	"github.com/reparse-dev/reparse/internal/nfa"
	"github.com/reparse-dev/reparse/internal/parse"
)

// CaptureDecl is one binding the caller already declared in scope,
// discovered by cmd/reparsegen's go/ast scan of the statements preceding
// the reparse.Scan(...) call.
type CaptureDecl struct {
	Name   string
	GoType string // element type when the binding is a slice
	Slice  bool
}

// Result is everything cmd/reparsegen needs to splice generated code in
// place of a reparse.Scan(...) call site.
type Result struct {
	Source string // the rendered Go statements (codegen.Generate's output)
	Vars   []string
}

// Pattern runs the full pipeline over pattern and renders the scanning
// code that reads inputExpr and assigns into decls. It returns a
// *MissingDeclError (with a fuzzy-matched suggestion) if the pattern
// captures a name with no matching declaration, and otherwise forwards
// the error of the failing stage: a *diag.Error from parsing, NFA or DFA
// construction, or a plain error from codegen.
func Pattern(pattern, inputExpr string, decls []CaptureDecl) (*Result, error) {
	tree, err := parse.Parse(pattern)
	if err != nil {
		return nil, err
	}
	n, err := nfa.Build(tree)
	if err != nil {
		return nil, err
	}
	d, err := dfa.Build(n, pattern)
	if err != nil {
		return nil, err
	}

	declByName := make(map[string]CaptureDecl, len(decls))
	declNames := make([]string, 0, len(decls))
	for _, decl := range decls {
		declByName[decl.Name] = decl
		declNames = append(declNames, decl.Name)
	}

	names := d.VariableNames()
	sort.Strings(names)

	var captures []codegen.Capture
	for _, name := range names {
		decl, ok := declByName[name]
		if !ok {
			return nil, newMissingDeclError(name, declNames)
		}
		kind, _ := d.VariableKind(name)
		captures = append(captures, codegen.Capture{Name: name, Kind: kind, GoType: decl.GoType})
	}

	src, err := codegen.Generate(codegen.Input{Dfa: d, InputExpr: inputExpr, Captures: captures})
	if err != nil {
		return nil, err
	}

	return &Result{Source: src, Vars: names}, nil
}

// MissingDeclError is raised when a pattern captures a name with no
// matching declared binding in the caller's scope (spec.md §6's
// post-expansion contract). Suggestion is the in-scope identifier with the
// smallest edit distance (fuzzy.LevenshteinDistance) to the capture name,
// earliest declaration first on ties, and is empty when no identifier is
// within half the capture name's length.
type MissingDeclError struct {
	Capture    string
	Suggestion string
}

func (e *MissingDeclError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("capture %q has no matching declaration in scope", e.Capture)
	}
	return fmt.Sprintf("capture %q has no matching declaration in scope; did you mean %q?", e.Capture, e.Suggestion)
}

func newMissingDeclError(name string, candidates []string) *MissingDeclError {
	best, bestDist := "", len(name)/2+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return &MissingDeclError{Capture: name, Suggestion: best}
}
