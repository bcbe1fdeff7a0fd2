// Package reparse provides the marker function that anchors a pattern
// compilation site in caller source: Scan(PATTERN, EXPR), written as a
// bare expression statement immediately after declaring every capture
// name the pattern uses. cmd/reparsegen locates these statements at
// build time, compiles PATTERN, and replaces the statement with the
// generated scanning code; Scan itself is never meant to execute.
package reparse

import "github.com/reparse-dev/reparse/internal/invariant"

// Scan is the compile-time marker invocation described in spec.md §6:
//
//	var result int
//	var operands []int
//	reparse.Scan("{result}: ({operands*} ?)+", line)
//
// pattern must be a string literal at the call site; input may be any
// expression evaluating to a string. `go generate` (via cmd/reparsegen)
// rewrites the call into the generated scanner before the package is ever
// compiled for real, the same way `go generate`-driven tools in this
// ecosystem replace their own marker calls (stringer's generated
// `_String()` table, mockery's mock constructors). If this function
// survives into a build, generation was never run.
func Scan(pattern string, input string) error {
	invariant.Unreachable("reparse.Scan(%q, ...) was not rewritten; run `go generate`", pattern)
	return nil
}
