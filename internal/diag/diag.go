// Package diag implements the compiler's error taxonomy: TokenError,
// ParseError, NfaError, and DfaError, each carrying the source span of the
// pattern literal they were raised against so the host compiler can attach
// the diagnostic to the right place in the caller's source file.
package diag

import (
	"fmt"
	"strings"
)

// Position is a 1-based line/column, 0-based byte-offset location inside a
// pattern literal.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span is a half-open [Start, End) range inside the pattern text.
type Span struct {
	Start Position
	End   Position
}

// Kind identifies which compiler stage raised the diagnostic.
type Kind int

const (
	KindToken Kind = iota
	KindParse
	KindNfa
	KindDfa
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "TokenError"
	case KindParse:
		return "ParseError"
	case KindNfa:
		return "NfaError"
	case KindDfa:
		return "DfaError"
	default:
		return "Error"
	}
}

// Error is the single diagnostic type surfaced by every compiler stage.
// Code distinguishes the specific error kind within a Kind (e.g. "stray-bar"
// vs "trailing-input" within ParseError) for callers that want to switch on
// it without parsing the message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Span    Span
	Source  string // the full pattern text, for snippet rendering
}

func (e *Error) Error() string {
	snippet := e.snippet()
	if snippet == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s\n%s", e.Kind, e.Message, snippet)
}

// snippet renders a one-line caret pointer under the offending span, in the
// style of rustc/clang diagnostics.
func (e *Error) snippet() string {
	if e.Source == "" {
		return ""
	}
	col := e.Span.Start.Column
	if col <= 0 {
		col = e.Span.Start.Offset + 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  --> %d:%d\n", e.Span.Start.Line, col)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "   | %s\n", e.Source)
	b.WriteString("   | ")
	if col > 0 && col <= len(e.Source)+1 {
		b.WriteString(strings.Repeat(" ", col-1) + "^")
	}
	return b.String()
}

// Token-stage errors.

func NewTokenError(msg string, span Span, source string) *Error {
	return &Error{Kind: KindToken, Code: "unterminated-escape", Message: msg, Span: span, Source: source}
}

// Parse-stage errors. Code names one of the distinct kinds the parser
// raises: unexpected-closing, stray-minus, stray-bar, unexpected-postfix,
// unterminated, empty-identifier, trailing-input, invalid-range,
// unexpected-eof, unexpected-token, empty-char-class.

func NewParseError(code, msg string, span Span, source string) *Error {
	return &Error{Kind: KindParse, Code: code, Message: msg, Span: span, Source: source}
}

// NFA-stage errors.

func NewDuplicateVariableError(name string, span Span, source string) *Error {
	return &Error{
		Kind:    KindNfa,
		Code:    "duplicate-variable",
		Message: fmt.Sprintf("variable %q is captured more than once", name),
		Span:    span,
		Source:  source,
	}
}

// DFA-stage errors.

func NewAmbiguousVariablesError(a, b string, span Span, source string) *Error {
	return &Error{
		Kind: KindDfa,
		Code: "ambiguous-variables",
		Message: fmt.Sprintf(
			"variables %q and %q are reachable at the same position; separate captures with at least one fixed character",
			a, b,
		),
		Span:   span,
		Source: source,
	}
}
