// Package codegen implements spec.md §4.5: it renders a minimised DFA into
// a block of host-language (Go) source that scans an input string in one
// linear pass and assigns captured substrings into the caller's already-
// declared bindings.
//
// Generation is template-composed, in the manner of the teacher's
// pkgs/generator/go_template.go: TemplateRegistry holds named component
// templates (header/arm/state-case/loop/termination), assembled into one
// master template and executed against a preprocessed TemplateData, then
// the result is run through go/format.Source before being spliced into
// the caller's file by cmd/reparsegen — Go tools universally re-format
// generated text rather than trust template whitespace.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/reparse-dev/reparse/internal/dfa"
	"github.com/reparse-dev/reparse/internal/invariant"
	"github.com/reparse-dev/reparse/internal/rast"
)

// Capture describes one capture name the pattern declares and the
// already-in-scope Go binding it must be assigned into.
type Capture struct {
	// Name is the caller's declared variable, used as-is on the left of
	// the generated assignment (spec.md §6's post-expansion contract).
	Name string
	Kind rast.VarKind
	// GoType is the scalar type to parse each captured substring into:
	// the element type of the caller's slice when Kind == Multiple. Only
	// a handful of standard-library conversions are supported (spec.md
	// §1: the numeric-parsing convention is delegated to the host
	// language's standard text-to-value routines, not owned by the core
	// pipeline).
	GoType string
}

// Input bundles what Generate needs beyond the DFA itself.
type Input struct {
	Dfa       *dfa.Dfa
	InputExpr string
	Captures  []Capture
}

// armData and stateData are the template-ready forms of a DFA node; all
// Go-syntax detail (rune literals, merged char lists, bookkeeping
// statements) is precomputed before the template ever runs, matching the
// teacher's PreprocessCommands convention of handing templates strings
// that are already display-ready.
type armData struct {
	CharLits    []string
	Target      int
	Bookkeeping string
}

type stateData struct {
	ID                int
	Arms              []armData
	HasDefault        bool
	DefaultArm        armData
	ExplicitChars     []string
	Accepting         bool
	AcceptBookkeeping string
}

type templateData struct {
	InputExpr    string
	InitialState int
	Captures     []captureData
	States       []stateData
	Finalize     []string
}

type captureData struct {
	Name     string
	VarIdent string
	Kind     string
}

// TemplateRegistry holds every named template component and composes them
// into the single "scan" master template on demand.
type TemplateRegistry struct {
	templates map[string]string
}

// NewTemplateRegistry registers every component template.
func NewTemplateRegistry() *TemplateRegistry {
	r := &TemplateRegistry{templates: map[string]string{}}
	r.templates["header"] = headerTemplate
	r.templates["arm"] = armTemplate
	r.templates["state-case"] = stateCaseTemplate
	r.templates["loop"] = loopTemplate
	r.templates["termination"] = terminationTemplate
	r.templates["master"] = masterTemplate
	return r
}

// GetAllTemplates concatenates every component plus the master template
// into the single source text text/template.Parse expects.
func (r *TemplateRegistry) GetAllTemplates() string {
	parts := make([]string, 0, len(r.templates))
	for _, t := range r.templates {
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}

var titleCaser = cases.Title(language.Und)

// Generate renders in's DFA into a Go function-literal body: a sequence
// of statements that scans __reparse_input (evaluating in.InputExpr
// exactly once), assigns every capture in in.Captures, and `return nil`s
// on success or a *scanerr error on failure. cmd/reparsegen wraps the
// result in `if err := func() error { <body> }(); err != nil { panic(err) }`
// when splicing it in place of the caller's reparse.Scan(...) statement.
func Generate(in Input) (string, error) {
	data, err := preprocess(in)
	if err != nil {
		return "", fmt.Errorf("codegen: %w", err)
	}

	registry := NewTemplateRegistry()
	tmpl, err := template.New("reparse-codegen").Parse(registry.GetAllTemplates())
	if err != nil {
		return "", fmt.Errorf("codegen: parsing templates: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "scan", data); err != nil {
		return "", fmt.Errorf("codegen: executing template: %w", err)
	}

	// Wrap in a throwaway func so go/format.Source, which only accepts
	// complete Go source, can validate and indent the snippet; the
	// wrapper is stripped back off below.
	wrapped := "package p\nfunc f() error {\n" + buf.String() + "\n}\n"
	formatted, err := format.Source([]byte(wrapped))
	if err != nil {
		return "", fmt.Errorf("codegen: generated invalid Go source: %w\n%s", err, wrapped)
	}

	return unwrap(string(formatted)), nil
}

// unwrap strips the "package p\nfunc f() error {" header and trailing "}"
// that Generate added purely so go/format.Source had a complete file to
// work with.
func unwrap(src string) string {
	start := strings.Index(src, "{")
	end := strings.LastIndex(src, "}")
	if start < 0 || end < 0 || end <= start {
		return src
	}
	return strings.TrimSpace(src[start+1 : end])
}

func preprocess(in Input) (templateData, error) {
	invariant.NotNil(in.Dfa, "Input.Dfa")

	states := in.Dfa.States()
	ids := make(map[int]int, len(states)) // dfa index (as int) -> sequential state id
	for i, idx := range states {
		ids[int(idx)] = i
	}

	captures := make([]captureData, 0, len(in.Captures))
	byName := map[string]Capture{}
	for _, c := range in.Captures {
		captures = append(captures, captureData{
			Name:     c.Name,
			VarIdent: sanitizeIdent(c.Name),
			Kind:     c.Kind.String(),
		})
		byName[c.Name] = c
	}
	for _, name := range in.Dfa.VariableNames() {
		if _, ok := byName[name]; !ok {
			return templateData{}, fmt.Errorf("pattern captures %q but no Capture was supplied for it", name)
		}
	}

	var out templateData
	out.InputExpr = in.InputExpr
	out.InitialState = ids[int(in.Dfa.Root)]
	out.Captures = captures

	// A capture's first byte is the one after whatever char this very
	// transition is consuming: __reparse_i still names the boundary/
	// separator rune that's being matched right now, not the rune the new
	// capture begins with.
	const openPosExpr = "__reparse_i + utf8.RuneLen(__reparse_r)"

	for i, idx := range states {
		node := in.Dfa.Arena.Get(idx)
		sd := stateData{ID: i, Accepting: node.Accepting}

		// Group explicit chars sharing one target into one merged arm
		// (spec.md §4.5: "arms with the same transition target are
		// merged into a single pattern list").
		byTarget := map[int][]rune{}
		var order []int
		chars := make([]rune, 0, len(node.Edges.Table))
		for c := range node.Edges.Table {
			chars = append(chars, c)
		}
		sort.Slice(chars, func(a, b int) bool { return chars[a] < chars[b] })
		sd.ExplicitChars = make([]string, len(chars))
		for i, c := range chars {
			sd.ExplicitChars[i] = runeLiteral(c)
			t := ids[int(node.Edges.Table[c])]
			if _, ok := byTarget[t]; !ok {
				order = append(order, t)
			}
			byTarget[t] = append(byTarget[t], c)
		}
		sort.Ints(order)
		for _, t := range order {
			rs := byTarget[t]
			lits := make([]string, len(rs))
			for i, r := range rs {
				lits[i] = runeLiteral(r)
			}
			targetVar := in.Dfa.Arena.Get(states[t]).Variable
			// An explicit char is always a fixed literal, never a variable's
			// own pattern (variables compile to AnyCharLazy exclusively, which
			// only ever lands on the default edge) — so this arm always
			// crosses a capture boundary, never continues one.
			bk := bookkeeping(node.Variable, targetVar, false, "__reparse_i", openPosExpr)
			sd.Arms = append(sd.Arms, armData{CharLits: lits, Target: t, Bookkeeping: bk})
		}

		if node.Edges.HasDefault {
			sd.HasDefault = true
			t := ids[int(node.Edges.Default)]
			targetVar := in.Dfa.Arena.Get(states[t]).Variable
			bk := bookkeeping(node.Variable, targetVar, node.Edges.DefaultIsLazy, "__reparse_i", openPosExpr)
			sd.DefaultArm = armData{Target: t, Bookkeeping: bk}
		}

		if node.Accepting {
			// End of input is never a continuation: there is no further char
			// to fold into an open capture, so any open variable closes here.
			bk := bookkeeping(node.Variable, nil, false, "len(__reparse_input)", "")
			sd.AcceptBookkeeping = bk
		}

		out.States = append(out.States, sd)
	}

	for _, c := range captures {
		info := byName[c.Name]
		stmt, err := finalizeStatement(info)
		if err != nil {
			return templateData{}, err
		}
		out.Finalize = append(out.Finalize, stmt)
	}

	return out, nil
}

// bookkeeping renders the variable-bookkeeping instruction(s) for one DFA
// transition, per the table in spec.md §4.5. from/to are the Variable tags
// of the transition's source and target states. closePosExpr is the Go
// expression for "the current byte index" (__reparse_i mid-scan,
// len(__reparse_input) at end-of-input). openPosExpr is the Go expression
// for the first byte of a *newly starting* capture (see preprocess's
// openPosExpr constant).
//
// continuation is true exactly when this transition is the one edge kind
// that can ever represent "one more character of an already-open capture":
// the default edge built from a variable's own AnyCharLazy self-match
// (dfa.Edges.DefaultIsLazy). Every other edge — every explicit char, and a
// default edge built from a greedy `.` — is a fixed, non-captured
// character by construction, so it always crosses a capture boundary.
//
// This distinction, not a from/to name comparison, is what bookkeeping
// must act on: a DFA state can carry a variable tag before any of that
// variable's own characters have been consumed (Many/OneOrMore's
// zero-repetition bypass puts the variable's node in the same epsilon
// closure as the state that precedes it), and a Multiple capture's
// separator can loop back into a state tagged with the very same name. In
// both cases from.Name == to.Name yet the edge taken is a fixed char, not
// the variable's own pattern — so treating "same name" as "continuing"
// would swallow literal separator/prefix characters into the capture
// (spec.md §8 scenario 3's "A*{foo}B+{bar}", and scenario 4/5's
// separator-looped Multiple captures). Conversely, a fixed char can
// legitimately transition directly from one variable's state into a
// differently-named one (spec.md §9's "A{x}B{y}": the state preceding the
// 'B' edge still counts as being inside x) — ambiguity between two
// variables live in the *same* state was already ruled out at
// DFA-construction time, so this close-then-open is always safe to emit.
func bookkeeping(from, to *dfa.VarTag, continuation bool, closePosExpr, openPosExpr string) string {
	if continuation {
		return ""
	}
	var stmts []string
	if from != nil {
		stmts = append(stmts, closeCapture(from, closePosExpr))
	}
	if to != nil {
		stmts = append(stmts, openCapture(to, openPosExpr))
	}
	return strings.Join(stmts, "\n")
}

func openCapture(to *dfa.VarTag, posExpr string) string {
	return fmt.Sprintf("__reparse_%sStart = %s", sanitizeIdent(to.Name), posExpr)
}

func closeCapture(from *dfa.VarTag, posExpr string) string {
	ident := sanitizeIdent(from.Name)
	if from.Kind == rast.Multiple {
		// Only non-empty occurrences are collected; a zero-width range is
		// dropped.
		return fmt.Sprintf(
			"if __reparse_%sStart < %s {\n__reparse_%sRanges = append(__reparse_%sRanges, [2]int{__reparse_%sStart, %s})\n}",
			ident, posExpr, ident, ident, ident, posExpr,
		)
	}
	return fmt.Sprintf("__reparse_%sEnd = %s", ident, posExpr)
}

// finalizeStatement renders the statement that slices a capture's
// recorded byte range(s) out of the input, converts each to info.GoType
// via the host's standard text-to-value routine, and assigns the result
// into info.Name (spec.md §4.5 Finalisation).
func finalizeStatement(info Capture) (string, error) {
	ident := sanitizeIdent(info.Name)
	convert, err := convertExpr("__reparse_text", info.GoType)
	if err != nil {
		return "", err
	}

	if info.Kind == rast.Singular {
		return fmt.Sprintf(`{
	__reparse_text := __reparse_input[__reparse_%sStart:__reparse_%sEnd]
	__reparse_parsed, __reparse_err := %s
	if __reparse_err != nil {
		return &scanerr.ParseValue{Capture: %q, Text: __reparse_text, Cause: __reparse_err}
	}
	%s = __reparse_parsed
}`, ident, ident, convert, info.Name), nil
	}

	return fmt.Sprintf(`for _, __reparse_range := range __reparse_%sRanges {
	__reparse_text := __reparse_input[__reparse_range[0]:__reparse_range[1]]
	__reparse_parsed, __reparse_err := %s
	if __reparse_err != nil {
		return &scanerr.ParseValue{Capture: %q, Text: __reparse_text, Cause: __reparse_err}
	}
	%s = append(%s, __reparse_parsed)
}`, ident, convert, info.Name, info.Name, info.Name), nil
}

// convertExpr renders the two-value (value, error) conversion expression
// for one of the standard-library text-to-value routines spec.md §1
// delegates to. goType is the caller's declared scalar type (or a
// Multiple capture's slice element type).
func convertExpr(textExpr, goType string) (string, error) {
	switch goType {
	case "string":
		return fmt.Sprintf("%s, error(nil)", textExpr), nil
	case "int":
		return fmt.Sprintf("strconv.Atoi(%s)", textExpr), nil
	case "int64":
		return fmt.Sprintf("strconv.ParseInt(%s, 10, 64)", textExpr), nil
	case "float64":
		return fmt.Sprintf("strconv.ParseFloat(%s, 64)", textExpr), nil
	case "bool":
		return fmt.Sprintf("strconv.ParseBool(%s)", textExpr), nil
	default:
		return "", fmt.Errorf("unsupported capture type %q: only string, int, int64, float64, bool are supported", goType)
	}
}

// sanitizeIdent title-cases name into the identifier fragment used for
// this capture's internal temp variables (__reparse_<Ident>Start, etc.),
// via golang.org/x/text/cases — the idiomatic replacement for hand-rolled
// ASCII upper-casing.
func sanitizeIdent(name string) string {
	if name == "" {
		return name
	}
	return titleCaser.String(name)
}

func runeLiteral(r rune) string {
	return fmt.Sprintf("%q", r)
}
