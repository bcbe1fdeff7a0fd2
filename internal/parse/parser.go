// Package parse implements the recursive-descent parser described in
// spec.md §4.2: three precedence levels (alternation < concatenation <
// postfix), building the arena-addressed AST defined by internal/rast.
package parse

import (
	"fmt"
	"strings"

	"github.com/reparse-dev/reparse/internal/arena"
	"github.com/reparse-dev/reparse/internal/diag"
	"github.com/reparse-dev/reparse/internal/rast"
	"github.com/reparse-dev/reparse/internal/token"
)

type parser struct {
	tz     *token.Tokenizer
	cur    token.Token
	source string
	arena  *arena.Arena[rast.Node]
}

// Parse compiles a pattern's surface syntax into an AST. The empty pattern
// is the one case where a concatenation with zero values is legal (spec.md
// §4.2): it produces a tree whose single node is an empty And.
func Parse(pattern string) (*rast.Tree, error) {
	p := &parser{
		tz:     token.New(pattern),
		source: pattern,
		arena:  arena.New[rast.Node](),
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind == token.EOF {
		root := p.arena.Add(rast.Node{Kind: rast.And})
		return rast.NewTree(p.arena, root), nil
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.EOF {
		return nil, p.errorf("trailing-input", p.cur.Pos, "trailing input after pattern: unexpected %s", p.cur)
	}
	return rast.NewTree(p.arena, root), nil
}

func (p *parser) advance() error {
	tok, err := p.tz.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) span(pos token.Position) diag.Span {
	dp := diag.Position{Line: pos.Line, Column: pos.Column, Offset: pos.Offset}
	return diag.Span{Start: dp, End: dp}
}

func (p *parser) errorf(code string, pos token.Position, format string, args ...interface{}) error {
	return diag.NewParseError(code, fmt.Sprintf(format, args...), p.span(pos), p.source)
}

// or := and ('|' and)*
func (p *parser) parseOr() (arena.Index[rast.Node], error) {
	first, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	children := []arena.Index[rast.Node]{first}
	for p.cur.Kind == token.Bar {
		if err := p.advance(); err != nil {
			return 0, err
		}
		next, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return p.arena.Add(rast.Node{Kind: rast.Or, Children: children}), nil
}

// and := value+ (this call site never allows zero values: the sole
// zero-value case, the empty top-level pattern, is special-cased in Parse).
func (p *parser) parseAnd() (arena.Index[rast.Node], error) {
	var children []arena.Index[rast.Node]
	for p.startsValue() {
		v, err := p.parseValue()
		if err != nil {
			return 0, err
		}
		children = append(children, v)
	}
	if len(children) == 0 {
		return 0, p.unexpectedAtomError()
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return p.arena.Add(rast.Node{Kind: rast.And, Children: children}), nil
}

func (p *parser) startsValue() bool {
	switch p.cur.Kind {
	case token.Literal, token.Dot, token.ClassWhitespace, token.ClassDigit, token.ClassWord,
		token.LBrace, token.LParen, token.LBracket:
		return true
	default:
		return false
	}
}

// value := atom postfix?
func (p *parser) parseValue() (arena.Index[rast.Node], error) {
	atom, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	switch p.cur.Kind {
	case token.Question:
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.arena.Add(rast.Node{Kind: rast.ZeroOrOne, Child: atom}), nil
	case token.Star:
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.arena.Add(rast.Node{Kind: rast.Many, Child: atom}), nil
	case token.Plus:
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.arena.Add(rast.Node{Kind: rast.OneOrMore, Child: atom}), nil
	default:
		return atom, nil
	}
}

func (p *parser) parseAtom() (arena.Index[rast.Node], error) {
	switch p.cur.Kind {
	case token.Literal:
		ch := p.cur.Ch
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.arena.Add(rast.Node{Kind: rast.Literal, Pattern: rast.Pattern{Kind: rast.Char, Char: ch}}), nil

	case token.Dot:
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.arena.Add(rast.Node{Kind: rast.Literal, Pattern: rast.Pattern{Kind: rast.AnyChar}}), nil

	case token.ClassWhitespace, token.ClassDigit, token.ClassWord:
		kind := p.cur.Kind
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.expandShortcut(kind), nil

	case token.LBrace:
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.parseVariable()

	case token.LParen:
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return 0, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return 0, err
		}
		if p.cur.Kind != token.RParen {
			return 0, p.errorf("unterminated", pos, "unterminated group: expected ')'")
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		return inner, nil

	case token.LBracket:
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return 0, err
		}
		return p.parseCharClass(pos)

	default:
		return 0, p.unexpectedAtomError()
	}
}

// unexpectedAtomError classifies why no value could be parsed at the
// current position, matching the distinct error kinds spec.md §4.2 lists:
// stray '|', stray '-', unexpected postfix, unexpected closing delimiter,
// or a generic unexpected token.
func (p *parser) unexpectedAtomError() error {
	switch {
	case p.cur.Kind.IsPostfix():
		return p.errorf("unexpected-postfix", p.cur.Pos, "postfix operator %s with no preceding value", p.cur)
	case p.cur.Kind == token.Bar:
		return p.errorf("stray-bar", p.cur.Pos, "'|' with no preceding value")
	case p.cur.Kind == token.Minus:
		return p.errorf("stray-minus", p.cur.Pos, "'-' is only meaningful inside a character class")
	case p.cur.Kind == token.RParen:
		return p.errorf("unexpected-closing", p.cur.Pos, "unexpected ')'")
	case p.cur.Kind == token.RBracket:
		return p.errorf("unexpected-closing", p.cur.Pos, "unexpected ']'")
	case p.cur.Kind == token.RBrace:
		return p.errorf("unexpected-closing", p.cur.Pos, "unexpected '}'")
	case p.cur.Kind == token.EOF:
		return p.errorf("unexpected-eof", p.cur.Pos, "expected a pattern, found end of input")
	default:
		return p.errorf("unexpected-token", p.cur.Pos, "unexpected %s", p.cur)
	}
}

// parseVariable parses `ident '*'? '}'`; the opening '{' has already been
// consumed by parseAtom.
func (p *parser) parseVariable() (arena.Index[rast.Node], error) {
	startPos := p.cur.Pos
	var name strings.Builder
	for p.cur.Kind == token.Literal {
		name.WriteRune(p.cur.Ch)
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if name.Len() == 0 {
		return 0, p.errorf("empty-identifier", startPos, "capture name must not be empty")
	}

	kind := rast.Singular
	if p.cur.Kind == token.Star {
		kind = rast.Multiple
		if err := p.advance(); err != nil {
			return 0, err
		}
	}

	if p.cur.Kind != token.RBrace {
		return 0, p.errorf("unterminated", startPos, "unterminated variable: expected '}'")
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return p.arena.Add(rast.Node{Kind: rast.Variable, Name: name.String(), VarKind: kind}), nil
}

// parseCharClass parses `charClassBody ']'`; the opening '[' has already
// been consumed and its position is passed in for error reporting.
func (p *parser) parseCharClass(openPos token.Position) (arena.Index[rast.Node], error) {
	var items []arena.Index[rast.Node]
	for p.cur.Kind != token.RBracket {
		if p.cur.Kind == token.EOF {
			return 0, p.errorf("unterminated", openPos, "unterminated character class: expected ']'")
		}
		item, err := p.parseClassItem()
		if err != nil {
			return 0, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return 0, p.errorf("empty-char-class", openPos, "character class must contain at least one item")
	}
	if err := p.advance(); err != nil { // consume ']'
		return 0, err
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return p.arena.Add(rast.Node{Kind: rast.Or, Children: items}), nil
}

// item := char ('-' char)?
func (p *parser) parseClassItem() (arena.Index[rast.Node], error) {
	lo, err := p.classChar()
	if err != nil {
		return 0, err
	}
	if p.cur.Kind == token.Minus {
		rangePos := p.cur.Pos
		if err := p.advance(); err != nil {
			return 0, err
		}
		hi, err := p.classChar()
		if err != nil {
			return 0, err
		}
		if hi < lo {
			return 0, p.errorf("invalid-range", rangePos, "character range %q-%q is empty (start > end)", lo, hi)
		}
		return p.arena.Add(rast.Node{Kind: rast.Literal, Pattern: rast.Pattern{Kind: rast.Range, Lo: lo, Hi: hi}}), nil
	}
	return p.arena.Add(rast.Node{Kind: rast.Literal, Pattern: rast.Pattern{Kind: rast.Char, Char: lo}}), nil
}

// classChar consumes one character token valid inside a character class.
func (p *parser) classChar() (rune, error) {
	switch p.cur.Kind {
	case token.Minus:
		return 0, p.errorf("stray-minus", p.cur.Pos, "'-' must be preceded by a character to start a range")
	case token.ClassWhitespace, token.ClassDigit, token.ClassWord:
		return 0, p.errorf("unexpected-token", p.cur.Pos, "character class shortcuts are not allowed inside [...]")
	case token.RBracket, token.EOF:
		return 0, p.errorf("unterminated", p.cur.Pos, "unterminated character class: expected a character")
	default:
		r := p.cur.Ch
		if err := p.advance(); err != nil {
			return 0, err
		}
		return r, nil
	}
}

// expandShortcut expands \s \d \w into the Or-of-ranges/chars their
// surface syntax denotes (spec.md §4.2).
func (p *parser) expandShortcut(kind token.Kind) arena.Index[rast.Node] {
	lit := func(pat rast.Pattern) arena.Index[rast.Node] {
		return p.arena.Add(rast.Node{Kind: rast.Literal, Pattern: pat})
	}
	switch kind {
	case token.ClassDigit:
		return lit(rast.Pattern{Kind: rast.Range, Lo: '0', Hi: '9'})
	case token.ClassWhitespace:
		children := []arena.Index[rast.Node]{
			lit(rast.Pattern{Kind: rast.Char, Char: '\r'}),
			lit(rast.Pattern{Kind: rast.Char, Char: '\n'}),
			lit(rast.Pattern{Kind: rast.Char, Char: '\t'}),
			lit(rast.Pattern{Kind: rast.Char, Char: ' '}),
		}
		return p.arena.Add(rast.Node{Kind: rast.Or, Children: children})
	case token.ClassWord:
		children := []arena.Index[rast.Node]{
			lit(rast.Pattern{Kind: rast.Range, Lo: 'a', Hi: 'z'}),
			lit(rast.Pattern{Kind: rast.Range, Lo: 'A', Hi: 'Z'}),
			lit(rast.Pattern{Kind: rast.Range, Lo: '0', Hi: '9'}),
			lit(rast.Pattern{Kind: rast.Char, Char: '_'}),
		}
		return p.arena.Add(rast.Node{Kind: rast.Or, Children: children})
	default:
		panic("expandShortcut: not a class shortcut token")
	}
}
