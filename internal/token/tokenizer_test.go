package token_test

import (
	"testing"

	"github.com/reparse-dev/reparse/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeLiteralsAndStructural(t *testing.T) {
	toks, err := token.Tokenize("A{var}B")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{
		token.Literal, token.LBrace, token.Literal, token.Literal, token.Literal, token.RBrace, token.Literal, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEscapeShortcuts(t *testing.T) {
	toks, err := token.Tokenize(`\s\d\w`)
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{token.ClassWhitespace, token.ClassDigit, token.ClassWord, token.EOF}
	got := kinds(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEscapeMetaCharacterIsLiteral(t *testing.T) {
	toks, err := token.Tokenize(`\{`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.Literal || toks[0].Ch != '{' {
		t.Fatalf("got %v, want Literal('{')", toks[0])
	}
}

func TestTrailingBackslashIsTokenError(t *testing.T) {
	_, err := token.Tokenize(`ab\`)
	if err == nil {
		t.Fatal("expected a tokenization error")
	}
}

func TestPostfixGrouping(t *testing.T) {
	toks, _ := token.Tokenize("?*+")
	for _, tok := range toks[:3] {
		if !tok.Kind.IsPostfix() {
			t.Fatalf("%v should be a postfix token", tok)
		}
	}
}

func TestEOFIsSticky(t *testing.T) {
	tz := token.New("")
	tok1, _ := tz.Next()
	tok2, _ := tz.Next()
	if tok1.Kind != token.EOF || tok2.Kind != token.EOF {
		t.Fatalf("expected EOF twice, got %v then %v", tok1, tok2)
	}
}
