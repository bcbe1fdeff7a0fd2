package diag_test

import (
	"strings"
	"testing"

	"github.com/reparse-dev/reparse/internal/diag"
)

func TestErrorFormatsKindAndMessage(t *testing.T) {
	err := diag.NewTokenError("trailing backslash", diag.Span{
		Start: diag.Position{Line: 1, Column: 5, Offset: 4},
	}, `ab\`)

	if !strings.HasPrefix(err.Error(), "TokenError: trailing backslash") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "-->") {
		t.Fatalf("expected a snippet with a location pointer, got: %s", err.Error())
	}
}

func TestDuplicateVariableError(t *testing.T) {
	err := diag.NewDuplicateVariableError("foo", diag.Span{}, "{foo}bar{foo}")
	if err.Kind != diag.KindNfa {
		t.Fatalf("Kind = %v, want KindNfa", err.Kind)
	}
	if err.Code != "duplicate-variable" {
		t.Fatalf("Code = %q", err.Code)
	}
}

func TestAmbiguousVariablesError(t *testing.T) {
	err := diag.NewAmbiguousVariablesError("foo", "bar", diag.Span{}, "A{foo}B?{bar}")
	if err.Kind != diag.KindDfa {
		t.Fatalf("Kind = %v, want KindDfa", err.Kind)
	}
	if !strings.Contains(err.Message, "foo") || !strings.Contains(err.Message, "bar") {
		t.Fatalf("message should name both variables: %s", err.Message)
	}
}
