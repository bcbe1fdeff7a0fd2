package invariant_test

import (
	"strings"
	"testing"

	"github.com/reparse-dev/reparse/internal/invariant"
)

func TestPreconditionPasses(t *testing.T) {
	invariant.Precondition(true, "should not panic")
}

func TestPreconditionPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		msg, ok := r.(string)
		if !ok || !strings.Contains(msg, "PRECONDITION VIOLATION") {
			t.Fatalf("unexpected panic value: %v", r)
		}
	}()
	invariant.Precondition(false, "index %d must be positive", -1)
}

func TestNotNilDetectsTypedNil(t *testing.T) {
	var p *int
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for typed nil")
		}
	}()
	invariant.NotNil(p, "p")
}

func TestInRange(t *testing.T) {
	invariant.InRange(5, 0, 10, "x")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	invariant.InRange(11, 0, 10, "x")
}
