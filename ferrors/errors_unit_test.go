package ferrors

import (
	"testing"

	"github.com/pkg/errors"

	"fhirpath/token"
)

func TestErrorMessage(t *testing.T) {
	err := Syntaxf(token.Position{Line: 1, Col: 5, Offset: 4}, "expected %s, got %s", "identifier", "number")
	want := "syntactic: expected identifier, got number at 1:5"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestArgumentTypefPreservesCause(t *testing.T) {
	cause := errors.New("not a number")
	err := ArgumentTypef(token.Position{}, cause, "bad argument to toInteger")
	if errors.Cause(err) == nil {
		t.Fatalf("expected Cause to recover the wrapped error")
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := UnknownVariablef(token.Position{}, "frobnicate")
	if !Is(err, UnknownVar) {
		t.Fatalf("expected Is(err, UnknownVar) to be true")
	}
	if Is(err, Lexical) {
		t.Fatalf("expected Is(err, Lexical) to be false")
	}
}
