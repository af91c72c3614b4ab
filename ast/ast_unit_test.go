package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fhirpath/token"
	"fhirpath/value"
)

func TestLiteralStringQuotesValue(t *testing.T) {
	lit := &Literal{Value: value.String("John")}
	assert.Equal(t, "'John'", lit.String())
}

func TestLiteralNullPrintsEmptyBraces(t *testing.T) {
	lit := &Literal{}
	assert.Equal(t, "{}", lit.String())
}

func TestBinaryStringIsParenthesized(t *testing.T) {
	b := &Binary{
		Op:       token.Plus,
		OpLexeme: "+",
		Left:     &Literal{Value: value.Integer(1)},
		Right:    &Literal{Value: value.Integer(2)},
	}
	assert.Equal(t, "(1 + 2)", b.String())
}

func TestFunctionStringJoinsArgs(t *testing.T) {
	fn := &Function{
		Name: "where",
		Args: []Node{
			&Binary{Op: token.Eq, OpLexeme: "=", Left: &Identifier{Name: "use"}, Right: &Literal{Value: value.String("official")}},
		},
	}
	assert.Equal(t, "where((use = 'official'))", fn.String())
}

func TestUnionStringFlattensOperands(t *testing.T) {
	u := &Union{Operands: []Node{
		&Literal{Value: value.Integer(1)},
		&Literal{Value: value.Integer(2)},
		&Literal{Value: value.Integer(3)},
	}}
	assert.Equal(t, "(1 | 2 | 3)", u.String())
}

func TestMembershipTestAndTypeCastString(t *testing.T) {
	ty := &TypeReference{Namespace: "FHIR", Name: "Patient"}
	m := &MembershipTest{Expr: &Identifier{Name: "x"}, Type: ty}
	assert.Equal(t, "(x is FHIR.Patient)", m.String())

	c := &TypeCast{Expr: &Identifier{Name: "x"}, Type: ty}
	assert.Equal(t, "(x as FHIR.Patient)", c.String())
}

func TestIndexString(t *testing.T) {
	ix := &Index{Target: &Identifier{Name: "name"}, IndexExp: &Literal{Value: value.Integer(0)}}
	assert.Equal(t, "name[0]", ix.String())
}

func TestNodesCarryPosition(t *testing.T) {
	pos := token.Position{Line: 2, Col: 5, Offset: 10}
	var n Node = &Identifier{Position: pos, Name: "x"}
	assert.Equal(t, pos, n.Pos())
}
