package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/registry"
	"fhirpath/token"
	"fhirpath/value"
)

var testRegistry = registry.NewStandard()

func newEval() *Evaluator { return New(testRegistry) }

func evalSrc(t *testing.T, src string, root value.Collection) value.Collection {
	t.Helper()
	node, err := parseSrc(src)
	require.NoError(t, err)
	out, _, err := newEval().Eval(node, evalctx.New(root))
	require.NoError(t, err)
	return out
}

func TestEvalLiteral(t *testing.T) {
	lit := &ast.Literal{Value: value.Integer(7)}
	out, _, err := newEval().Eval(lit, evalctx.New(nil))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(7)), out)
}

func TestEvalNullLiteralIsEmpty(t *testing.T) {
	out, _, err := newEval().Eval(&ast.Literal{}, evalctx.New(nil))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestEvalIdentifierNavigatesMapField(t *testing.T) {
	patient := value.Map{Fields: map[string]value.Collection{
		"name": value.Single(value.String("Ada")),
	}}
	out, _, err := newEval().Eval(&ast.Identifier{Name: "name"}, evalctx.New(value.Single(patient)))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("Ada")), out)
}

func TestEvalIdentifierOnMissingFieldIsEmpty(t *testing.T) {
	patient := value.Map{}
	out, _, err := newEval().Eval(&ast.Identifier{Name: "name"}, evalctx.New(value.Single(patient)))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestEvalTypeOrIdentifierPrefersExistingField(t *testing.T) {
	m := value.Map{Fields: map[string]value.Collection{"Patient": value.Single(value.String("nested"))}}
	out, _, err := newEval().Eval(&ast.TypeOrIdentifier{Name: "Patient"}, evalctx.New(value.Single(m)))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("nested")), out)
}

func TestEvalTypeOrIdentifierFiltersByRuntimeTypeWhenNoSuchField(t *testing.T) {
	patient := value.Map{TypeName: "Patient"}
	observation := value.Map{TypeName: "Observation"}
	focus := value.Collection{patient, observation}
	out, _, err := newEval().Eval(&ast.TypeOrIdentifier{Name: "Patient"}, evalctx.New(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Collection{patient}, out)
}

func TestEvalVariableThis(t *testing.T) {
	out, _, err := newEval().Eval(&ast.Variable{Sigil: '$', Name: "this"}, evalctx.New(value.Single(value.Integer(9))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(9)), out)
}

func TestEvalUnknownVariableIsError(t *testing.T) {
	_, _, err := newEval().Eval(&ast.Variable{Sigil: '%', Name: "nope"}, evalctx.New(nil))
	assert.Error(t, err)
}

func TestEvalUnaryMinus(t *testing.T) {
	out := evalSrc(t, "-(3)", nil)
	assert.Equal(t, value.Single(value.Integer(-3)), out)
}

func TestEvalArithmetic(t *testing.T) {
	out := evalSrc(t, "1 + 2 * 3", nil)
	assert.Equal(t, value.Single(value.Integer(7)), out)
}

func TestEvalDotPipelineNavigatesNestedField(t *testing.T) {
	inner := value.Map{Fields: map[string]value.Collection{"given": value.Single(value.String("Ada"))}}
	outer := value.Map{Fields: map[string]value.Collection{"name": value.Single(inner)}}
	out := evalSrc(t, "name.given", value.Single(outer))
	assert.Equal(t, value.Single(value.String("Ada")), out)
}

func TestEvalDotRestoresOuterFocusAfterChain(t *testing.T) {
	inner := value.Map{Fields: map[string]value.Collection{"given": value.Single(value.String("Ada"))}}
	outer := value.Map{Fields: map[string]value.Collection{"name": value.Single(inner)}}
	node, err := parseSrc("name.given")
	require.NoError(t, err)
	ctx := evalctx.New(value.Single(outer))
	_, retCtx, err := newEval().Eval(node, ctx)
	require.NoError(t, err)
	assert.Equal(t, ctx.Focus, retCtx.Focus)
}

func TestEvalIndexExpression(t *testing.T) {
	focus := value.Collection{value.Integer(10), value.Integer(20), value.Integer(30)}
	out, _, err := newEval().Eval(&ast.Index{
		Target:   &ast.Variable{Sigil: '$', Name: "this"},
		IndexExp: &ast.Literal{Value: value.Integer(1)},
	}, evalctx.New(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(20)), out)
}

func TestEvalIndexOutOfRangeIsEmpty(t *testing.T) {
	focus := value.Collection{value.Integer(10)}
	out, _, err := newEval().Eval(&ast.Index{
		Target:   &ast.Variable{Sigil: '$', Name: "this"},
		IndexExp: &ast.Literal{Value: value.Integer(5)},
	}, evalctx.New(focus))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestEvalCollectionLiteralConcatenatesElements(t *testing.T) {
	out := evalSrc(t, "{1, 2, 3}", nil)
	assert.Equal(t, value.Collection{value.Integer(1), value.Integer(2), value.Integer(3)}, out)
}

func TestEvalUnionDeduplicates(t *testing.T) {
	out := evalSrc(t, "{1, 2} | {2, 3}", nil)
	assert.Equal(t, value.Collection{value.Integer(1), value.Integer(2), value.Integer(3)}, out)
}

func TestEvalMembershipTestOnPrimitive(t *testing.T) {
	out := evalSrc(t, "1 is Integer", nil)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}

func TestEvalTypeCastReturnsEmptyOnMismatch(t *testing.T) {
	out := evalSrc(t, "1 as String", nil)
	assert.True(t, out.IsEmpty())
}

func TestEvalWhereFiltersFocusByPredicate(t *testing.T) {
	focus := value.Collection{value.Integer(1), value.Integer(2), value.Integer(3)}
	node := &ast.Function{Name: "where", Args: []ast.Node{
		&ast.Binary{Op: token.Gt, OpLexeme: ">", Left: &ast.Variable{Sigil: '$', Name: "this"}, Right: &ast.Literal{Value: value.Integer(1)}},
	}}
	out, _, err := newEval().Eval(node, evalctx.New(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Collection{value.Integer(2), value.Integer(3)}, out)
}

func TestEvalUnknownFunctionIsError(t *testing.T) {
	_, _, err := newEval().Eval(&ast.Function{Name: "doesNotExist"}, evalctx.New(nil))
	assert.Error(t, err)
}

func TestEvalRecursionDepthLimitExceeded(t *testing.T) {
	ctx := evalctx.New(nil)
	ctx.Limits.MaxRecursionDepth = 0
	_, _, err := newEval().Eval(&ast.Function{Name: "not"}, ctx)
	assert.Error(t, err)
}
