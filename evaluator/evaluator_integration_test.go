package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/parser"
	"fhirpath/value"
)

func parseSrc(src string) (ast.Node, error) {
	return parser.Parse(src, testRegistry)
}

func patientFixture() value.Map {
	given := value.Collection{value.String("Ada"), value.String("Grace")}
	name := value.Map{Fields: map[string]value.Collection{
		"given":  given,
		"family": value.Single(value.String("Lovelace")),
	}}
	return value.Map{
		TypeName: "Patient",
		Fields: map[string]value.Collection{
			"name":   value.Single(name),
			"active": value.Single(value.Boolean(true)),
		},
	}
}

func TestParseAndEvaluateNestedPropertyChain(t *testing.T) {
	out := evalSrc(t, "name.family", value.Single(patientFixture()))
	assert.Equal(t, value.Single(value.String("Lovelace")), out)
}

func TestParseAndEvaluateWhereSelectPipeline(t *testing.T) {
	focus := value.Collection{patientFixture()}
	out := evalSrc(t, "name.given.where($this = 'Ada')", focus)
	assert.Equal(t, value.Single(value.String("Ada")), out)
}

func TestParseAndEvaluateBooleanOperator(t *testing.T) {
	focus := value.Collection{patientFixture()}
	out := evalSrc(t, "active and name.exists()", focus)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}

func TestParseAndEvaluateArithmeticWithGrouping(t *testing.T) {
	out := evalSrc(t, "(2 + 3) * 4", nil)
	assert.Equal(t, value.Single(value.Integer(20)), out)
}

func TestEvaluateEntryPointRespectsCancellation(t *testing.T) {
	node, err := parseSrc("1 + 1")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newEval().Evaluate(ctx, node, evalctx.New(nil))
	assert.Error(t, err)
}

func TestEvaluateAllPreservesOrderAcrossConcurrentRoots(t *testing.T) {
	node, err := parseSrc("active")
	require.NoError(t, err)
	roots := make([]value.Collection, 0, 5)
	for i := 0; i < 5; i++ {
		m := value.Map{Fields: map[string]value.Collection{
			"active": value.Single(value.Boolean(i%2 == 0)),
		}}
		roots = append(roots, value.Single(m))
	}
	out, err := newEval().EvaluateAll(context.Background(), node, roots, 3)
	require.NoError(t, err)
	require.Len(t, out, 5)
	for i, result := range out {
		want := value.Single(value.Boolean(i%2 == 0))
		assert.Equal(t, want, result, "root %d", i)
	}
}
