package fhirpath

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/evalctx"
	"fhirpath/registry"
	"fhirpath/value"
)

func patient() value.Map {
	return value.Map{
		TypeName: "Patient",
		Fields: map[string]value.Collection{
			"active": value.Single(value.Boolean(true)),
			"name":   value.Single(value.String("Ada Lovelace")),
		},
	}
}

func TestEvaluateStringNavigatesProperty(t *testing.T) {
	out, err := EvaluateString(context.Background(), "name", value.Single(patient()), Config{})
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("Ada Lovelace")), out)
}

func TestEvaluateStringSeedsResourceEnvironmentVariable(t *testing.T) {
	out, err := EvaluateString(context.Background(), "%resource.active", value.Single(patient()), Config{})
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}

func TestEvaluateStringAppliesUserVariables(t *testing.T) {
	cfg := Config{Variables: map[string]value.Collection{"threshold": value.Single(value.Integer(10))}}
	out, err := EvaluateString(context.Background(), "%threshold + 1", nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(11)), out)
}

func TestEvaluateStringEnvironmentOverridesDefaultResource(t *testing.T) {
	cfg := Config{Environment: map[string]value.Collection{"resource": value.Single(value.Integer(99))}}
	out, err := EvaluateString(context.Background(), "%resource", value.Single(patient()), cfg)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(99)), out)
}

func TestEvaluateStringRejectsCustomFunctionCollidingWithBuiltin(t *testing.T) {
	cfg := Config{CustomFunctions: map[string]registry.FunctionDef{
		"where": {MinArgs: 0, MaxArgs: 0, Eval: func(c registry.Call) (value.Collection, *evalctx.Context, error) { return nil, c.Ctx, nil }},
	}}
	_, err := EvaluateString(context.Background(), "where()", nil, cfg)
	assert.Error(t, err)
}

func TestEvaluateStringUsesCustomFunction(t *testing.T) {
	cfg := Config{CustomFunctions: map[string]registry.FunctionDef{
		"double": {
			MinArgs: 0, MaxArgs: 0,
			Eval: func(c registry.Call) (value.Collection, *evalctx.Context, error) {
				v, _ := c.Focus.Singleton()
				i := v.(value.Integer)
				return value.Single(value.Integer(i * 2)), c.Ctx, nil
			},
		},
	}}
	out, err := EvaluateString(context.Background(), "double()", value.Single(value.Integer(21)), cfg)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(42)), out)
}

func TestEvaluateParsesOnceAndRunsMany(t *testing.T) {
	node, err := Parse("name")
	require.NoError(t, err)
	out1, err := Evaluate(context.Background(), node, value.Single(patient()), Config{})
	require.NoError(t, err)
	out2, err := Evaluate(context.Background(), node, value.Single(patient()), Config{})
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestParseRecoveringAccumulatesErrorsAcrossTopLevelCall(t *testing.T) {
	node, errs := ParseRecovering("f(1 +, 2)")
	require.NotNil(t, node)
	assert.NotEmpty(t, errs)
}
