package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/value"
)

func typeCall(focus value.Collection, typeNode ast.Node) Call {
	return Call{
		Ctx:   evalctx.New(nil),
		Focus: focus,
		Args:  []Arg{{Node: typeNode, Mode: Lazy}},
	}
}

func TestTypeFunctionReturnsPrimitiveName(t *testing.T) {
	out, _, err := evalType(Call{Ctx: evalctx.New(nil), Focus: value.Single(value.Integer(1))})
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("Integer")), out)
}

func TestIsFnMatchesPrimitiveType(t *testing.T) {
	out, _, err := evalIsFn(typeCall(value.Single(value.String("x")), &ast.Identifier{Name: "String"}))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}

func TestIsFnRejectsMismatchedType(t *testing.T) {
	out, _, err := evalIsFn(typeCall(value.Single(value.Integer(1)), &ast.Identifier{Name: "String"}))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(false)), out)
}

func TestAsFnReturnsEmptyWhenTypeMismatches(t *testing.T) {
	out, _, err := evalAsFn(typeCall(value.Single(value.Integer(1)), &ast.Identifier{Name: "String"}))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestOfTypeFiltersMixedCollection(t *testing.T) {
	focus := value.Collection{value.Integer(1), value.String("a"), value.Integer(2)}
	out, _, err := evalOfType(typeCall(focus, &ast.Identifier{Name: "Integer"}))
	require.NoError(t, err)
	assert.Equal(t, value.Collection{value.Integer(1), value.Integer(2)}, out)
}

func TestOfTypeUsesNamespaceQualifiedReference(t *testing.T) {
	focus := value.Collection{value.Integer(1)}
	out, _, err := evalOfType(typeCall(focus, &ast.TypeReference{Namespace: "System", Name: "Integer"}))
	require.NoError(t, err)
	assert.Equal(t, focus, out)
}

type stubOracle struct{}

func (stubOracle) ResolveType(name string) (evalctx.TypeDescriptor, bool) {
	return evalctx.TypeDescriptor{Name: name}, true
}
func (stubOracle) IsA(typeName, ancestorName string) bool { return ancestorName == "Resource" }
func (stubOracle) PropertiesOf(typeName string) []string  { return nil }

func TestIsFnConsultsTypeOracleForResourceTypes(t *testing.T) {
	ctx := evalctx.New(nil)
	ctx.TypeOracle = stubOracle{}
	m := value.Map{TypeName: "Patient"}
	c := Call{Ctx: ctx, Focus: value.Single(m), Args: []Arg{{Node: &ast.Identifier{Name: "Resource"}, Mode: Lazy}}}
	out, _, err := evalIsFn(c)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}
