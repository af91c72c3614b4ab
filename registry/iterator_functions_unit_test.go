package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/token"
	"fhirpath/value"
)

// fakeInterp evaluates a fixed node kind set sufficient for exercising
// iterator functions without a full Parser/Evaluator: Variable($this),
// Literal, and a Binary('>') comparison against $this.
type fakeInterp struct{ t *testing.T }

func (f fakeInterp) Eval(n ast.Node, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	switch node := n.(type) {
	case *ast.Literal:
		if node.Value == nil {
			return nil, ctx, nil
		}
		return value.Single(node.Value), ctx, nil
	case *ast.Variable:
		v, ok := ctx.GetVariable(node.Sigil, node.Name)
		if !ok {
			return nil, ctx, nil
		}
		return v, ctx, nil
	case *ast.Binary:
		left, _, err := f.Eval(node.Left, ctx)
		if err != nil {
			return nil, ctx, err
		}
		right, _, err := f.Eval(node.Right, ctx)
		if err != nil {
			return nil, ctx, err
		}
		lv, _ := left.Singleton()
		rv, _ := right.Singleton()
		li, _ := lv.(value.Integer)
		ri, _ := rv.(value.Integer)
		switch node.Op {
		case token.Gt:
			return value.Single(value.Boolean(li > ri)), ctx, nil
		case token.Lt:
			return value.Single(value.Boolean(li < ri)), ctx, nil
		}
	}
	return nil, ctx, nil
}

func thisGreaterThan(n int64) ast.Node {
	return &ast.Binary{
		Op:       token.Gt,
		OpLexeme: ">",
		Left:     &ast.Variable{Sigil: '$', Name: "this"},
		Right:    &ast.Literal{Value: value.Integer(n)},
	}
}

func callWith(ctx *evalctx.Context, focus value.Collection, nodes ...ast.Node) Call {
	args := make([]Arg, len(nodes))
	for i, n := range nodes {
		args[i] = Arg{Node: n, Mode: Lazy}
	}
	return Call{Ctx: ctx, Interp: fakeInterp{}, Focus: focus, Args: args}
}

func TestWhereFiltersByPredicate(t *testing.T) {
	ctx := evalctx.New(nil)
	focus := value.Collection{value.Integer(1), value.Integer(2), value.Integer(3)}
	out, _, err := evalWhere(callWith(ctx, focus, thisGreaterThan(1)))
	require.NoError(t, err)
	assert.Equal(t, value.Collection{value.Integer(2), value.Integer(3)}, out)
}

func TestAllVacuousTruthOnEmptyFocus(t *testing.T) {
	ctx := evalctx.New(nil)
	out, _, err := evalAll(callWith(ctx, nil, thisGreaterThan(0)))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}

func TestExistsNoArgsChecksEmptiness(t *testing.T) {
	ctx := evalctx.New(nil)
	c := Call{Ctx: ctx, Interp: fakeInterp{}, Focus: value.Collection{value.Integer(1)}}
	out, _, err := evalExists(c)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), out)
}

func TestQuantifierAllTrueRejectsNonBoolean(t *testing.T) {
	ctx := evalctx.New(nil)
	c := Call{Ctx: ctx, Focus: value.Collection{value.Integer(1)}, Pos: token.Position{}}
	_, _, err := quantifier(true, true)(c)
	assert.Error(t, err)
}

func TestIifSelectsTrueBranchOnly(t *testing.T) {
	ctx := evalctx.New(nil)
	c := callWith(ctx, nil)
	c.Args = []Arg{
		{Mode: Eager, Value: value.Single(value.Boolean(true))},
		{Mode: Lazy, Node: &ast.Literal{Value: value.Integer(7)}},
		{Mode: Lazy, Node: &ast.Literal{Value: value.Integer(8)}},
	}
	out, _, err := evalIif(c)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(7)), out)
}

func TestDefineVariableBindsInReturnedContext(t *testing.T) {
	ctx := evalctx.New(nil)
	c := callWith(ctx, value.Collection{value.Integer(9)})
	c.Args = []Arg{{Mode: Eager, Value: value.Single(value.String("x"))}}
	_, newCtx, err := evalDefineVariable(c)
	require.NoError(t, err)
	got, ok := newCtx.GetVariable('%', "x")
	require.True(t, ok)
	assert.Equal(t, value.Single(value.Integer(9)), got)
}

func TestNotNegatesSingletonBoolean(t *testing.T) {
	ctx := evalctx.New(nil)
	c := Call{Ctx: ctx, Focus: value.Single(value.Boolean(true))}
	out, _, err := evalNot(c)
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(false)), out)
}
