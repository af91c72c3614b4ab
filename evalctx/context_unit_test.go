package evalctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/value"
)

func TestNewSeedsThisToInput(t *testing.T) {
	input := value.Collection{value.String("a"), value.String("b")}
	ctx := New(input)
	got, ok := ctx.GetVariable('$', "this")
	require.True(t, ok)
	assert.Equal(t, input, got)
}

func TestWithFocusDoesNotMutateParent(t *testing.T) {
	ctx := New(value.Collection{value.Integer(1)})
	child := ctx.WithFocus(value.Collection{value.Integer(2)})
	assert.Equal(t, value.Collection{value.Integer(1)}, ctx.Focus)
	assert.Equal(t, value.Collection{value.Integer(2)}, child.Focus)
}

func TestWithIteratorBindsThisAndIndex(t *testing.T) {
	ctx := New(value.Collection{value.Integer(1), value.Integer(2)})
	child := ctx.WithIterator(value.Integer(2), 1)

	this, ok := child.GetVariable('$', "this")
	require.True(t, ok)
	assert.Equal(t, value.Single(value.Integer(2)), this)

	idx, ok := child.GetVariable('$', "index")
	require.True(t, ok)
	assert.Equal(t, value.Single(value.Integer(1)), idx)

	assert.Equal(t, value.Single(value.Integer(2)), child.Focus)
}

func TestNestedScopeDoesNotLeakToParent(t *testing.T) {
	ctx := New(nil)
	child := ctx.SetVariable('%', "x", value.Single(value.Integer(5)))

	_, okParent := ctx.GetVariable('%', "x")
	assert.False(t, okParent)

	got, okChild := child.GetVariable('%', "x")
	require.True(t, okChild)
	assert.Equal(t, value.Single(value.Integer(5)), got)
}

func TestGetVariableUnboundReturnsFalse(t *testing.T) {
	ctx := New(nil)
	_, ok := ctx.GetVariable('$', "total")
	assert.False(t, ok)
}

func TestInnerIteratorBindingShadowsOuter(t *testing.T) {
	ctx := New(value.Collection{value.Integer(0)})
	outer := ctx.WithIterator(value.Integer(1), 0)
	inner := outer.WithIterator(value.Integer(2), 0)

	this, _ := inner.GetVariable('$', "this")
	assert.Equal(t, value.Single(value.Integer(2)), this)

	outerThis, _ := outer.GetVariable('$', "this")
	assert.Equal(t, value.Single(value.Integer(1)), outerThis)
}

func TestErrWithNoGoContextIsNil(t *testing.T) {
	ctx := New(nil)
	assert.NoError(t, ctx.Err())
}

func TestWithGoContextSurfacesCancellation(t *testing.T) {
	goCtx, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := New(nil).WithGoContext(goCtx)
	assert.Error(t, ctx.Err())
}
