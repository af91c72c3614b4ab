package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/value"
)

func TestEvalEmptyPropagatesThroughPropertyNavigation(t *testing.T) {
	out := evalSrc(t, "name.given", nil)
	assert.True(t, out.IsEmpty())
}

func TestEvalEmptyPropagatesThroughArithmetic(t *testing.T) {
	out := evalSrc(t, "{} + 1", nil)
	assert.True(t, out.IsEmpty())
}

func TestEvalSequenceIsNavigatedLikeAFlatCollection(t *testing.T) {
	m := value.Map{Fields: map[string]value.Collection{"id": value.Single(value.String("a"))}}
	seq := value.Sequence{Items: []value.Value{m}}
	out := evalSrc(t, "id", value.Single(seq))
	assert.Equal(t, value.Single(value.String("a")), out)
}

func TestEvalTrailingUnaryOperatorOnEmptyIsEmpty(t *testing.T) {
	out := evalSrc(t, "-({})", nil)
	assert.True(t, out.IsEmpty())
}

func TestEvalDivisionByZeroIsEmpty(t *testing.T) {
	out := evalSrc(t, "1 / 0", nil)
	assert.True(t, out.IsEmpty())
}

func TestEvalIifLazyBranchNotEvaluatedUnlessSelected(t *testing.T) {
	out := evalSrc(t, "iif(true, 1, 1/0)", nil)
	require.Len(t, out, 1)
	assert.Equal(t, value.Integer(1), out[0])
}
