package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionSingleton(t *testing.T) {
	c := Single(Integer(3))
	v, ok := c.Singleton()
	require.True(t, ok)
	assert.Equal(t, Integer(3), v)

	_, ok = Collection{Integer(1), Integer(2)}.Singleton()
	assert.False(t, ok)
}

func TestUnionDeduplicatesByEquivalence(t *testing.T) {
	a := Collection{Integer(1), Integer(2), Integer(3)}
	b := Collection{Integer(3), Integer(4), Integer(5)}
	got := Union(a, b)
	want := Collection{Integer(1), Integer(2), Integer(3), Integer(4), Integer(5)}
	assert.True(t, CollectionsEqual(want, got))
}

func TestDistinctPreservesFirstOccurrenceOrder(t *testing.T) {
	c := Collection{Integer(1), Integer(2), Integer(1), Integer(3), Integer(2)}
	got := Distinct(c)
	want := Collection{Integer(1), Integer(2), Integer(3)}
	assert.True(t, CollectionsEqual(want, got))
}

func TestEqualCrossKindNumeric(t *testing.T) {
	d, err := NewDecimal("3.0")
	require.NoError(t, err)
	assert.True(t, Equal(Integer(3), d))
}

func TestEquivalentStringIgnoresCaseAndWhitespace(t *testing.T) {
	assert.True(t, Equivalent(String("Hello   World"), String("hello world")))
	assert.False(t, Equivalent(String("Hello"), String("World")))
}

func TestCollectionsEquivalentIgnoresOrder(t *testing.T) {
	a := Collection{Integer(1), Integer(2), Integer(3)}
	b := Collection{Integer(3), Integer(1), Integer(2)}
	assert.True(t, CollectionsEquivalent(a, b))
}

func TestCompareTemporalIndeterminateOnPrecisionMismatch(t *testing.T) {
	year, err := ParseDate("2020")
	require.NoError(t, err)
	full, err := ParseDate("2020-01-01")
	require.NoError(t, err)
	assert.Equal(t, CompareIndeterminate, CompareTemporal(year.T, full.T))
}

func TestCompareTemporalOrdersByCalendarFields(t *testing.T) {
	earlier, err := ParseDate("2020-01-01")
	require.NoError(t, err)
	later, err := ParseDate("2020-06-15")
	require.NoError(t, err)
	assert.Equal(t, CompareLess, CompareTemporal(earlier.T, later.T))
	assert.Equal(t, CompareGreater, CompareTemporal(later.T, earlier.T))
}

func TestParseDateTimeWithTimezone(t *testing.T) {
	dt, err := ParseDateTime("2024-03-10T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 2024, dt.T.Year)
	assert.Equal(t, 3, dt.T.Month)
	assert.Equal(t, 10, dt.T.Hour)
	assert.True(t, dt.T.HasTimezone)
	assert.Equal(t, 120, dt.T.TZOffsetMinutes)
}

func TestParseTimeOnly(t *testing.T) {
	tm, err := ParseTime("10:30:00")
	require.NoError(t, err)
	assert.Equal(t, 10, tm.T.Hour)
	assert.Equal(t, PrecisionSecond, tm.T.Precision)
}

func TestDecimalDivisionByZeroReportsZero(t *testing.T) {
	a, _ := NewDecimal("10")
	zero, _ := NewDecimal("0")
	_, isZero, err := a.Div(zero)
	require.NoError(t, err)
	assert.True(t, isZero)
}

func TestDecimalModMatchesDividendSign(t *testing.T) {
	a := DecimalFromInt64(-7)
	b := DecimalFromInt64(3)
	got, isZero, err := a.Mod(b)
	require.NoError(t, err)
	require.False(t, isZero)
	assert.True(t, got.IsNegative())
}

func TestFromJSONSplicesArraysAndBuildsMaps(t *testing.T) {
	doc := []byte(`{"resourceType":"Patient","name":[{"use":"official","given":["John","James"]}]}`)
	c, err := FromJSON(doc)
	require.NoError(t, err)
	require.Len(t, c, 1)
	m, ok := c[0].(Map)
	require.True(t, ok)
	assert.Equal(t, "Patient", m.TypeName)
	names := m.Get("name")
	require.Len(t, names, 1)
	nameMap := names[0].(Map)
	given := nameMap.Get("given")
	assert.Equal(t, Collection{String("John"), String("James")}, given)
}

func TestFromJSONTopLevelArraySplicesIntoCollection(t *testing.T) {
	c, err := FromJSON([]byte(`["a","b","c"]`))
	require.NoError(t, err)
	assert.Equal(t, Collection{String("a"), String("b"), String("c")}, c)
}

func TestFromJSONIntegerVsDecimal(t *testing.T) {
	c, err := FromJSON([]byte(`[1, 1.5]`))
	require.NoError(t, err)
	require.Len(t, c, 2)
	assert.Equal(t, Integer(1), c[0])
	_, ok := c[1].(Decimal)
	assert.True(t, ok)
}
