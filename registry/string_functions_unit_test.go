package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirpath/evalctx"
	"fhirpath/value"
)

func strCall(focus value.Collection, args ...value.Collection) Call {
	a := make([]Arg, len(args))
	for i, v := range args {
		a[i] = Arg{Mode: Eager, Value: v}
	}
	return Call{Ctx: evalctx.New(nil), Focus: focus, Args: a}
}

func TestSubstringWithAndWithoutLength(t *testing.T) {
	focus := value.Single(value.String("hello world"))
	out, _, err := evalSubstring(strCall(focus, value.Single(value.Integer(6))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("world")), out)

	out, _, err = evalSubstring(strCall(focus, value.Single(value.Integer(0)), value.Single(value.Integer(5))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("hello")), out)
}

func TestSubstringOutOfRangeStartYieldsEmpty(t *testing.T) {
	out, _, err := evalSubstring(strCall(value.Single(value.String("hi")), value.Single(value.Integer(50))))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestStartsWithEndsWithContains(t *testing.T) {
	focus := value.Single(value.String("hello world"))
	sw, _, err := stringPredicate(strings.HasPrefix)(strCall(focus, value.Single(value.String("hello"))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), sw)

	ew, _, err := stringPredicate(strings.HasSuffix)(strCall(focus, value.Single(value.String("world"))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), ew)
}

func TestUpperLower(t *testing.T) {
	focus := value.Single(value.String("MiXeD"))
	upper, _, err := stringMap(upperCaser.String)(strCall(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("MIXED")), upper)

	lower, _, err := stringMap(lowerCaser.String)(strCall(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("mixed")), lower)
}

func TestReplaceLiteral(t *testing.T) {
	focus := value.Single(value.String("a.b.c"))
	out, _, err := evalReplace(strCall(focus, value.Single(value.String(".")), value.Single(value.String("-"))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("a-b-c")), out)
}

func TestMatchesAndReplaceMatches(t *testing.T) {
	focus := value.Single(value.String("abc123"))
	matched, _, err := evalMatches(strCall(focus, value.Single(value.String(`\d+`))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Boolean(true)), matched)

	replaced, _, err := evalReplaceMatches(strCall(focus, value.Single(value.String(`\d+`)), value.Single(value.String("#"))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("abc#")), replaced)
}

func TestMatchesInvalidPatternIsArgumentTypeError(t *testing.T) {
	focus := value.Single(value.String("abc"))
	_, _, err := evalMatches(strCall(focus, value.Single(value.String("(unclosed"))))
	assert.Error(t, err)
}

func TestLengthCountsRunesNotBytes(t *testing.T) {
	focus := value.Single(value.String("héllo"))
	out, _, err := evalLength(strCall(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.Integer(5)), out)
}

func TestToCharsSplitsIntoSingleRuneStrings(t *testing.T) {
	focus := value.Single(value.String("ab"))
	out, _, err := evalToChars(strCall(focus))
	require.NoError(t, err)
	assert.Equal(t, value.Collection{value.String("a"), value.String("b")}, out)
}

func TestEncodeDecodeBase64RoundTrip(t *testing.T) {
	focus := value.Single(value.String("hello"))
	encoded, _, err := evalEncode(strCall(focus, value.Single(value.String("base64"))))
	require.NoError(t, err)

	encodedStr, _ := encoded.Singleton()
	decoded, _, err := evalDecode(strCall(value.Single(encodedStr), value.Single(value.String("base64"))))
	require.NoError(t, err)
	assert.Equal(t, value.Single(value.String("hello")), decoded)
}

func TestEncodeUnsupportedFormatErrors(t *testing.T) {
	focus := value.Single(value.String("hello"))
	_, _, err := evalEncode(strCall(focus, value.Single(value.String("rot13"))))
	assert.Error(t, err)
}

func TestStringFunctionsPropagateEmptyFocus(t *testing.T) {
	out, _, err := evalLength(strCall(nil))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())

	out, _, err = evalMatches(strCall(nil, value.Single(value.String("x"))))
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}
