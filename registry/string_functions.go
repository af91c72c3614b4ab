package registry

import (
	"encoding/base64"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/value"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

// registerStringFunctions wires spec.md §4.E's string function family.
// Each is empty-propagating on its focus per Open Question decision 1 in
// SPEC_FULL.md §5 (`{}.matches('x')` → `{}`, applied uniformly).
func registerStringFunctions(r *Registry) {
	r.addFunction(FunctionDef{Name: "substring", MinArgs: 1, MaxArgs: 2, Eval: evalSubstring})
	r.addFunction(FunctionDef{Name: "indexOf", MinArgs: 1, MaxArgs: 1, Eval: evalIndexOf})
	r.addFunction(FunctionDef{Name: "startsWith", MinArgs: 1, MaxArgs: 1, Eval: stringPredicate(strings.HasPrefix)})
	r.addFunction(FunctionDef{Name: "endsWith", MinArgs: 1, MaxArgs: 1, Eval: stringPredicate(strings.HasSuffix)})
	r.addFunction(FunctionDef{Name: "contains", MinArgs: 1, MaxArgs: 1, Eval: stringPredicate(strings.Contains)})
	r.addFunction(FunctionDef{Name: "upper", MinArgs: 0, MaxArgs: 0, Eval: stringMap(upperCaser.String)})
	r.addFunction(FunctionDef{Name: "lower", MinArgs: 0, MaxArgs: 0, Eval: stringMap(lowerCaser.String)})
	r.addFunction(FunctionDef{Name: "replace", MinArgs: 2, MaxArgs: 2, Eval: evalReplace})
	r.addFunction(FunctionDef{Name: "matches", MinArgs: 1, MaxArgs: 1, Eval: evalMatches})
	r.addFunction(FunctionDef{Name: "replaceMatches", MinArgs: 2, MaxArgs: 2, Eval: evalReplaceMatches})
	r.addFunction(FunctionDef{Name: "length", MinArgs: 0, MaxArgs: 0, Eval: evalLength})
	r.addFunction(FunctionDef{Name: "toChars", MinArgs: 0, MaxArgs: 0, Eval: evalToChars})
	r.addFunction(FunctionDef{Name: "encode", MinArgs: 1, MaxArgs: 1, Eval: evalEncode})
	r.addFunction(FunctionDef{Name: "decode", MinArgs: 1, MaxArgs: 1, Eval: evalDecode})
}

// focusString coerces c.Focus to a singleton string, reporting ok=false
// (not an error) when focus is empty so callers can propagate emptiness.
func focusString(c Call, fnName string) (s string, ok bool, err error) {
	if c.Focus.IsEmpty() {
		return "", false, nil
	}
	v, isSingle := c.Focus.Singleton()
	if !isSingle {
		return "", false, ferrors.Evaluationf(c.Pos, "%s requires a singleton String focus", fnName)
	}
	sv, isString := v.(value.String)
	if !isString {
		return "", false, ferrors.TypeErrorf(c.Pos, "%s requires a String focus, got %s", fnName, v.Kind())
	}
	return string(sv), true, nil
}

func argString(c Call, idx int, fnName string) (string, error) {
	v, err := singleton(c.Args[idx].Value, fnName, c.Pos)
	if err != nil {
		return "", err
	}
	sv, ok := v.(value.String)
	if !ok {
		return "", ferrors.ArgumentTypef(c.Pos, nil, "%s requires a String argument, got %s", fnName, v.Kind())
	}
	return string(sv), nil
}

func stringPredicate(pred func(s, substr string) bool) func(Call) (value.Collection, *evalctx.Context, error) {
	return func(c Call) (value.Collection, *evalctx.Context, error) {
		s, ok, err := focusString(c, "string predicate")
		if err != nil || !ok {
			return nil, c.Ctx, err
		}
		arg, err := argString(c, 0, "string predicate")
		if err != nil {
			return nil, c.Ctx, err
		}
		return value.Single(value.Boolean(pred(s, arg))), c.Ctx, nil
	}
}

func stringMap(f func(string) string) func(Call) (value.Collection, *evalctx.Context, error) {
	return func(c Call) (value.Collection, *evalctx.Context, error) {
		s, ok, err := focusString(c, "string transform")
		if err != nil || !ok {
			return nil, c.Ctx, err
		}
		return value.Single(value.String(f(s))), c.Ctx, nil
	}
}

func evalSubstring(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "substring")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	start, err := singleIntArg(c, "substring")
	if err != nil {
		return nil, c.Ctx, err
	}
	runes := []rune(s)
	if start < 0 || start >= len(runes) {
		return nil, c.Ctx, nil
	}
	length := len(runes) - start
	if len(c.Args) == 2 {
		lv, err := singleton(c.Args[1].Value, "substring", c.Pos)
		if err != nil {
			return nil, c.Ctx, err
		}
		li, ok := lv.(value.Integer)
		if !ok {
			return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, nil, "substring requires an Integer argument, got %s", lv.Kind())
		}
		if n := int(li); n < length {
			length = n
		}
	}
	if length < 0 {
		length = 0
	}
	return value.Single(value.String(string(runes[start : start+length]))), c.Ctx, nil
}

func evalIndexOf(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "indexOf")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	sub, err := argString(c, 0, "indexOf")
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.Integer(strings.Index(s, sub))), c.Ctx, nil
}

func evalReplace(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "replace")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	pattern, err := argString(c, 0, "replace")
	if err != nil {
		return nil, c.Ctx, err
	}
	replacement, err := argString(c, 1, "replace")
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.String(strings.ReplaceAll(s, pattern, replacement))), c.Ctx, nil
}

func compileRegex(c Call, idx int, fnName string) (*regexp.Regexp, error) {
	pattern, err := argString(c, idx, fnName)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ferrors.ArgumentTypef(c.Pos, err, "%s: invalid regular expression %q", fnName, pattern)
	}
	return re, nil
}

func evalMatches(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "matches")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	re, err := compileRegex(c, 0, "matches")
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.Boolean(re.MatchString(s))), c.Ctx, nil
}

func evalReplaceMatches(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "replaceMatches")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	re, err := compileRegex(c, 0, "replaceMatches")
	if err != nil {
		return nil, c.Ctx, err
	}
	replacement, err := argString(c, 1, "replaceMatches")
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.String(re.ReplaceAllString(s, replacement))), c.Ctx, nil
}

func evalLength(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "length")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	return value.Single(value.Integer(len([]rune(s)))), c.Ctx, nil
}

func evalToChars(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "toChars")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	runes := []rune(s)
	out := make(value.Collection, len(runes))
	for i, r := range runes {
		out[i] = value.String(string(r))
	}
	return out, c.Ctx, nil
}

// evalEncode implements encode(format): 'base64' and 'urlbase64' are the
// two forms a FHIRPath host commonly needs; any other format name is an
// ArgumentTypeError rather than a silent passthrough.
func evalEncode(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "encode")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	format, err := argString(c, 0, "encode")
	if err != nil {
		return nil, c.Ctx, err
	}
	enc, err := base64Encoding(c, format)
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.String(enc.EncodeToString([]byte(s)))), c.Ctx, nil
}

func evalDecode(c Call) (value.Collection, *evalctx.Context, error) {
	s, ok, err := focusString(c, "decode")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	format, err := argString(c, 0, "decode")
	if err != nil {
		return nil, c.Ctx, err
	}
	enc, err := base64Encoding(c, format)
	if err != nil {
		return nil, c.Ctx, err
	}
	decoded, err := enc.DecodeString(s)
	if err != nil {
		return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, err, "decode: invalid %s payload", format)
	}
	return value.Single(value.String(string(decoded))), c.Ctx, nil
}

func base64Encoding(c Call, format string) (*base64.Encoding, error) {
	switch format {
	case "base64":
		return base64.StdEncoding, nil
	case "urlbase64":
		return base64.URLEncoding, nil
	default:
		return nil, ferrors.ArgumentTypef(c.Pos, nil, "encode/decode: unsupported format %q", format)
	}
}
