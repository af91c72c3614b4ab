package registry

import (
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/token"
	"fhirpath/value"
)

// Precedence ladder from spec.md §4.B, high to low.
const (
	precTypeOp     = 90
	precMultiplic  = 80
	precAdditive   = 70
	precConcat     = 60
	precComparison = 50
	precEquality   = 40
	precMembership = 35
	precAnd        = 30
	precOrXor      = 20
	precImplies    = 10
	precUnion      = 5
)

func registerOperators(r *Registry) {
	// Type operators: precedence-only entries. `is`/`as` are parsed into
	// dedicated MembershipTest/TypeCast nodes, not generic Binary nodes
	// (spec.md §4.C item 4), so there is no Eval here for the Evaluator
	// to consult — the Parser only needs the precedence to decide when
	// `x + y is Integer` binds as `x + (y is Integer)` (spec.md §4.C).
	r.addInfix(InfixOperator{Symbol: "is", Kind: token.Is, Precedence: precTypeOp, Assoc: LeftAssoc}, true)
	r.addInfix(InfixOperator{Symbol: "as", Kind: token.As, Precedence: precTypeOp, Assoc: LeftAssoc}, true)

	r.addInfix(InfixOperator{Symbol: "*", Kind: token.Star, Precedence: precMultiplic, Assoc: LeftAssoc, Eval: arithmetic("*", mulOp)}, false)
	r.addInfix(InfixOperator{Symbol: "/", Kind: token.Slash, Precedence: precMultiplic, Assoc: LeftAssoc, Eval: arithmetic("/", divOp)}, false)
	r.addInfix(InfixOperator{Symbol: "div", Kind: token.Div, Precedence: precMultiplic, Assoc: LeftAssoc, Eval: arithmetic("div", intDivOp)}, true)
	r.addInfix(InfixOperator{Symbol: "mod", Kind: token.Mod, Precedence: precMultiplic, Assoc: LeftAssoc, Eval: arithmetic("mod", modOp)}, true)

	r.addInfix(InfixOperator{Symbol: "+", Kind: token.Plus, Precedence: precAdditive, Assoc: LeftAssoc, Eval: arithmetic("+", addOp)}, false)
	r.addInfix(InfixOperator{Symbol: "-", Kind: token.Minus, Precedence: precAdditive, Assoc: LeftAssoc, Eval: arithmetic("-", subOp)}, false)

	r.addInfix(InfixOperator{Symbol: "&", Kind: token.Concat, Precedence: precConcat, Assoc: LeftAssoc, Eval: evalConcat}, false)

	r.addInfix(InfixOperator{Symbol: "<", Kind: token.Lt, Precedence: precComparison, Assoc: LeftAssoc, Eval: comparison(func(c int) bool { return c < 0 })}, false)
	r.addInfix(InfixOperator{Symbol: ">", Kind: token.Gt, Precedence: precComparison, Assoc: LeftAssoc, Eval: comparison(func(c int) bool { return c > 0 })}, false)
	r.addInfix(InfixOperator{Symbol: "<=", Kind: token.Le, Precedence: precComparison, Assoc: LeftAssoc, Eval: comparison(func(c int) bool { return c <= 0 })}, false)
	r.addInfix(InfixOperator{Symbol: ">=", Kind: token.Ge, Precedence: precComparison, Assoc: LeftAssoc, Eval: comparison(func(c int) bool { return c >= 0 })}, false)

	r.addInfix(InfixOperator{Symbol: "=", Kind: token.Eq, Precedence: precEquality, Assoc: LeftAssoc, Eval: evalEquals(false)}, false)
	r.addInfix(InfixOperator{Symbol: "!=", Kind: token.Ne, Precedence: precEquality, Assoc: LeftAssoc, Eval: evalEquals(true)}, false)
	r.addInfix(InfixOperator{Symbol: "~", Kind: token.Equiv, Precedence: precEquality, Assoc: LeftAssoc, Eval: evalEquivalent(false)}, false)
	r.addInfix(InfixOperator{Symbol: "!~", Kind: token.NEquiv, Precedence: precEquality, Assoc: LeftAssoc, Eval: evalEquivalent(true)}, false)

	r.addInfix(InfixOperator{Symbol: "in", Kind: token.In, Precedence: precMembership, Assoc: LeftAssoc, Eval: evalIn}, true)
	r.addInfix(InfixOperator{Symbol: "contains", Kind: token.Contains, Precedence: precMembership, Assoc: LeftAssoc, Eval: evalContainsOp}, true)

	r.addInfix(InfixOperator{Symbol: "and", Kind: token.And, Precedence: precAnd, Assoc: LeftAssoc, Eval: evalAnd}, true)
	r.addInfix(InfixOperator{Symbol: "or", Kind: token.Or, Precedence: precOrXor, Assoc: LeftAssoc, Eval: evalOr}, true)
	r.addInfix(InfixOperator{Symbol: "xor", Kind: token.Xor, Precedence: precOrXor, Assoc: LeftAssoc, Eval: evalXor}, true)
	r.addInfix(InfixOperator{Symbol: "implies", Kind: token.Implies, Precedence: precImplies, Assoc: RightAssoc, Eval: evalImplies}, true)

	// Union `|` is parsed into a dedicated Union node (spec.md §4.C item
	// 5), so, like is/as, this is a precedence-only entry; the Evaluator
	// never dispatches a Binary(Pipe, ...) node through it.
	r.addInfix(InfixOperator{Symbol: "|", Kind: token.Pipe, Precedence: precUnion, Assoc: LeftAssoc}, false)

	r.addPrefix(PrefixOperator{Symbol: "+", Kind: token.Plus, Eval: unaryPlus})
	r.addPrefix(PrefixOperator{Symbol: "-", Kind: token.Minus, Eval: unaryMinus})
}

func toDecimal(v value.Value) (value.Decimal, bool) {
	switch x := v.(type) {
	case value.Integer:
		return value.DecimalFromInt64(int64(x)), true
	case value.Decimal:
		return x, true
	default:
		return value.Decimal{}, false
	}
}

func bothInteger(a, b value.Value) bool {
	_, aok := a.(value.Integer)
	_, bok := b.(value.Integer)
	return aok && bok
}

// decimalOp performs one arithmetic step, reporting isZero when the
// result is defined-empty because of a zero divisor (spec.md §4.E:
// "division by zero yields empty... not an error").
type decimalOp func(a, b value.Decimal) (result value.Decimal, isZero bool, err error)

func mulOp(a, b value.Decimal) (value.Decimal, bool, error) { v, err := a.Mul(b); return v, false, err }
func addOp(a, b value.Decimal) (value.Decimal, bool, error) { v, err := a.Add(b); return v, false, err }
func subOp(a, b value.Decimal) (value.Decimal, bool, error) { v, err := a.Sub(b); return v, false, err }
func divOp(a, b value.Decimal) (value.Decimal, bool, error)    { return a.Div(b) }
func intDivOp(a, b value.Decimal) (value.Decimal, bool, error) { return a.IntDiv(b) }
func modOp(a, b value.Decimal) (value.Decimal, bool, error)    { return a.Mod(b) }

// arithmetic implements spec.md §4.E's arithmetic rule: empty on either
// side yields empty; otherwise both sides are coerced to a singleton
// number, promoted to Decimal if mixed, division by zero yields empty.
func arithmetic(symbol string, op decimalOp) func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	return func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
		if left.IsEmpty() || right.IsEmpty() {
			return nil, nil
		}
		lv, lok := left.Singleton()
		rv, rok := right.Singleton()
		if !lok || !rok {
			return nil, ferrors.TypeErrorf(token.Position{}, "operator %q requires singleton operands", symbol)
		}
		ld, lIsNum := toDecimal(lv)
		rd, rIsNum := toDecimal(rv)
		if !lIsNum || !rIsNum {
			return nil, ferrors.TypeErrorf(token.Position{}, "operator %q requires numeric operands, got %s and %s", symbol, lv.Kind(), rv.Kind())
		}
		result, isZero, err := op(ld, rd)
		if err != nil {
			return nil, ferrors.Evaluationf(token.Position{}, "operator %q failed: %v", symbol, err)
		}
		if isZero {
			return nil, nil
		}
		if bothInteger(lv, rv) && symbol != "/" {
			i, convErr := result.Int64()
			if convErr == nil {
				return value.Single(value.Integer(i)), nil
			}
		}
		return value.Single(result), nil
	}
}

func unaryPlus(ctx *evalctx.Context, operand value.Collection) (value.Collection, error) {
	if operand.IsEmpty() {
		return nil, nil
	}
	v, ok := operand.Singleton()
	if !ok {
		return nil, ferrors.TypeErrorf(token.Position{}, "unary '+' requires a singleton")
	}
	if _, ok := toDecimal(v); !ok {
		return nil, ferrors.TypeErrorf(token.Position{}, "unary '+' requires a numeric operand, got %s", v.Kind())
	}
	return value.Single(v), nil
}

func unaryMinus(ctx *evalctx.Context, operand value.Collection) (value.Collection, error) {
	if operand.IsEmpty() {
		return nil, nil
	}
	v, ok := operand.Singleton()
	if !ok {
		return nil, ferrors.TypeErrorf(token.Position{}, "unary '-' requires a singleton")
	}
	switch x := v.(type) {
	case value.Integer:
		return value.Single(value.Integer(-x)), nil
	case value.Decimal:
		return value.Single(x.Neg()), nil
	default:
		return nil, ferrors.TypeErrorf(token.Position{}, "unary '-' requires a numeric operand, got %s", v.Kind())
	}
}

// evalConcat implements `&`: empty operands are treated as the empty
// string, not empty-propagated (spec.md §4.E, DESIGN.md Open Question 3).
func evalConcat(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	ls, err := concatOperandString(left)
	if err != nil {
		return nil, err
	}
	rs, err := concatOperandString(right)
	if err != nil {
		return nil, err
	}
	return value.Single(value.String(ls + rs)), nil
}

func concatOperandString(c value.Collection) (string, error) {
	if c.IsEmpty() {
		return "", nil
	}
	v, ok := c.Singleton()
	if !ok {
		return "", ferrors.TypeErrorf(token.Position{}, "operator '&' requires singleton string operands")
	}
	s, ok := v.(value.String)
	if !ok {
		return "", ferrors.TypeErrorf(token.Position{}, "operator '&' requires string operands, got %s", v.Kind())
	}
	return string(s), nil
}

// comparison implements `< > <= >=` (spec.md §4.E): empty on either side
// yields empty; strings compare lexicographically, dates by calendrical
// order with precision-aware equality, numbers with Cmp; any other kind,
// booleans included, is a TypeError.
func comparison(accept func(cmp int) bool) func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	return func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
		if left.IsEmpty() || right.IsEmpty() {
			return nil, nil
		}
		lv, lok := left.Singleton()
		rv, rok := right.Singleton()
		if !lok || !rok {
			return nil, ferrors.TypeErrorf(token.Position{}, "comparison requires singleton operands")
		}
		cmp, indeterminate, err := compareValues(lv, rv)
		if err != nil {
			return nil, err
		}
		if indeterminate {
			return nil, nil
		}
		return value.Single(value.Boolean(accept(cmp))), nil
	}
}

func compareValues(lv, rv value.Value) (cmp int, indeterminate bool, err error) {
	switch l := lv.(type) {
	case value.String:
		r, ok := rv.(value.String)
		if !ok {
			return 0, false, ferrors.TypeErrorf(token.Position{}, "cannot compare String with %s", rv.Kind())
		}
		return compareStrings(string(l), string(r)), false, nil
	case value.Date:
		r, ok := rv.(value.Date)
		if !ok {
			return 0, false, ferrors.TypeErrorf(token.Position{}, "cannot compare Date with %s", rv.Kind())
		}
		return temporalCompare(l.T, r.T)
	case value.DateTime:
		r, ok := rv.(value.DateTime)
		if !ok {
			return 0, false, ferrors.TypeErrorf(token.Position{}, "cannot compare DateTime with %s", rv.Kind())
		}
		return temporalCompare(l.T, r.T)
	case value.Time:
		r, ok := rv.(value.Time)
		if !ok {
			return 0, false, ferrors.TypeErrorf(token.Position{}, "cannot compare Time with %s", rv.Kind())
		}
		return temporalCompare(l.T, r.T)
	default:
		ld, lok := toDecimal(lv)
		rd, rok := toDecimal(rv)
		if !lok || !rok {
			return 0, false, ferrors.TypeErrorf(token.Position{}, "cannot compare %s with %s", lv.Kind(), rv.Kind())
		}
		return ld.Cmp(rd), false, nil
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func temporalCompare(a, b value.Temporal) (int, bool, error) {
	switch value.CompareTemporal(a, b) {
	case value.CompareLess:
		return -1, false, nil
	case value.CompareGreater:
		return 1, false, nil
	case value.CompareEqual:
		return 0, false, nil
	default:
		return 0, true, nil
	}
}

// evalEquals implements `=`/`!=` (spec.md §4.E): empty on either side
// yields empty; collections compare element-wise in order.
func evalEquals(negate bool) func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	return func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
		if left.IsEmpty() || right.IsEmpty() {
			return nil, nil
		}
		eq := value.CollectionsEqual(left, right)
		if negate {
			eq = !eq
		}
		return value.Single(value.Boolean(eq)), nil
	}
}

// evalEquivalent implements `~`/`!~`: order-insensitive, case/whitespace
// tolerant comparison. Unlike `=`, both-empty is equivalent-true rather
// than empty (per the FHIRPath specification `~` semantics).
func evalEquivalent(negate bool) func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	return func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
		eq := value.CollectionsEquivalent(left, right)
		if negate {
			eq = !eq
		}
		return value.Single(value.Boolean(eq)), nil
	}
}

// evalIn implements `in`: element membership, or substring test when
// both sides are strings (spec.md §4.E).
func evalIn(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	return membership(left, right)
}

// evalContainsOp implements `contains`, the mirror of `in`.
func evalContainsOp(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	return membership(right, left)
}

func membership(needleColl, haystack value.Collection) (value.Collection, error) {
	if needleColl.IsEmpty() || haystack.IsEmpty() {
		return nil, nil
	}
	needle, ok := needleColl.Singleton()
	if !ok {
		return nil, ferrors.TypeErrorf(token.Position{}, "'in'/'contains' requires a singleton left operand")
	}
	if ns, ok := needle.(value.String); ok {
		if hs, ok := haystack.Singleton(); ok {
			if hss, ok := hs.(value.String); ok {
				return value.Single(value.Boolean(contains(string(hss), string(ns)))), nil
			}
		}
	}
	return value.Single(value.Boolean(value.Contains(haystack, needle))), nil
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || indexOfSubstring(haystack, needle) >= 0
}

func indexOfSubstring(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// threeValued is T/F/Empty, used by the and/or/xor/implies truth table.
type threeValued int

const (
	tvFalse threeValued = iota
	tvTrue
	tvEmpty
)

func toThreeValued(c value.Collection) (threeValued, error) {
	if c.IsEmpty() {
		return tvEmpty, nil
	}
	b, ok := c.SingletonBoolean()
	if !ok {
		return tvEmpty, ferrors.TypeErrorf(token.Position{}, "logical operator requires a singleton boolean operand")
	}
	if b {
		return tvTrue, nil
	}
	return tvFalse, nil
}

func tvResult(tv threeValued) value.Collection {
	switch tv {
	case tvTrue:
		return value.Single(value.Boolean(true))
	case tvFalse:
		return value.Single(value.Boolean(false))
	default:
		return nil
	}
}

// evalAnd implements the three-valued `and` table (spec.md §4.E).
func evalAnd(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	l, err := toThreeValued(left)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(right)
	if err != nil {
		return nil, err
	}
	if l == tvFalse || r == tvFalse {
		return tvResult(tvFalse), nil
	}
	if l == tvTrue && r == tvTrue {
		return tvResult(tvTrue), nil
	}
	return tvResult(tvEmpty), nil
}

// evalOr implements the three-valued `or` table.
func evalOr(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	l, err := toThreeValued(left)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(right)
	if err != nil {
		return nil, err
	}
	if l == tvTrue || r == tvTrue {
		return tvResult(tvTrue), nil
	}
	if l == tvFalse && r == tvFalse {
		return tvResult(tvFalse), nil
	}
	return tvResult(tvEmpty), nil
}

// evalXor implements the three-valued `xor` table.
func evalXor(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	l, err := toThreeValued(left)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(right)
	if err != nil {
		return nil, err
	}
	if l == tvEmpty || r == tvEmpty {
		return tvResult(tvEmpty), nil
	}
	return tvResult(boolToTV(l == tvTrue != (r == tvTrue))), nil
}

// evalImplies implements the three-valued `implies` table.
func evalImplies(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error) {
	l, err := toThreeValued(left)
	if err != nil {
		return nil, err
	}
	r, err := toThreeValued(right)
	if err != nil {
		return nil, err
	}
	if l == tvFalse {
		return tvResult(tvTrue), nil
	}
	if l == tvTrue {
		return tvResult(r), nil
	}
	// l == tvEmpty
	if r == tvTrue {
		return tvResult(tvTrue), nil
	}
	return tvResult(tvEmpty), nil
}

func boolToTV(b bool) threeValued {
	if b {
		return tvTrue
	}
	return tvFalse
}
