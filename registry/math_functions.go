package registry

import (
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/value"
)

// registerMathFunctions wires spec.md §4.E's math function family as thin
// wrappers around value.Decimal's apd/v3-backed arithmetic.
func registerMathFunctions(r *Registry) {
	r.addFunction(FunctionDef{Name: "abs", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("abs", func(d value.Decimal) (value.Decimal, error) { return d.Abs(), nil })})
	r.addFunction(FunctionDef{Name: "ceiling", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("ceiling", value.Decimal.Ceiling)})
	r.addFunction(FunctionDef{Name: "floor", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("floor", value.Decimal.Floor)})
	r.addFunction(FunctionDef{Name: "sqrt", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("sqrt", value.Decimal.Sqrt)})
	r.addFunction(FunctionDef{Name: "exp", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("exp", value.Decimal.Exp)})
	r.addFunction(FunctionDef{Name: "ln", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("ln", value.Decimal.Ln)})
	r.addFunction(FunctionDef{Name: "truncate", MinArgs: 0, MaxArgs: 0, Eval: decimalUnary("truncate", value.Decimal.Truncate)})

	r.addFunction(FunctionDef{Name: "round", MinArgs: 0, MaxArgs: 1, Eval: evalRound})
	r.addFunction(FunctionDef{Name: "log", MinArgs: 1, MaxArgs: 1, Eval: evalLog})
	r.addFunction(FunctionDef{Name: "power", MinArgs: 1, MaxArgs: 1, Eval: evalPower})
}

func focusDecimal(c Call, fnName string) (value.Decimal, bool, error) {
	if c.Focus.IsEmpty() {
		return value.Decimal{}, false, nil
	}
	v, ok := c.Focus.Singleton()
	if !ok {
		return value.Decimal{}, false, ferrors.Evaluationf(c.Pos, "%s requires a singleton numeric focus", fnName)
	}
	d, ok := toDecimal(v)
	if !ok {
		return value.Decimal{}, false, ferrors.TypeErrorf(c.Pos, "%s requires a numeric focus, got %s", fnName, v.Kind())
	}
	return d, true, nil
}

func decimalUnary(name string, op func(value.Decimal) (value.Decimal, error)) func(Call) (value.Collection, *evalctx.Context, error) {
	return func(c Call) (value.Collection, *evalctx.Context, error) {
		d, ok, err := focusDecimal(c, name)
		if err != nil || !ok {
			return nil, c.Ctx, err
		}
		result, err := op(d)
		if err != nil {
			return nil, c.Ctx, ferrors.Evaluationf(c.Pos, "%s failed: %v", name, err)
		}
		return value.Single(result), c.Ctx, nil
	}
}

func argDecimal(c Call, idx int, fnName string) (value.Decimal, error) {
	v, err := singleton(c.Args[idx].Value, fnName, c.Pos)
	if err != nil {
		return value.Decimal{}, err
	}
	d, ok := toDecimal(v)
	if !ok {
		return value.Decimal{}, ferrors.ArgumentTypef(c.Pos, nil, "%s requires a numeric argument, got %s", fnName, v.Kind())
	}
	return d, nil
}

func evalRound(c Call) (value.Collection, *evalctx.Context, error) {
	d, ok, err := focusDecimal(c, "round")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	places := int32(0)
	if len(c.Args) == 1 {
		n, err := singleIntArg(c, "round")
		if err != nil {
			return nil, c.Ctx, err
		}
		places = int32(n)
	}
	result, err := d.Round(places)
	if err != nil {
		return nil, c.Ctx, ferrors.Evaluationf(c.Pos, "round failed: %v", err)
	}
	return value.Single(result), c.Ctx, nil
}

func evalLog(c Call) (value.Collection, *evalctx.Context, error) {
	d, ok, err := focusDecimal(c, "log")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	base, err := argDecimal(c, 0, "log")
	if err != nil {
		return nil, c.Ctx, err
	}
	result, err := d.Log(base)
	if err != nil {
		return nil, c.Ctx, ferrors.Evaluationf(c.Pos, "log failed: %v", err)
	}
	return value.Single(result), c.Ctx, nil
}

func evalPower(c Call) (value.Collection, *evalctx.Context, error) {
	d, ok, err := focusDecimal(c, "power")
	if err != nil || !ok {
		return nil, c.Ctx, err
	}
	exp, err := argDecimal(c, 0, "power")
	if err != nil {
		return nil, c.Ctx, err
	}
	result, err := d.Power(exp)
	if err != nil {
		return nil, c.Ctx, ferrors.Evaluationf(c.Pos, "power failed: %v", err)
	}
	return value.Single(result), c.Ctx, nil
}
