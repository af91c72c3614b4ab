package registry

import (
	"strconv"
	"strings"

	"fhirpath/evalctx"
	"fhirpath/value"
)

// registerConversionFunctions wires spec.md §4.E's conversion function
// family: toString/toInteger/... attempt a conversion and fail empty (not
// error) when it cannot be performed; convertsTo... report whether that
// conversion would succeed, without raising.
func registerConversionFunctions(r *Registry) {
	r.addFunction(FunctionDef{Name: "toString", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toStringValue)})
	r.addFunction(FunctionDef{Name: "toInteger", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toIntegerValue)})
	r.addFunction(FunctionDef{Name: "toDecimal", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toDecimalValue)})
	r.addFunction(FunctionDef{Name: "toBoolean", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toBooleanValue)})
	r.addFunction(FunctionDef{Name: "toDate", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toDateValue)})
	r.addFunction(FunctionDef{Name: "toDateTime", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toDateTimeValue)})
	r.addFunction(FunctionDef{Name: "toTime", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toTimeValue)})
	r.addFunction(FunctionDef{Name: "toQuantity", MinArgs: 0, MaxArgs: 0, Eval: convertFn(toQuantityValue)})

	r.addFunction(FunctionDef{Name: "convertsToString", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toStringValue)})
	r.addFunction(FunctionDef{Name: "convertsToInteger", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toIntegerValue)})
	r.addFunction(FunctionDef{Name: "convertsToDecimal", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toDecimalValue)})
	r.addFunction(FunctionDef{Name: "convertsToBoolean", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toBooleanValue)})
	r.addFunction(FunctionDef{Name: "convertsToDate", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toDateValue)})
	r.addFunction(FunctionDef{Name: "convertsToDateTime", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toDateTimeValue)})
	r.addFunction(FunctionDef{Name: "convertsToTime", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toTimeValue)})
	r.addFunction(FunctionDef{Name: "convertsToQuantity", MinArgs: 0, MaxArgs: 0, Eval: convertsToFn(toQuantityValue)})
}

// converter attempts to turn v into the target representation, returning
// ok=false (never an error) when v's shape cannot be converted.
type converter func(v value.Value) (value.Value, bool)

func convertFn(conv converter) func(Call) (value.Collection, *evalctx.Context, error) {
	return func(c Call) (value.Collection, *evalctx.Context, error) {
		v, ok := c.Focus.Singleton()
		if !ok {
			return nil, c.Ctx, nil
		}
		result, ok := conv(v)
		if !ok {
			return nil, c.Ctx, nil
		}
		return value.Single(result), c.Ctx, nil
	}
}

func convertsToFn(conv converter) func(Call) (value.Collection, *evalctx.Context, error) {
	return func(c Call) (value.Collection, *evalctx.Context, error) {
		v, ok := c.Focus.Singleton()
		if !ok {
			return nil, c.Ctx, nil
		}
		_, ok = conv(v)
		return value.Single(value.Boolean(ok)), c.Ctx, nil
	}
}

func toStringValue(v value.Value) (value.Value, bool) {
	switch v.(type) {
	case value.Map, value.Sequence:
		return nil, false
	default:
		return value.String(v.String()), true
	}
}

func toIntegerValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.Integer:
		return x, true
	case value.Boolean:
		if x {
			return value.Integer(1), true
		}
		return value.Integer(0), true
	case value.Decimal:
		i, err := x.Int64()
		if err != nil {
			return nil, false
		}
		return value.Integer(i), true
	case value.String:
		i, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return nil, false
		}
		return value.Integer(i), true
	default:
		return nil, false
	}
}

func toDecimalValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.Decimal:
		return x, true
	case value.Integer:
		return value.DecimalFromInt64(int64(x)), true
	case value.Boolean:
		if x {
			return value.DecimalFromInt64(1), true
		}
		return value.DecimalFromInt64(0), true
	case value.String:
		d, err := value.NewDecimal(strings.TrimSpace(string(x)))
		if err != nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}

func toBooleanValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.Boolean:
		return x, true
	case value.Integer:
		switch x {
		case 0:
			return value.Boolean(false), true
		case 1:
			return value.Boolean(true), true
		default:
			return nil, false
		}
	case value.String:
		switch strings.ToLower(strings.TrimSpace(string(x))) {
		case "true", "t", "yes", "y", "1", "1.0":
			return value.Boolean(true), true
		case "false", "f", "no", "n", "0", "0.0":
			return value.Boolean(false), true
		default:
			return nil, false
		}
	default:
		return nil, false
	}
}

func toDateValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.Date:
		return x, true
	case value.DateTime:
		return value.Date{T: x.T}, true
	case value.String:
		d, err := value.ParseDate(strings.TrimPrefix(string(x), "@"))
		if err != nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}

func toDateTimeValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.DateTime:
		return x, true
	case value.Date:
		return value.DateTime{T: x.T}, true
	case value.String:
		d, err := value.ParseDateTime(strings.TrimPrefix(string(x), "@"))
		if err != nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}

func toTimeValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.Time:
		return x, true
	case value.String:
		s := strings.TrimPrefix(string(x), "@")
		s = strings.TrimPrefix(s, "T")
		t, err := value.ParseTime(s)
		if err != nil {
			return nil, false
		}
		return t, true
	default:
		return nil, false
	}
}

func toQuantityValue(v value.Value) (value.Value, bool) {
	switch x := v.(type) {
	case value.Quantity:
		return x, true
	case value.Integer:
		return value.Quantity{Value: value.DecimalFromInt64(int64(x)), Unit: "1"}, true
	case value.Decimal:
		return value.Quantity{Value: x, Unit: "1"}, true
	case value.String:
		return parseQuantityString(string(x))
	default:
		return nil, false
	}
}

func parseQuantityString(s string) (value.Value, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, false
	}
	d, err := value.NewDecimal(fields[0])
	if err != nil {
		return nil, false
	}
	unit := "1"
	if len(fields) == 2 {
		unit = strings.Trim(fields[1], "'")
	}
	return value.Quantity{Value: d, Unit: unit}, true
}
