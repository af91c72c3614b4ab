package registry

import (
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/value"
)

// registerIteratorFunctions wires the functions that bind $this/$index
// while evaluating a lazy argument once per element of focus (spec.md
// §4.E "Iterator function"), plus the control-flow functions (iif,
// trace, defineVariable) that share the same lazy-argument machinery
// without iterating over focus.
func registerIteratorFunctions(r *Registry) {
	r.addFunction(FunctionDef{Name: "where", MinArgs: 1, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalWhere})
	r.addFunction(FunctionDef{Name: "select", MinArgs: 1, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalSelect})
	r.addFunction(FunctionDef{Name: "all", MinArgs: 1, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalAll})
	r.addFunction(FunctionDef{Name: "exists", MinArgs: 0, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalExists})

	r.addFunction(FunctionDef{Name: "allTrue", MinArgs: 0, MaxArgs: 0, Eval: quantifier(true, true)})
	r.addFunction(FunctionDef{Name: "allFalse", MinArgs: 0, MaxArgs: 0, Eval: quantifier(false, true)})
	r.addFunction(FunctionDef{Name: "anyTrue", MinArgs: 0, MaxArgs: 0, Eval: quantifier(true, false)})
	r.addFunction(FunctionDef{Name: "anyFalse", MinArgs: 0, MaxArgs: 0, Eval: quantifier(false, false)})

	r.addFunction(FunctionDef{Name: "iif", MinArgs: 2, MaxArgs: 3, ParamModes: []ParamMode{Eager, Lazy, Lazy}, Eval: evalIif})
	r.addFunction(FunctionDef{Name: "trace", MinArgs: 1, MaxArgs: 2, ParamModes: []ParamMode{Eager, Lazy}, Eval: evalTrace})
	r.addFunction(FunctionDef{Name: "defineVariable", MinArgs: 1, MaxArgs: 2, ParamModes: []ParamMode{Eager, Lazy}, Eval: evalDefineVariable})

	r.addFunction(FunctionDef{Name: "not", MinArgs: 0, MaxArgs: 0, Eval: evalNot})
}

// evalLazyPerItem evaluates arg once per element of c.Focus against a
// context with $this/$index bound to that element, invoking collect with
// each element's result. It stops at the first evaluation error.
func evalLazyPerItem(c Call, arg Arg, collect func(item value.Value, index int, result value.Collection) error) error {
	for i, item := range c.Focus {
		itemCtx := c.Ctx.WithIterator(item, i)
		result, _, err := c.Interp.Eval(arg.Node, itemCtx)
		if err != nil {
			return err
		}
		if err := collect(item, i, result); err != nil {
			return err
		}
	}
	return nil
}

func evalWhere(c Call) (value.Collection, *evalctx.Context, error) {
	var out value.Collection
	err := evalLazyPerItem(c, c.Args[0], func(item value.Value, _ int, result value.Collection) error {
		b, ok := result.SingletonBoolean()
		if ok && b {
			out = append(out, item)
		}
		return nil
	})
	return out, c.Ctx, err
}

func evalSelect(c Call) (value.Collection, *evalctx.Context, error) {
	var out value.Collection
	err := evalLazyPerItem(c, c.Args[0], func(_ value.Value, _ int, result value.Collection) error {
		out = append(out, result...)
		return nil
	})
	return out, c.Ctx, err
}

// evalAll implements spec.md's vacuous-truth rule: an empty focus
// satisfies `all()` by definition.
func evalAll(c Call) (value.Collection, *evalctx.Context, error) {
	result := true
	err := evalLazyPerItem(c, c.Args[0], func(_ value.Value, _ int, r value.Collection) error {
		b, ok := r.SingletonBoolean()
		if !ok || !b {
			result = false
		}
		return nil
	})
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.Boolean(result)), c.Ctx, nil
}

func evalExists(c Call) (value.Collection, *evalctx.Context, error) {
	if len(c.Args) == 0 {
		return value.Single(value.Boolean(!c.Focus.IsEmpty())), c.Ctx, nil
	}
	found := false
	err := evalLazyPerItem(c, c.Args[0], func(_ value.Value, _ int, r value.Collection) error {
		if b, ok := r.SingletonBoolean(); ok && b {
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, c.Ctx, err
	}
	return value.Single(value.Boolean(found)), c.Ctx, nil
}

// quantifier backs allTrue/allFalse/anyTrue/anyFalse: target is the
// boolean each item must equal, all selects universal vs existential
// quantification over c.Focus (spec.md §4.E function list).
func quantifier(target bool, all bool) func(Call) (value.Collection, *evalctx.Context, error) {
	return func(c Call) (value.Collection, *evalctx.Context, error) {
		for _, item := range c.Focus {
			b, ok := item.(value.Boolean)
			if !ok {
				return nil, c.Ctx, ferrors.TypeErrorf(c.Pos, "expected a collection of Boolean, got %s", item.Kind())
			}
			matches := bool(b) == target
			if all && !matches {
				return value.Single(value.Boolean(false)), c.Ctx, nil
			}
			if !all && matches {
				return value.Single(value.Boolean(true)), c.Ctx, nil
			}
		}
		return value.Single(value.Boolean(all)), c.Ctx, nil
	}
}

// evalIif implements short-circuiting iif(criterion, true-result[,
// otherwise-result]): only the selected branch is ever evaluated.
func evalIif(c Call) (value.Collection, *evalctx.Context, error) {
	criterion := c.Args[0].Value
	b, ok := criterion.SingletonBoolean()
	if ok && b {
		result, _, err := c.Interp.Eval(c.Args[1].Node, c.Ctx)
		return result, c.Ctx, err
	}
	if len(c.Args) < 3 {
		return nil, c.Ctx, nil
	}
	result, _, err := c.Interp.Eval(c.Args[2].Node, c.Ctx)
	return result, c.Ctx, err
}

// evalTrace implements trace(name[, projection]): emits to the
// configured TraceSink and returns focus unchanged (spec.md §4.E).
func evalTrace(c Call) (value.Collection, *evalctx.Context, error) {
	name, err := singleton(c.Args[0].Value, "trace", c.Pos)
	if err != nil {
		return nil, c.Ctx, err
	}
	nameStr, ok := name.(value.String)
	if !ok {
		return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, nil, "trace requires a string name, got %s", name.Kind())
	}
	traced := c.Focus
	if len(c.Args) == 2 {
		projected, _, err := c.Interp.Eval(c.Args[1].Node, c.Ctx.WithFocus(c.Focus))
		if err != nil {
			return nil, c.Ctx, err
		}
		traced = projected
	}
	if c.Ctx.Trace != nil {
		c.Ctx.Trace(string(nameStr), traced)
	}
	return c.Focus, c.Ctx, nil
}

// evalDefineVariable implements defineVariable(name[, value]): binds a
// %-scoped variable visible to expressions evaluated after this call in
// the same pipeline, by returning an updated Context (spec.md §4.D).
func evalDefineVariable(c Call) (value.Collection, *evalctx.Context, error) {
	name, err := singleton(c.Args[0].Value, "defineVariable", c.Pos)
	if err != nil {
		return nil, c.Ctx, err
	}
	nameStr, ok := name.(value.String)
	if !ok {
		return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, nil, "defineVariable requires a string name, got %s", name.Kind())
	}
	val := c.Focus
	if len(c.Args) == 2 {
		projected, _, err := c.Interp.Eval(c.Args[1].Node, c.Ctx)
		if err != nil {
			return nil, c.Ctx, err
		}
		val = projected
	}
	newCtx := c.Ctx.SetVariable('%', string(nameStr), val)
	return c.Focus, newCtx, nil
}

// evalNot implements the `.not()` function (spec.md §4.E "Unary"): it is
// a function, never an infix keyword.
func evalNot(c Call) (value.Collection, *evalctx.Context, error) {
	b, ok := c.Focus.SingletonBoolean()
	if !ok {
		if c.Focus.IsEmpty() {
			return nil, c.Ctx, nil
		}
		return nil, c.Ctx, ferrors.TypeErrorf(c.Pos, "not() requires a singleton Boolean focus")
	}
	return value.Single(value.Boolean(!b)), c.Ctx, nil
}
