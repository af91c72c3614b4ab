package registry

import (
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/value"
)

// registerCollectionFunctions wires the eager, whole-collection functions
// of spec.md §4.E's "Required functions at minimum" list that do not bind
// $this/$index (those live in iterator_functions.go).
func registerCollectionFunctions(r *Registry) {
	r.addFunction(FunctionDef{Name: "first", MinArgs: 0, MaxArgs: 0, Eval: evalFirst})
	r.addFunction(FunctionDef{Name: "last", MinArgs: 0, MaxArgs: 0, Eval: evalLast})
	r.addFunction(FunctionDef{Name: "tail", MinArgs: 0, MaxArgs: 0, Eval: evalTail})
	r.addFunction(FunctionDef{Name: "skip", MinArgs: 1, MaxArgs: 1, Eval: evalSkip})
	r.addFunction(FunctionDef{Name: "take", MinArgs: 1, MaxArgs: 1, Eval: evalTake})
	r.addFunction(FunctionDef{Name: "count", MinArgs: 0, MaxArgs: 0, Eval: evalCount})
	r.addFunction(FunctionDef{Name: "empty", MinArgs: 0, MaxArgs: 0, Eval: evalEmpty})
	r.addFunction(FunctionDef{Name: "distinct", MinArgs: 0, MaxArgs: 0, Eval: evalDistinct})
	r.addFunction(FunctionDef{Name: "isDistinct", MinArgs: 0, MaxArgs: 0, Eval: evalIsDistinct})
	r.addFunction(FunctionDef{Name: "single", MinArgs: 0, MaxArgs: 0, Eval: evalSingle})
	r.addFunction(FunctionDef{Name: "union", MinArgs: 1, MaxArgs: 1, Eval: evalUnionFn})
	r.addFunction(FunctionDef{Name: "combine", MinArgs: 1, MaxArgs: 1, Eval: evalCombine})
	r.addFunction(FunctionDef{Name: "intersect", MinArgs: 1, MaxArgs: 1, Eval: evalIntersect})
	r.addFunction(FunctionDef{Name: "exclude", MinArgs: 1, MaxArgs: 1, Eval: evalExclude})
}

func evalFirst(c Call) (value.Collection, *evalctx.Context, error) {
	if c.Focus.IsEmpty() {
		return nil, c.Ctx, nil
	}
	return value.Single(c.Focus[0]), c.Ctx, nil
}

func evalLast(c Call) (value.Collection, *evalctx.Context, error) {
	if c.Focus.IsEmpty() {
		return nil, c.Ctx, nil
	}
	return value.Single(c.Focus[len(c.Focus)-1]), c.Ctx, nil
}

func evalTail(c Call) (value.Collection, *evalctx.Context, error) {
	if len(c.Focus) <= 1 {
		return nil, c.Ctx, nil
	}
	return append(value.Collection{}, c.Focus[1:]...), c.Ctx, nil
}

func singleIntArg(c Call, fnName string) (int, error) {
	v, err := singleton(c.Args[0].Value, fnName, c.Pos)
	if err != nil {
		return 0, err
	}
	i, ok := v.(value.Integer)
	if !ok {
		return 0, ferrors.ArgumentTypef(c.Pos, nil, "%s requires an Integer argument, got %s", fnName, v.Kind())
	}
	return int(i), nil
}

func evalSkip(c Call) (value.Collection, *evalctx.Context, error) {
	n, err := singleIntArg(c, "skip")
	if err != nil {
		return nil, c.Ctx, err
	}
	if n < 0 {
		n = 0
	}
	if n >= len(c.Focus) {
		return nil, c.Ctx, nil
	}
	return append(value.Collection{}, c.Focus[n:]...), c.Ctx, nil
}

func evalTake(c Call) (value.Collection, *evalctx.Context, error) {
	n, err := singleIntArg(c, "take")
	if err != nil {
		return nil, c.Ctx, err
	}
	if n <= 0 {
		return nil, c.Ctx, nil
	}
	if n > len(c.Focus) {
		n = len(c.Focus)
	}
	return append(value.Collection{}, c.Focus[:n]...), c.Ctx, nil
}

func evalCount(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Single(value.Integer(len(c.Focus))), c.Ctx, nil
}

func evalEmpty(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Single(value.Boolean(c.Focus.IsEmpty())), c.Ctx, nil
}

func evalDistinct(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Distinct(c.Focus), c.Ctx, nil
}

func evalIsDistinct(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Single(value.Boolean(value.IsDistinct(c.Focus))), c.Ctx, nil
}

func evalSingle(c Call) (value.Collection, *evalctx.Context, error) {
	if c.Focus.IsEmpty() {
		return nil, c.Ctx, nil
	}
	v, ok := c.Focus.Singleton()
	if !ok {
		return nil, c.Ctx, ferrors.Evaluationf(c.Pos, "single() requires a collection with exactly one item, got %d", len(c.Focus))
	}
	return value.Single(v), c.Ctx, nil
}

func evalUnionFn(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Union(c.Focus, c.Args[0].Value), c.Ctx, nil
}

func evalCombine(c Call) (value.Collection, *evalctx.Context, error) {
	return c.Focus.Concat(c.Args[0].Value), c.Ctx, nil
}

func evalIntersect(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Intersect(c.Focus, c.Args[0].Value), c.Ctx, nil
}

func evalExclude(c Call) (value.Collection, *evalctx.Context, error) {
	return value.Exclude(c.Focus, c.Args[0].Value), c.Ctx, nil
}
