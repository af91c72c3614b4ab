// Package evaluator walks a parsed FHIRPath expression tree against a
// Runtime Context, implementing registry.Interpreter the way the
// Registry's lazy function evaluators expect to call back into tree
// evaluation (spec.md §4.D/§4.E).
package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/registry"
	"fhirpath/token"
	"fhirpath/value"
)

// Evaluator dispatches over every ast.Node variant, consulting Reg for
// operator/function semantics. The zero value is not usable; build one
// with New.
type Evaluator struct {
	Reg *registry.Registry
}

// New builds an Evaluator bound to reg.
func New(reg *registry.Registry) *Evaluator {
	return &Evaluator{Reg: reg}
}

// Eval implements registry.Interpreter. It dispatches by concrete node
// type; every variant ast declares must have a case here.
func (e *Evaluator) Eval(node ast.Node, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	switch n := node.(type) {
	case *ast.Literal:
		return e.evalLiteral(n, ctx)
	case *ast.Identifier:
		return e.evalIdentifier(n, ctx)
	case *ast.TypeOrIdentifier:
		return e.evalTypeOrIdentifier(n, ctx)
	case *ast.Variable:
		return e.evalVariable(n, ctx)
	case *ast.Unary:
		return e.evalUnary(n, ctx)
	case *ast.Binary:
		return e.evalBinary(n, ctx)
	case *ast.Function:
		return e.evalFunction(n, ctx)
	case *ast.Index:
		return e.evalIndex(n, ctx)
	case *ast.Collection:
		return e.evalCollection(n, ctx)
	case *ast.Union:
		return e.evalUnion(n, ctx)
	case *ast.MembershipTest:
		return e.evalMembershipTest(n, ctx)
	case *ast.TypeCast:
		return e.evalTypeCast(n, ctx)
	case *ast.TypeReference:
		return nil, ctx, ferrors.Evaluationf(n.Pos(), "a type reference cannot be evaluated on its own")
	default:
		return nil, ctx, ferrors.Evaluationf(node.Pos(), "unhandled expression node %T", node)
	}
}

// Evaluate is the context.Context-aware entry point the root fhirpath
// package calls (SPEC_FULL.md §4 "Cancellation-aware evaluation entry
// point"). It attaches ctx to rctx so evalFunction can poll it before
// every function call, checking once up front so a caller
// that already cancelled never starts evaluation at all.
func (e *Evaluator) Evaluate(ctx context.Context, node ast.Node, rctx *evalctx.Context) (value.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, _, err := e.Eval(node, rctx.WithGoContext(ctx))
	return out, err
}

// EvaluateAll evaluates node once per item of roots, each against its
// own Context built via evalctx.New, bounding concurrency and
// preserving roots' order in the result slice regardless of completion
// order.
func (e *Evaluator) EvaluateAll(ctx context.Context, node ast.Node, roots []value.Collection, concurrencyLimit int) ([]value.Collection, error) {
	results := make([]value.Collection, len(roots))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrencyLimit)
	for i, root := range roots {
		i, root := i, root
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			out, err := e.Evaluate(groupCtx, node, evalctx.New(root))
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Evaluator) evalLiteral(n *ast.Literal, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	if n.Value == nil {
		return nil, ctx, nil
	}
	return value.Single(n.Value), ctx, nil
}

// evalIdentifier navigates a property name across every Map in Focus,
// recursing through bare Sequence wrappers so a nested array field
// still yields its members (spec.md §4.E property navigation).
func (e *Evaluator) evalIdentifier(n *ast.Identifier, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	return navigateProperty(ctx.Focus, n.Name), ctx, nil
}

func navigateProperty(focus value.Collection, name string) value.Collection {
	var out value.Collection
	for _, v := range focus {
		switch item := v.(type) {
		case value.Map:
			out = out.Concat(item.Get(name))
		case value.Sequence:
			out = out.Concat(navigateProperty(value.Collection(item.Items), name))
		}
	}
	return out
}

// evalTypeOrIdentifier resolves the spec.md §9 Open Question on root-type
// filtering: a capitalized identifier is ordinary property navigation
// when some Map in Focus actually carries that field, and a type filter
// otherwise (the common case: Patient.name at the root of a Patient
// resource navigates the field "name" only if nothing is named
// "Patient"; the bare type name Patient at the root filters Focus to
// items whose runtime type matches). A Map whose own TypeName equals the
// name matches even when no TypeOracle is configured.
func (e *Evaluator) evalTypeOrIdentifier(n *ast.TypeOrIdentifier, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	hasField := false
	for _, v := range ctx.Focus {
		if m, ok := v.(value.Map); ok {
			if _, present := m.Fields[n.Name]; present {
				hasField = true
				break
			}
		}
	}
	if hasField {
		return navigateProperty(ctx.Focus, n.Name), ctx, nil
	}
	var out value.Collection
	for _, v := range ctx.Focus {
		if m, ok := v.(value.Map); ok && m.TypeName == n.Name {
			out = append(out, v)
		} else if registry.MatchesTypeName(ctx, v, n.Name) {
			out = append(out, v)
		}
	}
	return out, ctx, nil
}

func (e *Evaluator) evalVariable(n *ast.Variable, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	v, ok := ctx.GetVariable(n.Sigil, n.Name)
	if !ok {
		return nil, ctx, ferrors.UnknownVariablef(n.Pos(), string(n.Sigil)+n.Name)
	}
	return v, ctx, nil
}

func (e *Evaluator) evalUnary(n *ast.Unary, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	operand, opCtx, err := e.Eval(n.Operand, ctx)
	if err != nil {
		return nil, ctx, err
	}
	op, ok := e.Reg.LookupPrefix(n.Op)
	if !ok {
		return nil, opCtx, ferrors.Evaluationf(n.Pos(), "operator %q has no unary form", n.OpLexeme)
	}
	out, err := op.Eval(opCtx, operand)
	if err != nil {
		if fe, ok := err.(*ferrors.Error); ok {
			err = fe.AtPosition(n.Pos())
		}
		return nil, opCtx, err
	}
	return out, opCtx, nil
}

// evalBinary special-cases the dot operator's pipeline semantics (Right
// is evaluated with Focus re-seated to Left's result, then the caller's
// original Focus is restored so a dot chain never leaks its intermediate
// focus to a sibling expression) and otherwise dispatches to the
// Registry's generic infix operator evaluators.
func (e *Evaluator) evalBinary(n *ast.Binary, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	if n.Op == token.Dot {
		left, leftCtx, err := e.Eval(n.Left, ctx)
		if err != nil {
			return nil, ctx, err
		}
		pipeCtx := leftCtx.WithFocus(left)
		right, rightCtx, err := e.Eval(n.Right, pipeCtx)
		if err != nil {
			return nil, ctx, err
		}
		return right, rightCtx.WithFocus(ctx.Focus), nil
	}

	left, ctx1, err := e.Eval(n.Left, ctx)
	if err != nil {
		return nil, ctx, err
	}
	right, ctx2, err := e.Eval(n.Right, ctx1)
	if err != nil {
		return nil, ctx, err
	}
	op, ok := e.Reg.LookupInfix(n.Op)
	if !ok || op.Eval == nil {
		return nil, ctx2, ferrors.Evaluationf(n.Pos(), "operator %q has no evaluator", n.OpLexeme)
	}
	out, err := op.Eval(ctx2, left, right)
	if err != nil {
		if fe, ok := err.(*ferrors.Error); ok {
			err = fe.AtPosition(n.Pos())
		}
		return nil, ctx2, err
	}
	return out, ctx2, nil
}

func (e *Evaluator) evalFunction(n *ast.Function, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, ctx, err
	}
	if !ctx.EnterRecursion() {
		return nil, ctx, ferrors.Evaluationf(n.Pos(), "recursion depth limit exceeded evaluating %s", n.Name)
	}
	fn, ok := e.Reg.LookupFunction(n.Name)
	if !ok {
		return nil, ctx, ferrors.UnknownFunctionf(n.Pos(), n.Name)
	}
	if err := registry.CheckArity(fn, n.Pos(), len(n.Args)); err != nil {
		return nil, ctx, err
	}
	callCtx := ctx.WithRecursionDepth()
	args, err := e.Reg.BuildArgs(fn, n.Args, callCtx, e)
	if err != nil {
		return nil, ctx, err
	}
	call := registry.Call{Ctx: callCtx, Interp: e, Focus: callCtx.Focus, Args: args, Pos: n.Pos()}
	out, newCtx, err := fn.Eval(call)
	if err != nil {
		if fe, ok := err.(*ferrors.Error); ok {
			err = fe.AtPosition(n.Pos())
		}
		return nil, ctx, err
	}
	if newCtx == nil {
		newCtx = ctx
	}
	return out, newCtx, nil
}

func (e *Evaluator) evalIndex(n *ast.Index, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	target, ctx1, err := e.Eval(n.Target, ctx)
	if err != nil {
		return nil, ctx, err
	}
	idx, ctx2, err := e.Eval(n.IndexExp, ctx1)
	if err != nil {
		return nil, ctx, err
	}
	iv, ok := idx.Singleton()
	if !ok {
		return nil, ctx2, nil
	}
	i, ok := iv.(value.Integer)
	if !ok {
		return nil, ctx2, ferrors.TypeErrorf(n.Pos(), "index must be an Integer, got %s", iv.Kind())
	}
	if i < 0 || int(i) >= len(target) {
		return nil, ctx2, nil
	}
	return value.Single(target[i]), ctx2, nil
}

func (e *Evaluator) evalCollection(n *ast.Collection, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	var out value.Collection
	cur := ctx
	for _, el := range n.Elements {
		v, next, err := e.Eval(el, cur)
		if err != nil {
			return nil, ctx, err
		}
		out = out.Concat(v)
		cur = next
	}
	return out, cur, nil
}

func (e *Evaluator) evalUnion(n *ast.Union, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	var out value.Collection
	cur := ctx
	for _, operand := range n.Operands {
		v, next, err := e.Eval(operand, cur)
		if err != nil {
			return nil, ctx, err
		}
		out = value.Union(out, v)
		cur = next
	}
	return out, cur, nil
}

// evalMembershipTest implements spec.md §4.E's MembershipTest exactly:
// empty input yields empty, otherwise the result is a singleton boolean
// true iff EVERY element of the evaluated expression satisfies the named
// type (not just a singleton focus).
func (e *Evaluator) evalMembershipTest(n *ast.MembershipTest, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	focus, nextCtx, err := e.Eval(n.Expr, ctx)
	if err != nil {
		return nil, ctx, err
	}
	if focus.IsEmpty() {
		return nil, nextCtx, nil
	}
	for _, v := range focus {
		if !registry.MatchesTypeReference(nextCtx, v, n.Type.Namespace, n.Type.Name) {
			return value.Single(value.Boolean(false)), nextCtx, nil
		}
	}
	return value.Single(value.Boolean(true)), nextCtx, nil
}

// evalTypeCast implements spec.md §4.E's TypeCast: filter to items of the
// named type and return them, dropping the rest (not an error); empty
// input yields empty.
func (e *Evaluator) evalTypeCast(n *ast.TypeCast, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error) {
	focus, nextCtx, err := e.Eval(n.Expr, ctx)
	if err != nil {
		return nil, ctx, err
	}
	if focus.IsEmpty() {
		return nil, nextCtx, nil
	}
	var out value.Collection
	for _, v := range focus {
		if registry.MatchesTypeReference(nextCtx, v, n.Type.Namespace, n.Type.Name) {
			out = append(out, v)
		}
	}
	return out, nextCtx, nil
}
