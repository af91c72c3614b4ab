// Package registry implements the FHIRPath operation Registry (spec.md
// §4.B): the single source of truth for operator precedence/associativity
// and function dispatch, consulted by both the Parser and the Evaluator.
// It is built once via NewStandard and treated as read-only thereafter
// (spec.md §5, §9 "Registry global state").
package registry

import (
	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/token"
	"fhirpath/value"
)

// Interpreter is the callback handle lazy function evaluators use to
// evaluate raw AST fragments against a context they construct themselves
// (e.g. once per iteration). It is declared here rather than in package
// evaluator so registry-level evaluators can call back into tree-walking
// evaluation without evaluator needing to import registry and registry
// importing evaluator (spec.md §9 "Lazy arguments").
type Interpreter interface {
	Eval(node ast.Node, ctx *evalctx.Context) (value.Collection, *evalctx.Context, error)
}

// Associativity is Left or Right.
type Associativity int

const (
	LeftAssoc Associativity = iota
	RightAssoc
)

// InfixOperator binds a token kind to precedence/associativity and an
// evaluator (spec.md §4.B "Operator").
type InfixOperator struct {
	Symbol     string
	Kind       token.Kind
	Precedence int
	Assoc      Associativity
	Eval       func(ctx *evalctx.Context, left, right value.Collection) (value.Collection, error)
}

// PrefixOperator is a unary prefix operator (`+`, `-`).
type PrefixOperator struct {
	Symbol string
	Kind   token.Kind
	Eval   func(ctx *evalctx.Context, operand value.Collection) (value.Collection, error)
}

// ParamMode tags whether a function parameter slot receives a
// pre-evaluated collection (Eager) or the raw AST node plus an
// Interpreter handle (Lazy) — spec.md §4.B, §9 "Lazy arguments".
type ParamMode int

const (
	Eager ParamMode = iota
	Lazy
)

// Arg is one evaluated-or-deferred function argument.
type Arg struct {
	Node  ast.Node
	Mode  ParamMode
	Value value.Collection // populated only when Mode == Eager
}

// Call bundles everything a FunctionDef's evaluator needs.
type Call struct {
	Ctx    *evalctx.Context
	Interp Interpreter
	Focus  value.Collection
	Args   []Arg
	Pos    token.Position
}

// FunctionDef is a registered function (spec.md §4.B "Function").
type FunctionDef struct {
	Name       string
	MinArgs    int
	MaxArgs    int // -1 means unbounded
	ParamModes []ParamMode // indexed by position; the last entry repeats past its length
	Eval       func(c Call) (value.Collection, *evalctx.Context, error)
}

func (f FunctionDef) modeFor(i int) ParamMode {
	if len(f.ParamModes) == 0 {
		return Eager
	}
	if i < len(f.ParamModes) {
		return f.ParamModes[i]
	}
	return f.ParamModes[len(f.ParamModes)-1]
}

// Registry is the process-wide operation table. Safe for concurrent
// reads once built; never mutated after NewStandard/WithCustomFunctions
// return (spec.md §5).
type Registry struct {
	infix     map[token.Kind]InfixOperator
	prefix    map[token.Kind]PrefixOperator
	functions map[string]FunctionDef
	keywords  map[token.Kind]bool
}

// LookupInfix returns the infix operator registered for kind, if any.
func (r *Registry) LookupInfix(kind token.Kind) (InfixOperator, bool) {
	op, ok := r.infix[kind]
	return op, ok
}

// LookupPrefix returns the prefix operator registered for kind, if any.
func (r *Registry) LookupPrefix(kind token.Kind) (PrefixOperator, bool) {
	op, ok := r.prefix[kind]
	return op, ok
}

// Precedence returns the infix precedence for kind, used by the Parser's
// Pratt loop (spec.md §4.C).
func (r *Registry) Precedence(kind token.Kind) (int, bool) {
	op, ok := r.infix[kind]
	if !ok {
		return 0, false
	}
	return op.Precedence, true
}

// Associativity returns the infix associativity for kind.
func (r *Registry) Associativity(kind token.Kind) Associativity {
	return r.infix[kind].Assoc
}

// IsKeywordOperator reports whether kind is one of the keyword-spelled
// infix operators (`and`, `or`, `div`, `is`, ...) (spec.md §4.B
// "Keyword enumeration"). The Parser does not call it; it keeps its own
// list of keyword tokens that may serve as identifiers.
func (r *Registry) IsKeywordOperator(kind token.Kind) bool {
	return r.keywords[kind]
}

// LookupFunction returns the named function's definition, if registered.
func (r *Registry) LookupFunction(name string) (FunctionDef, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// BuildArgs evaluates eager argument slots and passes through lazy ones
// unevaluated, per fn's registered ParamModes. Evaluator calls this
// before invoking fn.Eval.
func (r *Registry) BuildArgs(fn FunctionDef, nodes []ast.Node, ctx *evalctx.Context, interp Interpreter) ([]Arg, error) {
	args := make([]Arg, len(nodes))
	for i, n := range nodes {
		mode := fn.modeFor(i)
		args[i] = Arg{Node: n, Mode: mode}
		if mode == Eager {
			v, _, err := interp.Eval(n, ctx)
			if err != nil {
				return nil, err
			}
			args[i].Value = v
		}
	}
	return args, nil
}

// WithCustomFunctions returns a new Registry extending r with extra, to
// be consulted only for the evaluation it was built for (spec.md §6:
// "extends the Registry for this evaluation only"). A name collision
// with a built-in function is a ConfigurationError.
func (r *Registry) WithCustomFunctions(extra map[string]FunctionDef) (*Registry, error) {
	cp := &Registry{
		infix:     r.infix,
		prefix:    r.prefix,
		keywords:  r.keywords,
		functions: make(map[string]FunctionDef, len(r.functions)+len(extra)),
	}
	for k, v := range r.functions {
		cp.functions[k] = v
	}
	for name, def := range extra {
		if _, exists := r.functions[name]; exists {
			return nil, ferrors.Configurationf("custom function %q collides with a built-in function", name)
		}
		def.Name = name
		cp.functions[name] = def
	}
	return cp, nil
}

// argCountError builds the ArgumentCountError for a function invoked
// with the wrong number of arguments.
func argCountError(pos token.Position, name string, got, min, max int) error {
	if max < 0 {
		return ferrors.ArgumentCountf(pos, "%s expects at least %d argument(s), got %d", name, min, got)
	}
	if min == max {
		return ferrors.ArgumentCountf(pos, "%s expects exactly %d argument(s), got %d", name, min, got)
	}
	return ferrors.ArgumentCountf(pos, "%s expects %d to %d argument(s), got %d", name, min, max, got)
}

// CheckArity validates nodes against fn's declared arity, returning an
// ArgumentCountError if it does not fit.
func CheckArity(fn FunctionDef, pos token.Position, nArgs int) error {
	if nArgs < fn.MinArgs || (fn.MaxArgs >= 0 && nArgs > fn.MaxArgs) {
		return argCountError(pos, fn.Name, nArgs, fn.MinArgs, fn.MaxArgs)
	}
	return nil
}

// NewStandard builds the Registry described by spec.md §4.B/§4.E: every
// required operator and function, registered exactly once (spec.md §9
// "Registry global state" — initialize once, treat as read-only).
func NewStandard() *Registry {
	r := &Registry{
		infix:     map[token.Kind]InfixOperator{},
		prefix:    map[token.Kind]PrefixOperator{},
		functions: map[string]FunctionDef{},
		keywords:  map[token.Kind]bool{},
	}
	registerOperators(r)
	registerIteratorFunctions(r)
	registerCollectionFunctions(r)
	registerStringFunctions(r)
	registerMathFunctions(r)
	registerConversionFunctions(r)
	registerTypeFunctions(r)
	return r
}

func (r *Registry) addInfix(op InfixOperator, keyword bool) {
	r.infix[op.Kind] = op
	if keyword {
		r.keywords[op.Kind] = true
	}
}

func (r *Registry) addPrefix(op PrefixOperator) {
	r.prefix[op.Kind] = op
}

func (r *Registry) addFunction(fn FunctionDef) {
	r.functions[fn.Name] = fn
}

func singleton(c value.Collection, fnName string, pos token.Position) (value.Value, error) {
	v, ok := c.Singleton()
	if !ok {
		return nil, ferrors.Evaluationf(pos, "%s requires a singleton, got %d items", fnName, len(c))
	}
	return v, nil
}
