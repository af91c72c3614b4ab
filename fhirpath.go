// Package fhirpath is the module's public entry point (spec.md §6
// "Evaluation entry point"): parse source into an AST, then evaluate
// that AST against an input collection and an optional Config.
package fhirpath

import (
	"context"

	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/evaluator"
	"fhirpath/lexer"
	"fhirpath/parser"
	"fhirpath/registry"
	"fhirpath/value"
)

// Config carries the optional evaluation inputs spec.md §6 names:
// user variables, environment variables, a type oracle for non-primitive
// is/as/ofType, and custom functions extending the Registry for this
// evaluation only. The zero value evaluates with no variables, no type
// oracle, and the built-in function set.
type Config struct {
	// Variables pre-populates user-supplied `%`-variables.
	Variables map[string]value.Collection
	// Environment pre-populates standard `%`-environment variables.
	// `%resource` and `%context` are seeded to the input collection
	// before Environment is applied, so entries here override them
	// (SPEC_FULL.md §4 "%resource / %context environment variables").
	Environment map[string]value.Collection
	TypeOracle  evalctx.TypeOracle
	// CustomFunctions extends the built-in Registry for this evaluation
	// only. A name colliding with a built-in function is a
	// ConfigurationError.
	CustomFunctions map[string]registry.FunctionDef
	// Limits bounds nested function-call depth via MaxRecursionDepth
	// (SPEC_FULL.md §4 "Per-evaluation resource limits"); MaxCollectionSize
	// is carried but no operation consults it. The zero value means
	// evalctx.DefaultLimits.
	Limits evalctx.Limits
	Trace  evalctx.TraceSink
}

// Parse builds an AST from src using the standard built-in Registry.
// Custom functions never add new operators, so a Config's
// CustomFunctions only matter to Evaluate/EvaluateString, not to Parse.
func Parse(src string) (ast.Node, error) {
	return parser.Parse(src, registry.NewStandard())
}

// ParseRecovering builds an AST from src in LSP-style recovery mode,
// returning a best-effort tree alongside every syntax error encountered
// (spec.md §4.C).
func ParseRecovering(src string) (ast.Node, []error) {
	l, err := lexer.New(src)
	if err != nil {
		return nil, []error{err}
	}
	p, err := parser.NewRecovering(l, registry.NewStandard())
	if err != nil {
		return nil, []error{err}
	}
	return p.ParseExpressionRecovering()
}

// Evaluate walks a pre-parsed AST against input with cfg applied. Use
// this when the same expression is evaluated repeatedly (parse once,
// run many times) — EvaluateString re-parses on every call.
func Evaluate(goCtx context.Context, node ast.Node, input value.Collection, cfg Config) (value.Collection, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return evaluateNode(goCtx, node, input, cfg, reg)
}

// EvaluateString parses exprSrc and evaluates it against input with cfg
// applied in one call (spec.md §6 "the expression source or a
// pre-parsed AST").
func EvaluateString(goCtx context.Context, exprSrc string, input value.Collection, cfg Config) (value.Collection, error) {
	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}
	node, err := parser.Parse(exprSrc, reg)
	if err != nil {
		return nil, err
	}
	return evaluateNode(goCtx, node, input, cfg, reg)
}

func evaluateNode(goCtx context.Context, node ast.Node, input value.Collection, cfg Config, reg *registry.Registry) (value.Collection, error) {
	ctx := buildContext(input, cfg)
	return evaluator.New(reg).Evaluate(goCtx, node, ctx)
}

func buildRegistry(cfg Config) (*registry.Registry, error) {
	reg := registry.NewStandard()
	if len(cfg.CustomFunctions) == 0 {
		return reg, nil
	}
	return reg.WithCustomFunctions(cfg.CustomFunctions)
}

func buildContext(input value.Collection, cfg Config) *evalctx.Context {
	ctx := evalctx.New(input)
	ctx = ctx.SetVariable('%', "resource", input)
	ctx = ctx.SetVariable('%', "context", input)
	for name, v := range cfg.Environment {
		ctx = ctx.SetVariable('%', name, v)
	}
	for name, v := range cfg.Variables {
		ctx = ctx.SetVariable('%', name, v)
	}
	if cfg.TypeOracle != nil {
		ctx.TypeOracle = cfg.TypeOracle
	}
	if cfg.Limits != (evalctx.Limits{}) {
		ctx.Limits = cfg.Limits
	}
	if cfg.Trace != nil {
		ctx.Trace = cfg.Trace
	}
	return ctx
}
