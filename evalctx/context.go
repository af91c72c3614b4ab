// Package evalctx implements the FHIRPath Runtime Context (spec.md §4.D):
// an input collection, a current focus, and a variable scope chain,
// threaded through every Evaluator node. Context is logically immutable;
// every "mutating" operation returns a new Context that shares the rest
// of the structure with its parent (the "prototype-chain" style
// structural sharing spec.md §9 calls out as one valid strategy).
package evalctx

import (
	"context"

	"fhirpath/value"
)

// frame is one link in the persistent variable scope chain. Binding a
// name pushes a new frame; looking a name up walks outward until it is
// found or the chain ends, so a nested scope sees its parent's bindings
// but never leaks its own back up (spec.md §4.D invariant).
type frame struct {
	key    string
	value  value.Collection
	parent *frame
}

// TypeDescriptor is what a TypeOracle resolves a type name to.
type TypeDescriptor struct {
	Name     string
	BaseType string
}

// TypeOracle classifies values against named resource/complex types.
// Required for non-primitive is/as/ofType (spec.md §4.E, §9 Glossary).
// A nil TypeOracle means only primitive type checks succeed.
type TypeOracle interface {
	ResolveType(name string) (TypeDescriptor, bool)
	IsA(typeName, ancestorName string) bool
	PropertiesOf(typeName string) []string
}

// Limits bounds pathological expressions (SPEC_FULL.md §4 "Supplemented
// Features": a safety net, not a language feature).
type Limits struct {
	MaxCollectionSize int
	MaxRecursionDepth int
}

// DefaultLimits are generous-but-finite, per SPEC_FULL.md §4.
var DefaultLimits = Limits{MaxCollectionSize: 1_000_000, MaxRecursionDepth: 2000}

// TraceSink receives trace() calls (spec.md §4.E function list). The
// zero value is a no-op so the core never depends on a logger itself.
type TraceSink func(name string, items value.Collection)

// Context is the immutable-feeling record threaded through evaluation.
type Context struct {
	Input      value.Collection
	Focus      value.Collection
	vars       *frame
	TypeOracle TypeOracle
	Limits     Limits
	Trace      TraceSink
	depth      int
	goCtx      context.Context
}

// New builds the root Context for an evaluation. $this is seeded to the
// input collection so it is defined even outside any iterator function
// (see DESIGN.md "$this seeding at evaluation root").
func New(input value.Collection) *Context {
	ctx := &Context{Input: input, Focus: input, Limits: DefaultLimits, Trace: func(string, value.Collection) {}}
	ctx.vars = &frame{key: varKey('$', "this"), value: input}
	return ctx
}

func varKey(sigil byte, name string) string {
	return string(sigil) + name
}

func (c *Context) clone() *Context {
	cp := *c
	return &cp
}

// WithFocus returns a new Context whose Focus is values.
func (c *Context) WithFocus(values value.Collection) *Context {
	cp := c.clone()
	cp.Focus = values
	return cp
}

// WithIterator returns a new Context whose $this = [item], $index =
// [index], and focus = [item] (spec.md §4.D). $total is not seeded here;
// aggregate-style callers set it afterward via SetVariable.
func (c *Context) WithIterator(item value.Value, index int) *Context {
	cp := c.clone()
	cp.Focus = value.Single(item)
	cp.vars = &frame{key: varKey('$', "this"), value: value.Single(item), parent: c.vars}
	cp.vars = &frame{key: varKey('$', "index"), value: value.Single(value.Integer(index)), parent: cp.vars}
	return cp
}

// SetVariable returns a new Context with name bound to val in an
// enclosing scope visible to downstream nodes (spec.md §4.D, used by
// defineVariable and by aggregate's $total seeding).
func (c *Context) SetVariable(sigil byte, name string, val value.Collection) *Context {
	cp := c.clone()
	cp.vars = &frame{key: varKey(sigil, name), value: val, parent: c.vars}
	return cp
}

// GetVariable returns the bound collection for a $- or %-prefixed name,
// walking outward through enclosing scopes, and whether it was found.
// For $this/$index/$total this returns the innermost iterator binding.
func (c *Context) GetVariable(sigil byte, name string) (value.Collection, bool) {
	key := varKey(sigil, name)
	for f := c.vars; f != nil; f = f.parent {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// EnterRecursion reports whether one more level of depth stays within
// Limits.MaxRecursionDepth. It does not change the counter itself
// (WithRecursionDepth does); the Evaluator calls it before every
// function call.
func (c *Context) EnterRecursion() (ok bool) {
	return c.depth+1 <= c.Limits.MaxRecursionDepth
}

// WithRecursionDepth returns a new Context with the recursion depth
// counter incremented by one.
func (c *Context) WithRecursionDepth() *Context {
	cp := c.clone()
	cp.depth = c.depth + 1
	return cp
}

// WithGoContext returns a new Context carrying goCtx, consulted by Err
// so the Evaluator can poll for host-side cancellation between nodes
// (SPEC_FULL.md §4 "Cancellation-aware evaluation entry point").
func (c *Context) WithGoContext(goCtx context.Context) *Context {
	cp := c.clone()
	cp.goCtx = goCtx
	return cp
}

// Err reports the carried context.Context's error, or nil if none was
// attached via WithGoContext.
func (c *Context) Err() error {
	if c.goCtx == nil {
		return nil
	}
	return c.goCtx.Err()
}
