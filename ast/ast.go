// Package ast defines the FHIRPath abstract syntax tree (spec.md §3/§6):
// a sum type of node variants, each carrying the source position of its
// span. The Parser builds these nodes; the Evaluator dispatches on their
// concrete type. Adding a variant means touching every switch in
// evaluator and registry that claims to be exhaustive.
package ast

import (
	"fmt"
	"strings"

	"fhirpath/token"
	"fhirpath/value"
)

// Node is implemented by every AST variant.
type Node interface {
	Pos() token.Position
	String() string
	astNode()
}

// Literal is a literal value of one of the kinds spec.md §3 names.
// A nil Value denotes the null literal `{}`.
type Literal struct {
	Position token.Position
	Value    value.Value
}

func (l *Literal) Pos() token.Position { return l.Position }
func (l *Literal) astNode()            {}
func (l *Literal) String() string {
	if l.Value == nil {
		return "{}"
	}
	if s, ok := l.Value.(value.String); ok {
		return "'" + string(s) + "'"
	}
	return l.Value.String()
}

// Identifier is a bare name: property navigation on the current focus,
// or (when capitalized and consumed as a primary) a type name.
type Identifier struct {
	Position token.Position
	Name     string
}

func (i *Identifier) Pos() token.Position { return i.Position }
func (i *Identifier) astNode()            {}
func (i *Identifier) String() string      { return i.Name }

// TypeOrIdentifier is a capitalized identifier appearing as a primary
// (not after `.`), which the Evaluator resolves as either a type name or
// ordinary property navigation depending on context (spec.md §4.E, and
// the §9 Open Question on root-type filtering).
type TypeOrIdentifier struct {
	Position token.Position
	Name     string
}

func (t *TypeOrIdentifier) Pos() token.Position { return t.Position }
func (t *TypeOrIdentifier) astNode()            {}
func (t *TypeOrIdentifier) String() string      { return t.Name }

// Variable is a `$`- or `%`-prefixed name. Sigil is '$' or '%'.
type Variable struct {
	Position token.Position
	Sigil    byte
	Name     string
}

func (v *Variable) Pos() token.Position { return v.Position }
func (v *Variable) astNode()            {}
func (v *Variable) String() string      { return string(v.Sigil) + v.Name }

// Binary is a two-operand operator application. The dot operator is
// represented here too (spec.md §3: "has pipeline semantics").
type Binary struct {
	Position token.Position
	Op       token.Kind
	OpLexeme string
	Left     Node
	Right    Node
}

func (b *Binary) Pos() token.Position { return b.Position }
func (b *Binary) astNode()            {}
func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left.String(), b.OpLexeme, b.Right.String())
}

// Unary is a single-operand prefix operator application (`+`, `-`).
type Unary struct {
	Position token.Position
	Op       token.Kind
	OpLexeme string
	Operand  Node
}

func (u *Unary) Pos() token.Position { return u.Position }
func (u *Unary) astNode()            {}
func (u *Unary) String() string {
	return fmt.Sprintf("(%s%s)", u.OpLexeme, u.Operand.String())
}

// Function is a named call with an ordered, unevaluated argument list.
type Function struct {
	Position token.Position
	Name     string
	Args     []Node
}

func (f *Function) Pos() token.Position { return f.Position }
func (f *Function) astNode()            {}
func (f *Function) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

// Index is subscript access: `expr[index]`.
type Index struct {
	Position token.Position
	Target   Node
	IndexExp Node
}

func (ix *Index) Pos() token.Position { return ix.Position }
func (ix *Index) astNode()            {}
func (ix *Index) String() string {
	return fmt.Sprintf("%s[%s]", ix.Target.String(), ix.IndexExp.String())
}

// Collection is a `{e1, e2, ...}` literal. Order is preserved.
type Collection struct {
	Position token.Position
	Elements []Node
}

func (c *Collection) Pos() token.Position { return c.Position }
func (c *Collection) astNode()            {}
func (c *Collection) String() string {
	elems := make([]string, len(c.Elements))
	for i, e := range c.Elements {
		elems[i] = e.String()
	}
	return "{" + strings.Join(elems, ", ") + "}"
}

// Union is two or more operands joined by `|`, collapsed into a single
// flat node rather than a left-leaning Binary chain (spec.md §4.C).
type Union struct {
	Position token.Position
	Operands []Node
}

func (u *Union) Pos() token.Position { return u.Position }
func (u *Union) astNode()            {}
func (u *Union) String() string {
	parts := make([]string, len(u.Operands))
	for i, o := range u.Operands {
		parts[i] = o.String()
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// TypeReference names a type, optionally namespace-qualified
// (`FHIR.Patient`).
type TypeReference struct {
	Position  token.Position
	Namespace string
	Name      string
}

func (t *TypeReference) Pos() token.Position { return t.Position }
func (t *TypeReference) astNode()            {}
func (t *TypeReference) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// MembershipTest is `expr is TypeName`.
type MembershipTest struct {
	Position token.Position
	Expr     Node
	Type     *TypeReference
}

func (m *MembershipTest) Pos() token.Position { return m.Position }
func (m *MembershipTest) astNode()            {}
func (m *MembershipTest) String() string {
	return fmt.Sprintf("(%s is %s)", m.Expr.String(), m.Type.String())
}

// TypeCast is `expr as TypeName`.
type TypeCast struct {
	Position token.Position
	Expr     Node
	Type     *TypeReference
}

func (c *TypeCast) Pos() token.Position { return c.Position }
func (c *TypeCast) astNode()            {}
func (c *TypeCast) String() string {
	return fmt.Sprintf("(%s as %s)", c.Expr.String(), c.Type.String())
}
