package registry

import (
	"fhirpath/ast"
	"fhirpath/evalctx"
	"fhirpath/ferrors"
	"fhirpath/token"
	"fhirpath/value"
)

// registerTypeFunctions wires spec.md §4.E's type function family:
// `ofType`, `is`, `as` (function forms, distinct from the `is`/`as`
// infix keywords which parse into MembershipTest/TypeCast nodes), and
// `type`. All consult the Runtime Context's TypeOracle for anything
// beyond the built-in primitive kinds.
func registerTypeFunctions(r *Registry) {
	r.addFunction(FunctionDef{Name: "ofType", MinArgs: 1, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalOfType})
	r.addFunction(FunctionDef{Name: "is", MinArgs: 1, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalIsFn})
	r.addFunction(FunctionDef{Name: "as", MinArgs: 1, MaxArgs: 1, ParamModes: []ParamMode{Lazy}, Eval: evalAsFn})
	r.addFunction(FunctionDef{Name: "type", MinArgs: 0, MaxArgs: 0, Eval: evalType})
}

// typeNameFromNode extracts a (namespace, name) type specifier from a
// function argument AST fragment. The Parser may hand this a dedicated
// *ast.TypeReference, or a plain identifier chain (`FHIR.Patient` parses
// like any other dotted path before the Registry reinterprets it here).
func typeNameFromNode(n ast.Node) (namespace, name string, ok bool) {
	switch t := n.(type) {
	case *ast.TypeReference:
		return t.Namespace, t.Name, true
	case *ast.Identifier:
		return "", t.Name, true
	case *ast.TypeOrIdentifier:
		return "", t.Name, true
	case *ast.Binary:
		if t.Op == token.Dot {
			if left, lok := singleIdentifierName(t.Left); lok {
				if right, rok := singleIdentifierName(t.Right); rok {
					return left, right, true
				}
			}
		}
		return "", "", false
	default:
		return "", "", false
	}
}

func singleIdentifierName(n ast.Node) (string, bool) {
	switch t := n.(type) {
	case *ast.Identifier:
		return t.Name, true
	case *ast.TypeOrIdentifier:
		return t.Name, true
	default:
		return "", false
	}
}

// valueMatchesType reports whether v's runtime kind matches the named
// primitive type, or (via TypeOracle) a resource/complex type.
func valueMatchesType(ctx *evalctx.Context, v value.Value, namespace, name string) bool {
	if primitiveKind, ok := primitiveTypeName(v); ok && primitiveKind == name {
		return true
	}
	m, isMap := v.(value.Map)
	if !isMap || ctx.TypeOracle == nil {
		return false
	}
	if m.TypeName == name {
		return true
	}
	return ctx.TypeOracle.IsA(m.TypeName, name)
}

// MatchesTypeName reports whether v matches the unqualified type name.
// Exported for the Evaluator's TypeOrIdentifier root-filtering (spec.md
// §9 Open Question on root-type filtering): a capitalized identifier
// that isn't a field on any Map in Focus falls back to this check.
func MatchesTypeName(ctx *evalctx.Context, v value.Value, name string) bool {
	return valueMatchesType(ctx, v, "", name)
}

// MatchesTypeReference is MatchesTypeName's namespace-aware sibling, for
// the `is`/`as` infix keyword forms (parsed into MembershipTest/TypeCast
// nodes) so a namespace-qualified type reference like `FHIR.Patient` or
// `System.Integer` is checked the same way the `.is()`/`.as()`/`.ofType()`
// function forms already check it via typeNameFromNode.
func MatchesTypeReference(ctx *evalctx.Context, v value.Value, namespace, name string) bool {
	return valueMatchesType(ctx, v, namespace, name)
}

func primitiveTypeName(v value.Value) (string, bool) {
	switch v.(type) {
	case value.Boolean:
		return "Boolean", true
	case value.Integer:
		return "Integer", true
	case value.Decimal:
		return "Decimal", true
	case value.String:
		return "String", true
	case value.Date:
		return "Date", true
	case value.DateTime:
		return "DateTime", true
	case value.Time:
		return "Time", true
	case value.Quantity:
		return "Quantity", true
	default:
		return "", false
	}
}

func evalOfType(c Call) (value.Collection, *evalctx.Context, error) {
	namespace, name, ok := typeNameFromNode(c.Args[0].Node)
	if !ok {
		return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, nil, "ofType requires a type specifier argument")
	}
	var out value.Collection
	for _, v := range c.Focus {
		if valueMatchesType(c.Ctx, v, namespace, name) {
			out = append(out, v)
		}
	}
	return out, c.Ctx, nil
}

func evalIsFn(c Call) (value.Collection, *evalctx.Context, error) {
	v, ok := c.Focus.Singleton()
	if !ok {
		return nil, c.Ctx, nil
	}
	namespace, name, ok := typeNameFromNode(c.Args[0].Node)
	if !ok {
		return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, nil, "is requires a type specifier argument")
	}
	return value.Single(value.Boolean(valueMatchesType(c.Ctx, v, namespace, name))), c.Ctx, nil
}

func evalAsFn(c Call) (value.Collection, *evalctx.Context, error) {
	v, ok := c.Focus.Singleton()
	if !ok {
		return nil, c.Ctx, nil
	}
	namespace, name, ok := typeNameFromNode(c.Args[0].Node)
	if !ok {
		return nil, c.Ctx, ferrors.ArgumentTypef(c.Pos, nil, "as requires a type specifier argument")
	}
	if !valueMatchesType(c.Ctx, v, namespace, name) {
		return nil, c.Ctx, nil
	}
	return value.Single(v), c.Ctx, nil
}

func evalType(c Call) (value.Collection, *evalctx.Context, error) {
	v, ok := c.Focus.Singleton()
	if !ok {
		return nil, c.Ctx, nil
	}
	if name, ok := primitiveTypeName(v); ok {
		return value.Single(value.String(name)), c.Ctx, nil
	}
	if m, isMap := v.(value.Map); isMap && m.TypeName != "" {
		return value.Single(value.String(m.TypeName)), c.Ctx, nil
	}
	return value.Single(value.String(v.Kind().String())), c.Ctx, nil
}
