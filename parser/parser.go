// Package parser builds a FHIRPath expression tree (spec.md §4.C) out of
// a token stream, using the same curToken/peekToken Pratt-loop shape as
// the teacher's statement parser, but driven by the operation Registry's
// precedence table instead of a hard-coded local one: adding an operator
// to the Registry is enough for the Parser to pick it up.
package parser

import (
	"strconv"
	"strings"

	"fhirpath/ast"
	"fhirpath/ferrors"
	"fhirpath/lexer"
	"fhirpath/registry"
	"fhirpath/token"
	"fhirpath/value"
)

// precDot is the binding power of the postfix forms `.`, `[...]`. It sits
// above every Registry-declared operator (the highest of which is 90) so
// the Pratt loop always consumes a dot or index chain before considering
// any binary operator, and a unary operand parsed at this precedence
// picks up its own postfix chain but nothing looser (spec.md §4.B "unary
// binds tighter than any infix").
const precDot = 1000

// Parser turns a token stream into a single expression tree. It is not
// safe for concurrent use.
type Parser struct {
	lex      *lexer.Lexer
	reg      *registry.Registry
	cur      token.Token
	peek     token.Token
	lexErr   error
	recovery bool
	errs     []error
}

// New builds a Parser in strict mode: the first error aborts parsing.
func New(l *lexer.Lexer, reg *registry.Registry) (*Parser, error) {
	return newParser(l, reg, false)
}

// NewRecovering builds a Parser that, inside argument lists and
// collection literals, records an element's error and resynchronizes at
// the next `,`/closing-bracket rather than aborting the whole parse
// (spec.md §4.C's LSP-recovery mode). A malformed top-level expression
// outside any list still yields a single fatal error: recovery buys
// partial results for sibling list elements, not arbitrary resynchronization.
func NewRecovering(l *lexer.Lexer, reg *registry.Registry) (*Parser, error) {
	return newParser(l, reg, true)
}

func newParser(l *lexer.Lexer, reg *registry.Registry, recovery bool) (*Parser, error) {
	p := &Parser{lex: l, reg: reg, recovery: recovery}
	p.advance()
	p.advance()
	if p.lexErr != nil {
		return nil, p.lexErr
	}
	return p, nil
}

// Parse lexes and parses src in one step, in strict mode.
func Parse(src string, reg *registry.Registry) (ast.Node, error) {
	l, err := lexer.New(src)
	if err != nil {
		return nil, err
	}
	p, err := New(l, reg)
	if err != nil {
		return nil, err
	}
	return p.ParseExpression()
}

func (p *Parser) advance() {
	p.cur = p.peek
	tok, err := p.lex.NextToken()
	if err != nil {
		if p.lexErr == nil {
			p.lexErr = err
		}
		p.peek = token.Token{Kind: token.Eof, Pos: tok.Pos}
		return
	}
	p.peek = tok
}

// ParseExpression parses a full expression and requires nothing but EOF
// to follow it.
func (p *Parser) ParseExpression() (ast.Node, error) {
	node, err := p.parseExpression(0)
	if p.lexErr != nil {
		return node, p.lexErr
	}
	if err != nil {
		return node, err
	}
	if p.peek.Kind != token.Eof {
		return node, ferrors.Syntaxf(p.peek.Pos, "unexpected token %q after expression", p.peek.Lexeme)
	}
	return node, nil
}

// ParseExpressionRecovering is ParseExpression's recovery-mode sibling:
// it never returns early on a recoverable list-element error, instead
// accumulating every error found into the returned slice (empty means
// a clean parse).
func (p *Parser) ParseExpressionRecovering() (ast.Node, []error) {
	node, err := p.parseExpression(0)
	if p.lexErr != nil {
		p.errs = append(p.errs, p.lexErr)
	} else if err != nil {
		p.errs = append(p.errs, err)
	} else if p.peek.Kind != token.Eof {
		p.errs = append(p.errs, ferrors.Syntaxf(p.peek.Pos, "unexpected token %q after expression", p.peek.Lexeme))
	}
	return node, p.errs
}

// parseExpression is the Pratt loop: parse one unary/primary operand,
// then repeatedly consume operators whose binding power is at least
// minPrecedence, recursing for the right-hand side at the precedence
// appropriate to the operator's associativity.
func (p *Parser) parseExpression(minPrecedence int) (ast.Node, error) {
	left, err := p.parseUnary(false)
	if err != nil {
		return left, err
	}
	for p.peekBindingPower() >= minPrecedence && p.peekBindingPower() > 0 {
		opKind := p.peek.Kind
		p.advance() // cur = operator (or '.'/'[')
		left, err = p.parseInfix(left, opKind)
		if err != nil {
			return left, err
		}
	}
	return left, nil
}

func (p *Parser) peekBindingPower() int {
	switch p.peek.Kind {
	case token.Dot, token.LBracket:
		return precDot
	}
	if prec, ok := p.reg.Precedence(p.peek.Kind); ok {
		return prec
	}
	return 0
}

// parseUnary handles prefix `+`/`-`. A minus immediately followed by a
// number literal folds into a negative literal rather than wrapping a
// Unary node (spec.md §4.C "unary-minus-on-literal representation");
// any other operand is parsed at precDot so the operator binds to the
// operand's own postfix/dot chain but not to a looser infix expression.
func (p *Parser) parseUnary(afterDot bool) (ast.Node, error) {
	if p.cur.Kind != token.Plus && p.cur.Kind != token.Minus {
		return p.parsePrimary(afterDot)
	}
	op := p.cur
	if op.Kind == token.Minus && p.peek.Kind == token.Number {
		p.advance() // cur = Number
		return p.parseNumberLiteral(true)
	}
	p.advance() // cur = first token of operand
	operand, err := p.parseExpression(precDot)
	if err != nil {
		return operand, err
	}
	return &ast.Unary{Position: op.Pos, Op: op.Kind, OpLexeme: op.Lexeme, Operand: operand}, nil
}

// parsePrimary parses one primary term. On entry p.cur is its first
// token; on return p.cur is its last consumed token, so the Pratt loop's
// own p.advance() lands exactly on the following operator.
func (p *Parser) parsePrimary(afterDot bool) (ast.Node, error) {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.Number:
		return p.parseNumberLiteral(false)
	case token.String:
		return &ast.Literal{Position: pos, Value: value.String(p.cur.Lexeme)}, nil
	case token.True:
		return &ast.Literal{Position: pos, Value: value.Boolean(true)}, nil
	case token.False:
		return &ast.Literal{Position: pos, Value: value.Boolean(false)}, nil
	case token.Null:
		return &ast.Literal{Position: pos, Value: nil}, nil
	case token.Date:
		d, err := value.ParseDate(p.cur.Lexeme)
		if err != nil {
			return nil, ferrors.Syntaxf(pos, "invalid date literal @%s: %v", p.cur.Lexeme, err)
		}
		return &ast.Literal{Position: pos, Value: d}, nil
	case token.DateTime:
		d, err := value.ParseDateTime(p.cur.Lexeme)
		if err != nil {
			return nil, ferrors.Syntaxf(pos, "invalid dateTime literal @%s: %v", p.cur.Lexeme, err)
		}
		return &ast.Literal{Position: pos, Value: d}, nil
	case token.Time:
		t, err := value.ParseTime(p.cur.Lexeme)
		if err != nil {
			return nil, ferrors.Syntaxf(pos, "invalid time literal @T%s: %v", p.cur.Lexeme, err)
		}
		return &ast.Literal{Position: pos, Value: t}, nil
	case token.This:
		return &ast.Variable{Position: pos, Sigil: '$', Name: "this"}, nil
	case token.Index:
		return &ast.Variable{Position: pos, Sigil: '$', Name: "index"}, nil
	case token.Total:
		return &ast.Variable{Position: pos, Sigil: '$', Name: "total"}, nil
	case token.EnvVar:
		return &ast.Variable{Position: pos, Sigil: '%', Name: p.cur.Lexeme}, nil
	case token.LParen:
		return p.parseGroupedExpression()
	case token.LBrace:
		return p.parseCollectionLiteral()
	default:
		if isIdentifierLike(p.cur.Kind) {
			return p.parseIdentifierOrCall(afterDot)
		}
		return nil, ferrors.Syntaxf(pos, "unexpected token %q", p.cur.Lexeme)
	}
}

// isIdentifierLike reports whether kind may stand in an identifier or
// function-name position. FHIRPath's keyword-spelled operators (`and`,
// `div`, `contains`, ...) are also valid property and function names
// when they appear where an identifier is expected, most commonly right
// after a `.` (e.g. `Patient.contains(...)`, the string function, versus
// the infix membership operator of the same spelling).
func isIdentifierLike(k token.Kind) bool {
	switch k {
	case token.Identifier, token.DelimitedIdentifier,
		token.And, token.Or, token.Xor, token.Implies, token.Not,
		token.In, token.Contains, token.As, token.Is, token.Div, token.Mod:
		return true
	}
	return false
}

func (p *Parser) parseIdentifierOrCall(afterDot bool) (ast.Node, error) {
	name := p.cur.Lexeme
	pos := p.cur.Pos
	identKind := p.cur.Kind
	if p.peek.Kind == token.LParen {
		p.advance() // cur = '('
		args, err := p.parseDelimitedList(token.RParen)
		if err != nil {
			return nil, err
		}
		return &ast.Function{Position: pos, Name: name, Args: args}, nil
	}
	if !afterDot && identKind == token.Identifier && isCapitalized(name) {
		return &ast.TypeOrIdentifier{Position: pos, Name: name}, nil
	}
	return &ast.Identifier{Position: pos, Name: name}, nil
}

func isCapitalized(name string) bool {
	if name == "" {
		return false
	}
	return name[0] >= 'A' && name[0] <= 'Z'
}

// parseGroupedExpression parses `( expr )`, returning the inner
// expression directly: parentheses only group, they have no AST node of
// their own.
func (p *Parser) parseGroupedExpression() (ast.Node, error) {
	p.advance() // cur = first token of inner expression
	inner, err := p.parseExpression(0)
	if err != nil {
		return inner, err
	}
	if p.peek.Kind != token.RParen {
		return inner, ferrors.Syntaxf(p.peek.Pos, "expected ')' to close grouped expression, got %q", p.peek.Lexeme)
	}
	p.advance() // cur = ')'
	return inner, nil
}

func (p *Parser) parseCollectionLiteral() (ast.Node, error) {
	pos := p.cur.Pos
	elems, err := p.parseDelimitedList(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.Collection{Position: pos, Elements: elems}, nil
}

// parseDelimitedList parses a comma-separated list opened by the token
// already in p.cur (`(` or `{`) up through and including closer. A
// trailing comma is a syntax error (spec.md §4.C). In recovery mode, an
// element that fails to parse is replaced with a null-literal
// placeholder and parsing resumes at the next comma or closer.
func (p *Parser) parseDelimitedList(closer token.Kind) ([]ast.Node, error) {
	p.advance() // cur = first element token, or closer if empty
	var nodes []ast.Node
	if p.cur.Kind == closer {
		return nodes, nil
	}
	for {
		elemPos := p.cur.Pos
		recovered := false
		elem, err := p.parseExpression(0)
		if err != nil {
			if !p.recovery {
				return nodes, err
			}
			p.errs = append(p.errs, err)
			elem = &ast.Literal{Position: elemPos}
			recovered = true
			for p.cur.Kind != token.Comma && p.cur.Kind != closer && p.cur.Kind != token.Eof {
				p.advance()
			}
		}
		nodes = append(nodes, elem)

		switch {
		case recovered && p.cur.Kind == closer:
			// Only a recovered element can leave cur sitting on closer
			// already; a clean element leaves cur on its own last token,
			// which may itself be a nested ')' or '}'.
			return nodes, nil
		case recovered && p.cur.Kind == token.Comma:
			p.advance() // cur = first token of next element, or closer
			if p.cur.Kind == closer {
				err := ferrors.Syntaxf(p.cur.Pos, "trailing comma not allowed")
				p.errs = append(p.errs, err)
				return nodes, nil
			}
			continue
		case p.cur.Kind == token.Eof:
			return nodes, ferrors.Syntaxf(p.cur.Pos, "unexpected end of input, expected %q", closer.String())
		case p.peek.Kind == token.Comma:
			p.advance() // cur = ','
			p.advance() // cur = first token of next element, or closer
			if p.cur.Kind == closer {
				err := ferrors.Syntaxf(p.cur.Pos, "trailing comma not allowed")
				if p.recovery {
					p.errs = append(p.errs, err)
					return nodes, nil
				}
				return nodes, err
			}
			continue
		case p.peek.Kind == closer:
			p.advance() // cur = closer
			return nodes, nil
		default:
			err := ferrors.Syntaxf(p.peek.Pos, "expected %q, got %q", closer.String(), p.peek.Lexeme)
			if p.recovery {
				p.errs = append(p.errs, err)
				for p.cur.Kind != closer && p.cur.Kind != token.Eof {
					p.advance()
				}
				return nodes, nil
			}
			return nodes, err
		}
	}
}

// parseInfix handles one operator match. p.cur is the operator token
// itself (`.`, `[`, `is`, `as`, `|`, or a Registry-declared operator).
func (p *Parser) parseInfix(left ast.Node, opKind token.Kind) (ast.Node, error) {
	opTok := p.cur
	switch opKind {
	case token.Dot:
		p.advance() // cur = first token of the RHS term
		rhs, err := p.parsePrimary(true)
		if err != nil {
			return rhs, err
		}
		return &ast.Binary{Position: left.Pos(), Op: token.Dot, OpLexeme: ".", Left: left, Right: rhs}, nil
	case token.LBracket:
		p.advance() // cur = first token of the index expression
		idx, err := p.parseExpression(0)
		if err != nil {
			return idx, err
		}
		if p.peek.Kind != token.RBracket {
			return idx, ferrors.Syntaxf(p.peek.Pos, "expected ']' to close index expression, got %q", p.peek.Lexeme)
		}
		p.advance() // cur = ']'
		return &ast.Index{Position: left.Pos(), Target: left, IndexExp: idx}, nil
	case token.Is, token.As:
		typeRef, err := p.parseTypeReference()
		if err != nil {
			return nil, err
		}
		if opKind == token.Is {
			return &ast.MembershipTest{Position: left.Pos(), Expr: left, Type: typeRef}, nil
		}
		return &ast.TypeCast{Position: left.Pos(), Expr: left, Type: typeRef}, nil
	case token.Pipe:
		prec, _ := p.reg.Precedence(token.Pipe)
		p.advance() // cur = first token of RHS
		rhs, err := p.parseExpression(prec + 1)
		if err != nil {
			return rhs, err
		}
		return flattenUnion(left, rhs), nil
	default:
		op, ok := p.reg.LookupInfix(opKind)
		if !ok {
			return left, ferrors.Syntaxf(opTok.Pos, "unexpected operator %q", opTok.Lexeme)
		}
		nextPrecedence := op.Precedence
		if op.Assoc == registry.LeftAssoc {
			nextPrecedence++
		}
		p.advance() // cur = first token of RHS
		rhs, err := p.parseExpression(nextPrecedence)
		if err != nil {
			return rhs, err
		}
		return &ast.Binary{Position: left.Pos(), Op: opKind, OpLexeme: opTok.Lexeme, Left: left, Right: rhs}, nil
	}
}

func flattenUnion(left, right ast.Node) *ast.Union {
	var operands []ast.Node
	if lu, ok := left.(*ast.Union); ok {
		operands = append(operands, lu.Operands...)
	} else {
		operands = append(operands, left)
	}
	if ru, ok := right.(*ast.Union); ok {
		operands = append(operands, ru.Operands...)
	} else {
		operands = append(operands, right)
	}
	return &ast.Union{Position: left.Pos(), Operands: operands}
}

// parseTypeReference parses the type name following `is`/`as`:
// a plain identifier, or a namespace-qualified `NS.Name` pair.
func (p *Parser) parseTypeReference() (*ast.TypeReference, error) {
	p.advance() // cur = first identifier of the type name
	if p.cur.Kind != token.Identifier {
		return nil, ferrors.Syntaxf(p.cur.Pos, "expected a type name, got %q", p.cur.Lexeme)
	}
	first := p.cur.Lexeme
	firstPos := p.cur.Pos
	if p.peek.Kind != token.Dot {
		return &ast.TypeReference{Position: firstPos, Name: first}, nil
	}
	p.advance() // cur = '.'
	p.advance() // cur = second identifier
	if p.cur.Kind != token.Identifier {
		return nil, ferrors.Syntaxf(p.cur.Pos, "expected a type name after %q.", first)
	}
	return &ast.TypeReference{Position: firstPos, Namespace: first, Name: p.cur.Lexeme}, nil
}

// parseNumberLiteral parses the current Number token into an Integer or
// Decimal literal, folding a leading minus (negative==true) directly
// into the value, and absorbing a following bare or quoted unit into a
// Quantity literal (spec.md §6: `4 'mg'`, `4 weeks`).
func (p *Parser) parseNumberLiteral(negative bool) (ast.Node, error) {
	pos := p.cur.Pos
	lexeme := p.cur.Lexeme
	var dec value.Decimal
	var isInteger bool
	var intVal int64

	if !strings.Contains(lexeme, ".") {
		n, err := strconv.ParseInt(lexeme, 10, 64)
		if err != nil {
			return nil, ferrors.Syntaxf(pos, "invalid integer literal %q: %v", lexeme, err)
		}
		if negative {
			n = -n
		}
		intVal = n
		isInteger = true
		dec = value.DecimalFromInt64(n)
	} else {
		d, err := value.NewDecimal(lexeme)
		if err != nil {
			return nil, ferrors.Syntaxf(pos, "invalid decimal literal %q: %v", lexeme, err)
		}
		if negative {
			d = d.Neg()
		}
		dec = d
	}

	if p.peek.Kind == token.Unit {
		p.advance() // cur = bare unit (e.g. weeks)
		return &ast.Literal{Position: pos, Value: value.Quantity{Value: dec, Unit: p.cur.Lexeme}}, nil
	}
	if p.peek.Kind == token.String {
		p.advance() // cur = quoted unit (e.g. 'mg')
		return &ast.Literal{Position: pos, Value: value.Quantity{Value: dec, Unit: p.cur.Lexeme}}, nil
	}
	if isInteger {
		return &ast.Literal{Position: pos, Value: value.Integer(intVal)}, nil
	}
	return &ast.Literal{Position: pos, Value: dec}, nil
}
