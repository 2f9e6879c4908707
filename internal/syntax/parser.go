// internal/syntax/parser.go
package syntax

import (
	"fmt"

	"github.com/solatis/spelfilter/internal/types"
)

/*
 * Recursive-descent parser for the filter language.
 *
 * Grammar:
 *   query      := or EOF
 *   or         := and ('or' and)*
 *   and        := primary ('and' primary)*
 *   primary    := '(' or ')' | comparison
 *   comparison := field op constant
 *   field      := ident ('.' ident)?
 *   op         := '==' | '!=' | '>' | '>=' | '<' | '<=' | 'like' | 'not' 'like'
 *   constant   := string | number | ident
 *
 * 'and' binds tighter than 'or'; both are left-associative. Parentheses
 * produce a Group node so the tree records where grouping was written.
 *
 * Limits: input longer than types.MaxQueryLength and nesting deeper than
 * types.MaxExpressionDepth are rejected before they can exhaust the stack.
 */

// Error reports a lexical or syntactic failure at a column of the query.
type Error struct {
	Pos int
	Msg string
	Err error // resource limit sentinel, if any
}

func (e *Error) Error() string {
	return fmt.Sprintf("column %d: %s", e.Pos, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

type Parser struct {
	lexer        *Lexer
	currentToken Token
	peekToken    Token
	depth        int
}

func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse lexes and parses a complete filter expression.
func Parse(query string) (Node, error) {
	if len(query) > types.MaxQueryLength {
		return nil, &Error{
			Pos: types.MaxQueryLength + 1,
			Msg: fmt.Sprintf("query is %d bytes, limit is %d", len(query), types.MaxQueryLength),
			Err: types.ErrQueryTooLong,
		}
	}
	return NewParser(NewLexer(query)).Parse()
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// Parse parses the whole token stream into one expression.
func (p *Parser) Parse() (Node, error) {
	if p.currentToken.Type == TokenEOF {
		return nil, p.errorf(p.currentToken, "empty expression")
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != TokenEOF {
		return nil, p.unexpected(p.currentToken, "'and', 'or' or end of input")
	}
	return node, nil
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.currentToken.Type == TokenOr {
		at := p.currentToken.Pos
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: OpOr, Left: left, Right: right, At: at}
	}

	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.currentToken.Type == TokenAnd {
		at := p.currentToken.Pos
		p.nextToken()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: OpAnd, Left: left, Right: right, At: at}
	}

	return left, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.currentToken.Type {
	case TokenLeftParen:
		return p.parseGroupedExpression()
	case TokenIdentifier:
		return p.parseComparison()
	case TokenIllegal:
		return nil, p.errorf(p.currentToken, "%s", p.currentToken.Literal)
	default:
		return nil, p.unexpected(p.currentToken, "field name or '('")
	}
}

func (p *Parser) parseGroupedExpression() (Node, error) {
	open := p.currentToken
	p.depth++
	if p.depth > types.MaxExpressionDepth {
		return nil, &Error{
			Pos: open.Pos,
			Msg: fmt.Sprintf("nesting deeper than %d", types.MaxExpressionDepth),
			Err: types.ErrExpressionTooDeep,
		}
	}
	p.nextToken()

	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != TokenRightParen {
		return nil, p.unexpected(p.currentToken, "')'")
	}
	p.nextToken()
	p.depth--

	return &Group{Inner: inner, At: open.Pos}, nil
}

func (p *Parser) parseComparison() (Node, error) {
	field, err := p.parseField()
	if err != nil {
		return nil, err
	}

	opTok := p.currentToken
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	constant, err := p.parseConstant()
	if err != nil {
		return nil, err
	}

	return &Comparison{Op: op, Field: field, Constant: constant, At: opTok.Pos}, nil
}

func (p *Parser) parseField() (*FieldRef, error) {
	tok := p.currentToken
	field := &FieldRef{Name: tok.Literal, At: tok.Pos}
	p.nextToken()

	if p.currentToken.Type != TokenDot {
		return field, nil
	}
	p.nextToken()
	if p.currentToken.Type != TokenIdentifier {
		return nil, p.unexpected(p.currentToken, "nested field name")
	}
	field.Nested = p.currentToken.Literal
	p.nextToken()

	if p.currentToken.Type == TokenDot {
		return nil, &Error{
			Pos: p.currentToken.Pos,
			Msg: fmt.Sprintf("field path %s.%s... exceeds %d segments", field.Path(), p.peekToken.Literal, types.MaxPathDepth),
			Err: types.ErrPathTooDeep,
		}
	}
	return field, nil
}

func (p *Parser) parseOperator() (CompareOp, error) {
	tok := p.currentToken
	var op CompareOp
	switch tok.Type {
	case TokenEqual:
		op = OpEq
	case TokenNotEqual:
		op = OpNotEq
	case TokenGreater:
		op = OpGt
	case TokenGreaterEqual:
		op = OpGte
	case TokenLess:
		op = OpLt
	case TokenLessEqual:
		op = OpLte
	case TokenLike:
		op = OpLike
	case TokenNot:
		if p.peekToken.Type != TokenLike {
			return 0, p.unexpected(p.peekToken, "'like' after 'not'")
		}
		p.nextToken()
		op = OpNotLike
	case TokenIllegal:
		return 0, p.errorf(tok, "%s", tok.Literal)
	default:
		return 0, p.unexpected(tok, "comparison operator")
	}
	p.nextToken()
	return op, nil
}

func (p *Parser) parseConstant() (*Constant, error) {
	tok := p.currentToken
	var c *Constant
	switch tok.Type {
	case TokenString:
		c = &Constant{Raw: tok.Literal, Quoted: true, At: tok.Pos}
	case TokenNumber, TokenIdentifier:
		c = &Constant{Raw: tok.Literal, At: tok.Pos}
	case TokenIllegal:
		return nil, p.errorf(tok, "%s", tok.Literal)
	default:
		return nil, p.unexpected(tok, "literal")
	}
	p.nextToken()
	return c, nil
}

func (p *Parser) errorf(tok Token, format string, args ...any) *Error {
	return &Error{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(tok Token, want string) *Error {
	if tok.Type == TokenIllegal {
		return p.errorf(tok, "%s", tok.Literal)
	}
	got := tok.Type.String()
	if tok.Literal != "" && tok.Type != TokenEOF {
		got = fmt.Sprintf("%s %q", got, tok.Literal)
	}
	return p.errorf(tok, "expected %s, got %s", want, got)
}
