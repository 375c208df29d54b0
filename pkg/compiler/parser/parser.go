// Package parser turns a tinyscript token stream into an AST.
package parser

import (
	"fmt"
	"strconv"

	"github.com/zurustar/tinyscript/pkg/compiler/ast"
	"github.com/zurustar/tinyscript/pkg/compiler/lexer"
	"github.com/zurustar/tinyscript/pkg/compiler/token"
	"github.com/zurustar/tinyscript/pkg/diag"
)

// Precedence levels for operators, lowest to highest.
const (
	_ int = iota
	LOWEST
	OR          // or
	AND         // and
	EQUALS      // == ~=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * /
	MODULO      // %
	EXPONENT    // ^ (right-associative)
	PREFIX      // ~X -X +X
)

var precedences = map[token.TokenType]int{
	token.OR:       OR,
	token.AND:      AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GT:       LESSGREATER,
	token.GTE:      LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  MODULO,
	token.CARET:    EXPONENT,
}

// Parser parses tinyscript source code into an AST.
// It stops at the first error.
type Parser struct {
	l   *lexer.Lexer
	err *diag.Error

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new Parser.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifierOrCall)
	p.registerPrefix(token.INT, p.parseNumberLiteral)
	p.registerPrefix(token.FLOAT, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolLiteral)
	p.registerPrefix(token.FALSE, p.parseBoolLiteral)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT, token.CARET,
		token.EQ, token.NOT_EQ, token.LT, token.LTE, token.GT, token.GTE,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.AND, p.parseLogicalExpression)
	p.registerInfix(token.OR, p.parseLogicalExpression)

	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()

	return p
}

// Err returns the first error encountered.
func (p *Parser) Err() *diag.Error {
	return p.err
}

// ParseProgram parses the entire program.
func (p *Parser) ParseProgram() (*ast.Statements, error) {
	program := &ast.Statements{Token: p.curToken}

	for p.err == nil && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program.List = append(program.List, stmt)
		}
		p.nextToken()
	}

	if p.err != nil {
		return nil, p.err
	}
	return program, nil
}

// parseStatement parses the statement starting at curToken and leaves
// curToken on its last token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.PRINT:
		tok := p.curToken
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		return &ast.Print{Token: tok, Value: value}
	case token.PRINTLN:
		tok := p.curToken
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		return &ast.Println{Token: tok, Value: value}
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.FUNC:
		return p.parseFunctionDeclaration()
	case token.RET:
		return p.parseReturnStatement()
	case token.IDENT:
		if p.peekTokenIs(token.ASSIGN) {
			stmt := p.parseAssignment()
			if stmt == nil {
				return nil
			}
			return stmt
		}
		if p.peekTokenIs(token.LPAREN) {
			tok := p.curToken
			call := p.parseCall()
			if call == nil {
				return nil
			}
			return &ast.FunctionCallStatement{Token: tok, Call: call}
		}
		p.errorf(p.peekToken, "expected ':=' or '(' after %s, got %s", p.curToken.Literal, describe(p.peekToken))
		return nil
	default:
		p.errorf(p.curToken, "unexpected %s at start of statement", describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseAssignment() *ast.Assignment {
	target := &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	stmt := &ast.Assignment{Token: p.curToken, Target: target}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

// parseIfStatement parses `if test then ... [else ...] end`.
func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.If{Token: p.curToken}
	p.nextToken()
	stmt.Test = p.parseExpression(LOWEST)
	if stmt.Test == nil || !p.expectPeek(token.THEN) {
		return nil
	}

	stmt.Then = p.parseBlock(token.ELSE, token.END)
	if stmt.Then == nil {
		return nil
	}
	if p.curTokenIs(token.ELSE) {
		stmt.Else = p.parseBlock(token.END)
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

// parseWhileStatement parses `while test do ... end`.
func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.While{Token: p.curToken}
	p.nextToken()
	stmt.Test = p.parseExpression(LOWEST)
	if stmt.Test == nil || !p.expectPeek(token.DO) {
		return nil
	}
	stmt.Body = p.parseBlock(token.END)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseForStatement parses `for name := start, end[, step] do ... end`.
func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.For{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Init = p.parseAssignment()
	if stmt.Init == nil || !p.expectPeek(token.COMMA) {
		return nil
	}
	p.nextToken()
	stmt.End = p.parseExpression(LOWEST)
	if stmt.End == nil {
		return nil
	}

	if p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		stmt.Step = p.parseExpression(LOWEST)
		if stmt.Step == nil {
			return nil
		}
	} else {
		stmt.Step = &ast.Number{
			Token: token.Token{Type: token.INT, Literal: "1", Line: stmt.Token.Line, Column: stmt.Token.Column},
			Value: 1,
		}
	}

	if !p.expectPeek(token.DO) {
		return nil
	}
	stmt.Body = p.parseBlock(token.END)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseFunctionDeclaration parses `func name(a, b) ... end`.
func (p *Parser) parseFunctionDeclaration() ast.Statement {
	stmt := &ast.FunctionDeclaration{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal
	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	stmt.Params = p.parseFunctionParameters()
	if p.err != nil {
		return nil
	}

	stmt.Body = p.parseBlock(token.END)
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseFunctionParameters parses identifiers up to and including ')'.
func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	params := []*ast.Identifier{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	seen := map[string]bool{}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		if seen[p.curToken.Literal] {
			p.errorf(p.curToken, "duplicate parameter %s", p.curToken.Literal)
			return nil
		}
		seen[p.curToken.Literal] = true
		params = append(params, &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal})

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.Return{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

// parseBlock parses statements after curToken until one of the terminators
// and leaves curToken on that terminator.
func (p *Parser) parseBlock(terminators ...token.TokenType) *ast.Statements {
	block := &ast.Statements{Token: p.peekToken}
	p.nextToken()

	for !p.curTokenIsAny(terminators...) {
		if p.err != nil {
			return nil
		}
		if p.curTokenIs(token.EOF) {
			p.errorf(p.curToken, "expected %s before end of input", expectedList(terminators))
			return nil
		}
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.List = append(block.List, stmt)
		p.nextToken()
	}
	if p.err != nil {
		return nil
	}
	return block
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(token.EOF) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

// parseIdentifierOrCall parses a variable reference or, when followed by
// '(', a function call.
func (p *Parser) parseIdentifierOrCall() ast.Expression {
	if p.peekTokenIs(token.LPAREN) {
		call := p.parseCall()
		if call == nil {
			return nil
		}
		return call
	}
	return &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
}

// parseCall parses `name(args)` with curToken on the name.
func (p *Parser) parseCall() *ast.FunctionCall {
	call := &ast.FunctionCall{Token: p.curToken, Name: p.curToken.Literal}
	p.nextToken() // '('
	call.Args = p.parseExpressionList(token.RPAREN)
	if p.err != nil {
		return nil
	}
	return call
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "could not parse %q as number", p.curToken.Literal)
		return nil
	}
	return &ast.Number{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.String{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.Bool{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.UnaryOp{Token: p.curToken, Op: p.curToken.Type}
	p.nextToken()
	expression.Operand = p.parseExpression(PREFIX)
	if expression.Operand == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.BinOp{Token: p.curToken, Op: p.curToken.Type, Left: left}

	precedence := p.curPrecedence()
	if p.curTokenIs(token.CARET) {
		// right-associative
		precedence--
	}
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	expression := &ast.LogicalOp{Token: p.curToken, Op: p.curToken.Type, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	group := &ast.Grouping{Token: p.curToken}
	p.nextToken()
	group.Inner = p.parseExpression(LOWEST)
	if group.Inner == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return group
}

// parseExpressionList parses comma separated expressions up to end.
// curToken is the opening token on entry and end on exit.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		list = append(list, expr)
	}

	if !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) curTokenIsAny(ts ...token.TokenType) bool {
	for _, t := range ts {
		if p.curToken.Type == t {
			return true
		}
	}
	return false
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
	if p.peekToken.Type == token.ILLEGAL && p.err == nil {
		if lexErr := p.l.Err(); lexErr != nil {
			p.err = lexErr
		} else {
			p.err = diag.New(diag.LexError, p.peekToken.Line, p.peekToken.Column, "%s", p.peekToken.Literal)
		}
	}
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) peekError(t token.TokenType) {
	p.errorf(p.peekToken, "expected %s, got %s", describeType(t), describe(p.peekToken))
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.errorf(tok, "expected expression, got %s", describe(tok))
}

// errorf records the first parse error. A lexical error wins because it is
// recorded as soon as the ILLEGAL token is read into peekToken.
func (p *Parser) errorf(tok token.Token, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = diag.New(diag.ParseError, tok.Line, tok.Column, format, args...)
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT:
		return fmt.Sprintf("identifier %s", tok.Literal)
	case token.INT, token.FLOAT:
		return fmt.Sprintf("number %s", tok.Literal)
	case token.STRING:
		return fmt.Sprintf("string %q", tok.Literal)
	default:
		return fmt.Sprintf("'%s'", tok.Literal)
	}
}

func describeType(t token.TokenType) string {
	switch t {
	case token.IDENT:
		return "identifier"
	case token.EOF:
		return "end of input"
	}
	for word, kw := range keywordNames {
		if kw == t {
			return "'" + word + "'"
		}
	}
	return "'" + string(t) + "'"
}

var keywordNames = map[string]token.TokenType{
	"then": token.THEN,
	"else": token.ELSE,
	"end":  token.END,
	"do":   token.DO,
}

func expectedList(ts []token.TokenType) string {
	if len(ts) == 1 {
		return describeType(ts[0])
	}
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += " or "
		}
		out += describeType(t)
	}
	return out
}
