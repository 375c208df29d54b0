package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/zurustar/tinyscript/pkg/compiler/token"
)

// Node is implemented by every AST node. The statementNode and
// expressionNode markers are unexported, so the node set is closed to this
// package.
type Node interface {
	TokenLiteral() string
	String() string
	Pos() (line, column int)
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

func pos(t token.Token) (int, int) { return t.Line, t.Column }

// Statements is an ordered statement list: the program root and every block body.
type Statements struct {
	Token token.Token // first token of the block
	List  []Statement
}

func (s *Statements) statementNode()       {}
func (s *Statements) TokenLiteral() string { return s.Token.Literal }
func (s *Statements) Pos() (int, int)      { return pos(s.Token) }
func (s *Statements) String() string {
	parts := make([]string, 0, len(s.List))
	for _, stmt := range s.List {
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, "; ")
}

// Number is a numeric literal. Integer and float literals share it.
type Number struct {
	Token token.Token
	Value float64
}

func (n *Number) expressionNode()      {}
func (n *Number) TokenLiteral() string { return n.Token.Literal }
func (n *Number) Pos() (int, int)      { return pos(n.Token) }
func (n *Number) String() string       { return strconv.FormatFloat(n.Value, 'f', -1, 64) }

// String is a string literal. Value is the raw text between the quotes.
type String struct {
	Token token.Token
	Value string
}

func (s *String) expressionNode()      {}
func (s *String) TokenLiteral() string { return s.Token.Literal }
func (s *String) Pos() (int, int)      { return pos(s.Token) }
func (s *String) String() string       { return `"` + s.Value + `"` }

// Bool is true or false.
type Bool struct {
	Token token.Token
	Value bool
}

func (b *Bool) expressionNode()      {}
func (b *Bool) TokenLiteral() string { return b.Token.Literal }
func (b *Bool) Pos() (int, int)      { return pos(b.Token) }
func (b *Bool) String() string       { return strconv.FormatBool(b.Value) }

// Identifier
type Identifier struct {
	Token token.Token // token.IDENT
	Name  string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) Pos() (int, int)      { return pos(i.Token) }
func (i *Identifier) String() string       { return i.Name }

// UnaryOp is ~x, -x or +x.
type UnaryOp struct {
	Token   token.Token // the operator token
	Op      token.TokenType
	Operand Expression
}

func (u *UnaryOp) expressionNode()      {}
func (u *UnaryOp) TokenLiteral() string { return u.Token.Literal }
func (u *UnaryOp) Pos() (int, int)      { return pos(u.Token) }
func (u *UnaryOp) String() string       { return "(" + u.Token.Literal + u.Operand.String() + ")" }

// BinOp is an arithmetic or comparison operator applied to both operands.
type BinOp struct {
	Token token.Token // the operator token
	Op    token.TokenType
	Left  Expression
	Right Expression
}

func (b *BinOp) expressionNode()      {}
func (b *BinOp) TokenLiteral() string { return b.Token.Literal }
func (b *BinOp) Pos() (int, int)      { return pos(b.Token) }
func (b *BinOp) String() string {
	return "(" + b.Left.String() + " " + b.Token.Literal + " " + b.Right.String() + ")"
}

// LogicalOp is a short-circuiting and/or.
type LogicalOp struct {
	Token token.Token // the operator token
	Op    token.TokenType
	Left  Expression
	Right Expression
}

func (l *LogicalOp) expressionNode()      {}
func (l *LogicalOp) TokenLiteral() string { return l.Token.Literal }
func (l *LogicalOp) Pos() (int, int)      { return pos(l.Token) }
func (l *LogicalOp) String() string {
	return "(" + l.Left.String() + " " + l.Token.Literal + " " + l.Right.String() + ")"
}

// Grouping is a parenthesized expression.
type Grouping struct {
	Token token.Token // '('
	Inner Expression
}

func (g *Grouping) expressionNode()      {}
func (g *Grouping) TokenLiteral() string { return g.Token.Literal }
func (g *Grouping) Pos() (int, int)      { return pos(g.Token) }
func (g *Grouping) String() string       { return "(" + g.Inner.String() + ")" }

// FunctionCall is a call used as an expression.
type FunctionCall struct {
	Token token.Token // the function name token
	Name  string
	Args  []Expression
}

func (c *FunctionCall) expressionNode()      {}
func (c *FunctionCall) TokenLiteral() string { return c.Token.Literal }
func (c *FunctionCall) Pos() (int, int)      { return pos(c.Token) }
func (c *FunctionCall) String() string {
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Assignment is `name := value`.
type Assignment struct {
	Token  token.Token // ':='
	Target *Identifier
	Value  Expression
}

func (a *Assignment) statementNode()       {}
func (a *Assignment) TokenLiteral() string { return a.Token.Literal }
func (a *Assignment) Pos() (int, int)      { return pos(a.Token) }
func (a *Assignment) String() string       { return a.Target.Name + " := " + a.Value.String() }

// Print writes its value without a trailing newline.
type Print struct {
	Token token.Token
	Value Expression
}

func (p *Print) statementNode()       {}
func (p *Print) TokenLiteral() string { return p.Token.Literal }
func (p *Print) Pos() (int, int)      { return pos(p.Token) }
func (p *Print) String() string       { return "print " + p.Value.String() }

// Println writes its value followed by a newline.
type Println struct {
	Token token.Token
	Value Expression
}

func (p *Println) statementNode()       {}
func (p *Println) TokenLiteral() string { return p.Token.Literal }
func (p *Println) Pos() (int, int)      { return pos(p.Token) }
func (p *Println) String() string       { return "println " + p.Value.String() }

// If
type If struct {
	Token token.Token
	Test  Expression
	Then  *Statements
	Else  *Statements // nil when there is no else branch
}

func (i *If) statementNode()       {}
func (i *If) TokenLiteral() string { return i.Token.Literal }
func (i *If) Pos() (int, int)      { return pos(i.Token) }
func (i *If) String() string {
	var out bytes.Buffer
	out.WriteString("if " + i.Test.String() + " then " + i.Then.String())
	if i.Else != nil {
		out.WriteString(" else " + i.Else.String())
	}
	out.WriteString(" end")
	return out.String()
}

// While
type While struct {
	Token token.Token
	Test  Expression
	Body  *Statements
}

func (w *While) statementNode()       {}
func (w *While) TokenLiteral() string { return w.Token.Literal }
func (w *While) Pos() (int, int)      { return pos(w.Token) }
func (w *While) String() string {
	return "while " + w.Test.String() + " do " + w.Body.String() + " end"
}

// For is `for i := start, end[, step] do ... end`. Step defaults to 1.
type For struct {
	Token token.Token
	Init  *Assignment
	End   Expression
	Step  Expression
	Body  *Statements
}

func (f *For) statementNode()       {}
func (f *For) TokenLiteral() string { return f.Token.Literal }
func (f *For) Pos() (int, int)      { return pos(f.Token) }
func (f *For) String() string {
	return "for " + f.Init.String() + ", " + f.End.String() + ", " + f.Step.String() +
		" do " + f.Body.String() + " end"
}

// FunctionDeclaration
type FunctionDeclaration struct {
	Token  token.Token // 'func'
	Name   string
	Params []*Identifier
	Body   *Statements
}

func (f *FunctionDeclaration) statementNode()       {}
func (f *FunctionDeclaration) TokenLiteral() string { return f.Token.Literal }
func (f *FunctionDeclaration) Pos() (int, int)      { return pos(f.Token) }
func (f *FunctionDeclaration) String() string {
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, p.Name)
	}
	return "func " + f.Name + "(" + strings.Join(params, ", ") + ") " + f.Body.String() + " end"
}

// FunctionCallStatement is a call whose result is discarded.
type FunctionCallStatement struct {
	Token token.Token
	Call  *FunctionCall
}

func (f *FunctionCallStatement) statementNode()       {}
func (f *FunctionCallStatement) TokenLiteral() string { return f.Token.Literal }
func (f *FunctionCallStatement) Pos() (int, int)      { return pos(f.Token) }
func (f *FunctionCallStatement) String() string       { return f.Call.String() }

// Return
type Return struct {
	Token token.Token // 'ret'
	Value Expression
}

func (r *Return) statementNode()       {}
func (r *Return) TokenLiteral() string { return r.Token.Literal }
func (r *Return) Pos() (int, int)      { return pos(r.Token) }
func (r *Return) String() string       { return "ret " + r.Value.String() }
