// Package interpreter evaluates a tinyscript AST directly.
//
// The evaluator walks the tree with a chain of Environment frames. Blocks of
// if statements run in a fresh child frame, loops in one child frame shared
// by every iteration, and calls in a child of the frame the function was
// declared in.
package interpreter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zurustar/tinyscript/pkg/compiler/ast"
	"github.com/zurustar/tinyscript/pkg/compiler/token"
	"github.com/zurustar/tinyscript/pkg/diag"
	"github.com/zurustar/tinyscript/pkg/value"
)

// Result is the outcome of evaluating a node. Return is set when a ret
// statement was executed and the enclosing blocks must stop.
type Result struct {
	Value  value.Value
	Return bool
}

var zero = Result{Value: value.Zero}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets the writer print and println write to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) {
		in.out = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(in *Interpreter) {
		in.log = log
	}
}

// WithMaxCallDepth limits the number of nested calls. Exceeding it is a
// StackOverflow error. Zero means no limit.
func WithMaxCallDepth(n int) Option {
	return func(in *Interpreter) {
		in.maxDepth = n
	}
}

// Interpreter evaluates programs. It is not safe for concurrent use.
type Interpreter struct {
	out      io.Writer
	log      *slog.Logger
	maxDepth int

	depth   int
	globals *Environment
}

// New creates an Interpreter with an empty global environment.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		out:     os.Stdout,
		log:     slog.Default(),
		globals: NewEnvironment(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Globals returns the root environment programs run in.
func (in *Interpreter) Globals() *Environment { return in.globals }

// Run evaluates program in the global environment. The result is the value
// of a top-level ret, or Number 0.
func (in *Interpreter) Run(program *ast.Statements) (value.Value, error) {
	if program == nil {
		return value.Value{}, diag.New(diag.InternalError, 0, 0, "program is nil")
	}
	res, err := in.Eval(program, in.globals)
	if err != nil {
		return value.Value{}, err
	}
	in.log.Debug("program finished", "result", res.Value.Literal(), "returned", res.Return)
	return res.Value, nil
}

// Eval evaluates node in env. The first error aborts evaluation; output
// already written stays written.
func (in *Interpreter) Eval(node ast.Node, env *Environment) (Result, error) {
	switch n := node.(type) {
	case *ast.Statements:
		return in.evalStatements(n, env)
	case *ast.Assignment:
		v, err := in.evalExpr(n.Value, env)
		if err != nil {
			return Result{}, err
		}
		env.Set(n.Target.Name, v)
		return zero, nil
	case *ast.Print:
		return in.evalPrint(n.Value, env, false)
	case *ast.Println:
		return in.evalPrint(n.Value, env, true)
	case *ast.If:
		return in.evalIf(n, env)
	case *ast.While:
		return in.evalWhile(n, env)
	case *ast.For:
		return in.evalFor(n, env)
	case *ast.FunctionDeclaration:
		return in.evalFunctionDeclaration(n, env)
	case *ast.FunctionCallStatement:
		if _, err := in.evalCall(n.Call, env); err != nil {
			return Result{}, err
		}
		return zero, nil
	case *ast.Return:
		v, err := in.evalExpr(n.Value, env)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v, Return: true}, nil
	case ast.Expression:
		v, err := in.evalExpr(n, env)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v}, nil
	}
	return Result{}, internalError(node)
}

func (in *Interpreter) evalStatements(block *ast.Statements, env *Environment) (Result, error) {
	for _, stmt := range block.List {
		res, err := in.Eval(stmt, env)
		if err != nil {
			return Result{}, err
		}
		if res.Return {
			return res, nil
		}
	}
	return zero, nil
}

func (in *Interpreter) evalPrint(expr ast.Expression, env *Environment, newline bool) (Result, error) {
	v, err := in.evalExpr(expr, env)
	if err != nil {
		return Result{}, err
	}
	text := value.Unescape(v.String())
	if newline {
		text += "\n"
	}
	if _, err := io.WriteString(in.out, text); err != nil {
		return Result{}, fmt.Errorf("failed to write output: %w", err)
	}
	return zero, nil
}

func (in *Interpreter) evalIf(s *ast.If, env *Environment) (Result, error) {
	test, err := in.evalExpr(s.Test, env)
	if err != nil {
		return Result{}, err
	}
	if value.Truthy(test) {
		return in.Eval(s.Then, env.Child())
	}
	if s.Else != nil {
		return in.Eval(s.Else, env.Child())
	}
	return zero, nil
}

// evalWhile runs the test and the body in one frame for the whole loop, so
// a variable created in the body survives into the next iteration.
func (in *Interpreter) evalWhile(s *ast.While, env *Environment) (Result, error) {
	loop := env.Child()
	for {
		test, err := in.evalExpr(s.Test, loop)
		if err != nil {
			return Result{}, err
		}
		if !value.Truthy(test) {
			return zero, nil
		}
		res, err := in.Eval(s.Body, loop)
		if err != nil {
			return Result{}, err
		}
		if res.Return {
			return res, nil
		}
	}
}

// evalFor runs a half-open counted loop. The bounds are evaluated once.
// The counter starts at the loop variable's value after the initializer and
// is written to the loop variable before each iteration, so assignments to
// the variable in the body do not change the iteration count.
func (in *Interpreter) evalFor(s *ast.For, env *Environment) (Result, error) {
	loop := env.Child()
	if _, err := in.Eval(s.Init, loop); err != nil {
		return Result{}, err
	}

	end, err := in.evalNumber(s.End, loop, "for end")
	if err != nil {
		return Result{}, err
	}
	step, err := in.evalNumber(s.Step, loop, "for step")
	if err != nil {
		return Result{}, err
	}
	if step == 0 {
		line, col := s.Step.Pos()
		return Result{}, diag.NewTypeError(line, col, "for step must not be zero")
	}

	name := s.Init.Target.Name
	start, _ := loop.Get(name)
	if !start.IsNumber() {
		line, col := s.Init.Pos()
		return Result{}, diag.NewTypeError(line, col, "for start must be a Number, got %s", start.Kind())
	}

	for i := start.AsNumber(); (step > 0 && i < end) || (step < 0 && i > end); i += step {
		loop.Set(name, value.Number(i))
		res, err := in.Eval(s.Body, loop)
		if err != nil {
			return Result{}, err
		}
		if res.Return {
			return res, nil
		}
	}
	return zero, nil
}

func (in *Interpreter) evalNumber(expr ast.Expression, env *Environment, what string) (float64, error) {
	v, err := in.evalExpr(expr, env)
	if err != nil {
		return 0, err
	}
	if !v.IsNumber() {
		line, col := expr.Pos()
		return 0, diag.NewTypeError(line, col, "%s must be a Number, got %s", what, v.Kind())
	}
	return v.AsNumber(), nil
}

// evalFunctionDeclaration registers fd in env. Declaring a different
// function under a name that is already visible is an error; evaluating the
// same declaration again, e.g. in a loop body, is not.
func (in *Interpreter) evalFunctionDeclaration(fd *ast.FunctionDeclaration, env *Environment) (Result, error) {
	if prev, ok := env.LookupFunction(fd.Name); ok && prev.Decl != fd {
		line, col := fd.Pos()
		return Result{}, diag.NewNameError(line, col, "function %s is already declared", fd.Name)
	}
	env.DeclareFunction(fd)
	in.log.Debug("declared function", "name", fd.Name, "arity", len(fd.Params))
	return zero, nil
}

func (in *Interpreter) evalExpr(expr ast.Expression, env *Environment) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.Number:
		return value.Number(e.Value), nil
	case *ast.String:
		return value.String(e.Value), nil
	case *ast.Bool:
		return value.Bool(e.Value), nil
	case *ast.Identifier:
		v, ok := env.Get(e.Name)
		if !ok {
			line, col := e.Pos()
			return value.Value{}, diag.NewNameError(line, col, "name %s is not defined", e.Name)
		}
		return v, nil
	case *ast.Grouping:
		return in.evalExpr(e.Inner, env)
	case *ast.UnaryOp:
		return in.evalUnary(e, env)
	case *ast.BinOp:
		return in.evalBinary(e, env)
	case *ast.LogicalOp:
		return in.evalLogical(e, env)
	case *ast.FunctionCall:
		return in.evalCall(e, env)
	}
	return value.Value{}, internalError(expr)
}

var unaryOps = map[token.TokenType]value.Op{
	token.MINUS: value.Sub,
	token.PLUS:  value.Add,
	token.TILDE: value.Not,
}

func (in *Interpreter) evalUnary(u *ast.UnaryOp, env *Environment) (value.Value, error) {
	op, ok := unaryOps[u.Op]
	if !ok {
		return value.Value{}, internalError(u)
	}
	v, err := in.evalExpr(u.Operand, env)
	if err != nil {
		return value.Value{}, err
	}
	res, err := value.Unary(op, v)
	if err != nil {
		return value.Value{}, at(err, u)
	}
	return res, nil
}

var binaryOps = map[token.TokenType]value.Op{
	token.PLUS:     value.Add,
	token.MINUS:    value.Sub,
	token.ASTERISK: value.Mul,
	token.SLASH:    value.Div,
	token.PERCENT:  value.Mod,
	token.CARET:    value.Exp,
	token.LT:       value.Lt,
	token.GT:       value.Gt,
	token.LTE:      value.Le,
	token.GTE:      value.Ge,
	token.EQ:       value.Eq,
	token.NOT_EQ:   value.Ne,
}

func (in *Interpreter) evalBinary(b *ast.BinOp, env *Environment) (value.Value, error) {
	op, ok := binaryOps[b.Op]
	if !ok {
		return value.Value{}, internalError(b)
	}
	l, err := in.evalExpr(b.Left, env)
	if err != nil {
		return value.Value{}, err
	}
	r, err := in.evalExpr(b.Right, env)
	if err != nil {
		return value.Value{}, err
	}
	res, err := value.Binary(op, l, r)
	if err != nil {
		return value.Value{}, at(err, b)
	}
	return res, nil
}

// evalLogical short-circuits: the right operand is evaluated only when the
// left one does not decide the result, and is then coerced to Bool.
func (in *Interpreter) evalLogical(l *ast.LogicalOp, env *Environment) (value.Value, error) {
	left, err := in.evalExpr(l.Left, env)
	if err != nil {
		return value.Value{}, err
	}
	switch l.Op {
	case token.OR:
		if value.Truthy(left) {
			return value.Bool(true), nil
		}
	case token.AND:
		if !value.Truthy(left) {
			return value.Bool(false), nil
		}
	default:
		return value.Value{}, internalError(l)
	}
	right, err := in.evalExpr(l.Right, env)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(value.Truthy(right)), nil
}

func (in *Interpreter) evalCall(call *ast.FunctionCall, env *Environment) (value.Value, error) {
	line, col := call.Pos()

	fn, ok := env.LookupFunction(call.Name)
	if !ok {
		return value.Value{}, diag.NewNameError(line, col, "function %s is not defined", call.Name)
	}
	if fn.Arity() != len(call.Args) {
		return value.Value{}, diag.NewArityError(call.Name, fn.Arity(), len(call.Args), line, col)
	}

	args := make([]value.Value, len(call.Args))
	for i, arg := range call.Args {
		v, err := in.evalExpr(arg, env)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}

	if in.maxDepth > 0 && in.depth >= in.maxDepth {
		return value.Value{}, diag.New(diag.StackOverflow, line, col,
			"maximum call depth %d exceeded calling %s", in.maxDepth, call.Name)
	}

	frame := fn.Env.Child()
	for i, param := range fn.Decl.Params {
		frame.SetLocal(param.Name, args[i])
	}

	in.depth++
	defer func() { in.depth-- }()

	res, err := in.Eval(fn.Decl.Body, frame)
	if err != nil {
		return value.Value{}, err
	}
	return res.Value, nil
}

// at sets the position of an unpositioned diagnostic to node's.
func at(err error, node ast.Node) error {
	var de *diag.Error
	if !errors.As(err, &de) || de.Line != 0 {
		return err
	}
	cp := *de
	cp.Line, cp.Column = node.Pos()
	return &cp
}

func internalError(node ast.Node) error {
	if node == nil {
		return diag.New(diag.InternalError, 0, 0, "unknown node: nil")
	}
	line, col := node.Pos()
	return diag.New(diag.InternalError, line, col, "unknown node type: %T", node)
}
