// Package compiler lowers a tinyscript AST into a labeled stack-machine
// instruction stream.
package compiler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/zurustar/tinyscript/pkg/compiler/ast"
	"github.com/zurustar/tinyscript/pkg/compiler/symtab"
	"github.com/zurustar/tinyscript/pkg/compiler/token"
	"github.com/zurustar/tinyscript/pkg/diag"
	"github.com/zurustar/tinyscript/pkg/opcode"
	"github.com/zurustar/tinyscript/pkg/value"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Compiler) {
		if log != nil {
			c.log = log
		}
	}
}

// Compiler generates instructions from an AST. A Compiler compiles a single
// program; create a new one for each Compile call.
type Compiler struct {
	code    []opcode.Instruction
	syms    *symtab.Table
	globals map[string]bool
	labels  int
	calls   []pendingCall
	refs    []*ast.Identifier
	err     *diag.Error
	log     *slog.Logger
}

// pendingCall is a call site checked once every function is declared.
type pendingCall struct {
	call *ast.FunctionCall
}

// New creates a new Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		syms: symtab.New(),
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers program into instructions ending in HALT. The first error
// aborts compilation.
//
// Calls are checked after the whole program has been lowered, so a function
// may be called before its declaration.
func (c *Compiler) Compile(program *ast.Statements) ([]opcode.Instruction, error) {
	if program == nil {
		return nil, diag.New(diag.InternalError, 0, 0, "program is nil")
	}

	c.globals = topLevelNames(program)
	c.compileStatements(program)
	if c.err == nil {
		c.emit(opcode.New(opcode.Halt))
		c.checkDeferred()
	}
	if c.err != nil {
		return nil, c.err
	}

	c.log.Debug("compiled program",
		"instructions", len(c.code),
		"globals", len(c.syms.Globals()),
		"labels", c.labels)
	return c.code, nil
}

// topLevelNames collects the names assigned at depth 0. These are the
// program's globals, wherever they appear relative to a function body.
func topLevelNames(block *ast.Statements) map[string]bool {
	names := make(map[string]bool)
	var walk func(*ast.Statements)
	walk = func(b *ast.Statements) {
		for _, stmt := range b.List {
			switch s := stmt.(type) {
			case *ast.Assignment:
				names[s.Target.Name] = true
			case *ast.Statements:
				walk(s)
			}
		}
	}
	walk(block)
	return names
}

// failf records the first error.
func (c *Compiler) failf(kind diag.Kind, node ast.Node, format string, args ...any) {
	if c.err != nil {
		return
	}
	line, col := node.Pos()
	c.err = diag.New(kind, line, col, format, args...)
}

func (c *Compiler) emit(ins ...opcode.Instruction) {
	c.code = append(c.code, ins...)
}

// newLabelID numbers a construct. Its labels share the number, e.g.
// .else_3 and .exit_3.
func (c *Compiler) newLabelID() int {
	id := c.labels
	c.labels++
	return id
}

func labelName(kind string, id int) string {
	return fmt.Sprintf(".%s_%d", kind, id)
}

func (c *Compiler) jump(cmd opcode.Cmd, kind string, id int) {
	c.emit(opcode.With(cmd, opcode.LabelName(labelName(kind, id))))
}

func (c *Compiler) label(kind string, id int) {
	c.emit(opcode.LabelAt(labelName(kind, id), c.syms.Depth()))
}

// enterScope opens a block scope.
func (c *Compiler) enterScope() {
	c.syms.EnterScope()
}

// exitScope closes a block scope, emitting one POP per local it declared.
func (c *Compiler) exitScope() {
	c.syms.ExitScope(func(*symtab.Symbol) {
		c.emit(opcode.New(opcode.Pop))
	})
}

// ============================================================================
// Statement Compilation Methods
// ============================================================================

func (c *Compiler) compileStatements(block *ast.Statements) {
	for _, stmt := range block.List {
		if c.err != nil {
			return
		}
		c.compileStatement(stmt)
	}
}

// compileStatement dispatches on the statement type.
func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Statements:
		c.compileStatements(s)
	case *ast.Assignment:
		c.compileAssignment(s)
	case *ast.Print:
		c.compileExpression(s.Value)
		c.emit(opcode.New(opcode.Print))
	case *ast.Println:
		c.compileExpression(s.Value)
		c.emit(opcode.New(opcode.Println))
	case *ast.If:
		c.compileIf(s)
	case *ast.While:
		c.compileWhile(s)
	case *ast.For:
		c.compileFor(s)
	case *ast.FunctionDeclaration:
		c.compileFunctionDeclaration(s)
	case *ast.FunctionCallStatement:
		c.compileCall(s.Call)
		c.emit(opcode.New(opcode.Pop))
	case *ast.Return:
		c.compileReturn(s)
	default:
		c.failf(diag.InternalError, stmt, "unknown statement type: %T", stmt)
	}
}

// compileAssignment compiles the value and stores it. An unseen name is
// declared at the current depth after the value is on the stack, so a new
// local's slot is the slot the value already occupies.
func (c *Compiler) compileAssignment(a *ast.Assignment) {
	c.compileExpression(a.Value)
	if c.err != nil {
		return
	}
	c.store(a.Target)
}

// lookup resolves a read or write of id. A local of an enclosing function
// or block shadows any global of the same name, and compiled function
// bodies cannot reach it.
func (c *Compiler) lookup(id *ast.Identifier) (*symtab.Symbol, bool) {
	sym, ok := c.syms.Resolve(id.Name)
	if ok && !sym.Global() {
		return sym, true
	}
	if _, captured := c.syms.Enclosing(id.Name); captured {
		c.failf(diag.NameError, id, "cannot capture enclosing local %s in a compiled function", id.Name)
		return nil, false
	}
	return sym, ok
}

// store pops the value on top of the stack into target. Inside a function
// body, a name the program assigns at the top level is a global even when
// that assignment comes later in the source.
func (c *Compiler) store(target *ast.Identifier) {
	name := target.Name
	sym, ok := c.lookup(target)
	if c.err != nil {
		return
	}
	if !ok {
		if c.syms.InFrame() && c.globals[name] {
			c.emit(opcode.With(opcode.StoreGlobal, opcode.Global(name)))
			return
		}
		sym = c.syms.Declare(name)
	}
	if sym.Global() {
		c.emit(opcode.With(opcode.StoreGlobal, opcode.Global(name)))
		return
	}
	c.emit(opcode.With(opcode.StoreLocal, opcode.Slot(sym.Slot)))
}

// loadName pushes the variable called name, which must already be stored.
func (c *Compiler) loadName(name string) {
	if sym, ok := c.syms.Resolve(name); ok {
		c.load(sym)
		return
	}
	c.emit(opcode.With(opcode.LoadGlobal, opcode.Global(name)))
}

func (c *Compiler) load(sym *symtab.Symbol) {
	if sym.Global() {
		c.emit(opcode.With(opcode.LoadGlobal, opcode.Global(sym.Name)))
		return
	}
	c.emit(opcode.With(opcode.LoadLocal, opcode.Slot(sym.Slot)))
}

// compileIf lowers
//
//	test; JMPZ .else_N; then; POPs; JMP .exit_N
//	.else_N: else; POPs
//	.exit_N:
func (c *Compiler) compileIf(s *ast.If) {
	id := c.newLabelID()

	c.compileExpression(s.Test)
	c.jump(opcode.Jmpz, "else", id)

	c.enterScope()
	c.compileStatements(s.Then)
	c.exitScope()
	c.jump(opcode.Jmp, "exit", id)

	c.label("else", id)
	c.enterScope()
	if s.Else != nil {
		c.compileStatements(s.Else)
	}
	c.exitScope()
	c.label("exit", id)
}

// compileWhile lowers
//
//	.test_N: test; JMPZ .exit_N; body; POPs; JMP .test_N
//	.exit_N:
//
// The body is a fresh scope on every iteration.
func (c *Compiler) compileWhile(s *ast.While) {
	id := c.newLabelID()

	c.label("test", id)
	c.compileExpression(s.Test)
	c.jump(opcode.Jmpz, "exit", id)

	c.enterScope()
	c.compileStatements(s.Body)
	c.exitScope()
	c.jump(opcode.Jmp, "test", id)

	c.label("exit", id)
}

// compileFor lowers a counted loop. The loop variable, the end and step
// values and a private counter live in a scope around the loop; the body
// gets its own scope per iteration.
//
//	init; end -> .end; step -> .step; var -> .idx
//	.test_N:  .step > 0; JMPZ .down_N
//	          .idx < .end; JMP .cond_N
//	.down_N:  .idx > .end
//	.cond_N:  JMPZ .exit_N
//	          .idx -> var; body; POPs
//	          .idx + .step -> .idx; JMP .test_N
//	.exit_N:  POPs
func (c *Compiler) compileFor(s *ast.For) {
	id := c.newLabelID()

	c.enterScope()

	c.compileAssignment(s.Init)
	c.compileExpression(s.End)
	end := c.declareHidden(".end")
	c.compileExpression(s.Step)
	step := c.declareHidden(".step")
	if c.err != nil {
		return
	}
	c.loadName(s.Init.Target.Name)
	idx := c.declareHidden(".idx")

	c.label("test", id)
	c.load(step)
	c.emit(opcode.PushValue(value.Number(0)), opcode.New(opcode.Gt))
	c.jump(opcode.Jmpz, "down", id)
	c.load(idx)
	c.load(end)
	c.emit(opcode.New(opcode.Lt))
	c.jump(opcode.Jmp, "cond", id)
	c.label("down", id)
	c.load(idx)
	c.load(end)
	c.emit(opcode.New(opcode.Gt))
	c.label("cond", id)
	c.jump(opcode.Jmpz, "exit", id)

	c.load(idx)
	c.store(s.Init.Target)

	c.enterScope()
	c.compileStatements(s.Body)
	c.exitScope()

	c.load(idx)
	c.load(step)
	c.emit(opcode.New(opcode.Add))
	c.emit(opcode.With(opcode.StoreLocal, opcode.Slot(idx.Slot)))
	c.jump(opcode.Jmp, "test", id)

	c.label("exit", id)
	c.exitScope()
}

// declareHidden declares a compiler-internal local holding the value on
// top of the stack. Hidden names start with '.' and cannot clash with
// identifiers.
func (c *Compiler) declareHidden(name string) *symtab.Symbol {
	sym := c.syms.Declare(name)
	c.emit(opcode.With(opcode.StoreLocal, opcode.Slot(sym.Slot)))
	return sym
}

// compileFunctionDeclaration lowers
//
//	JMP .end_N; name: body; PUSH 0; RTS; .end_N:
//
// Parameters are the callee frame's slots 0..n-1. RTS discards the frame,
// so the body's locals need no POPs.
func (c *Compiler) compileFunctionDeclaration(fd *ast.FunctionDeclaration) {
	if _, ok := c.syms.DeclareFunction(fd.Name, len(fd.Params)); !ok {
		c.failf(diag.NameError, fd, "function %s is already declared", fd.Name)
		return
	}
	c.log.Debug("function declared", "name", fd.Name, "params", len(fd.Params))

	id := c.newLabelID()
	c.jump(opcode.Jmp, "end", id)
	c.emit(opcode.FuncLabel(fd.Name, len(fd.Params), c.syms.Depth()))

	c.syms.EnterFrame()
	for _, p := range fd.Params {
		c.syms.Declare(p.Name)
	}
	c.compileStatements(fd.Body)
	c.emit(opcode.PushValue(value.Zero), opcode.New(opcode.Rts))
	c.syms.ExitFrame()

	c.label("end", id)
}

// compileReturn returns from the enclosing function, or halts the program
// when used at the top level.
func (c *Compiler) compileReturn(r *ast.Return) {
	c.compileExpression(r.Value)
	if c.syms.InFrame() {
		c.emit(opcode.New(opcode.Rts))
		return
	}
	c.emit(opcode.New(opcode.Halt))
}

// ============================================================================
// Expression Compilation Methods
// ============================================================================

// compileExpression emits code leaving the expression's value on the stack.
func (c *Compiler) compileExpression(expr ast.Expression) {
	if c.err != nil {
		return
	}

	switch e := expr.(type) {
	case *ast.Number:
		c.emit(opcode.PushValue(value.Number(e.Value)))
	case *ast.String:
		c.emit(opcode.PushValue(value.String(e.Value)))
	case *ast.Bool:
		c.emit(opcode.PushValue(value.Bool(e.Value)))
	case *ast.Identifier:
		sym, ok := c.lookup(e)
		switch {
		case c.err != nil:
		case ok:
			c.load(sym)
		case c.syms.InFrame():
			// A function body may read a global assigned after the
			// declaration; checkDeferred verifies it exists.
			c.emit(opcode.With(opcode.LoadGlobal, opcode.Global(e.Name)))
			c.refs = append(c.refs, e)
		default:
			c.failf(diag.NameError, e, "name %s is not defined", e.Name)
		}
	case *ast.Grouping:
		c.compileExpression(e.Inner)
	case *ast.UnaryOp:
		c.compileUnary(e)
	case *ast.BinOp:
		c.compileBinary(e)
	case *ast.LogicalOp:
		c.compileLogical(e)
	case *ast.FunctionCall:
		c.compileCall(e)
	default:
		c.failf(diag.InternalError, expr, "unknown expression type: %T", expr)
	}
}

func (c *Compiler) compileUnary(u *ast.UnaryOp) {
	c.compileExpression(u.Operand)
	switch u.Op {
	case token.MINUS:
		c.emit(opcode.New(opcode.Neg))
	case token.PLUS:
	case token.TILDE:
		c.emit(opcode.PushValue(value.Number(1)), opcode.New(opcode.Xor))
	default:
		c.failf(diag.InternalError, u, "unknown unary operator %s", u.Token.Literal)
	}
}

var binaryOps = map[token.TokenType]opcode.Cmd{
	token.PLUS:     opcode.Add,
	token.MINUS:    opcode.Sub,
	token.ASTERISK: opcode.Mul,
	token.SLASH:    opcode.Div,
	token.PERCENT:  opcode.Mod,
	token.CARET:    opcode.Exp,
	token.LT:       opcode.Lt,
	token.GT:       opcode.Gt,
	token.LTE:      opcode.Le,
	token.GTE:      opcode.Ge,
	token.EQ:       opcode.Eq,
	token.NOT_EQ:   opcode.Ne,
}

func (c *Compiler) compileBinary(b *ast.BinOp) {
	cmd, ok := binaryOps[b.Op]
	if !ok {
		c.failf(diag.InternalError, b, "unknown binary operator %s", b.Token.Literal)
		return
	}
	c.compileExpression(b.Left)
	c.compileExpression(b.Right)
	c.emit(opcode.New(cmd))
}

// compileLogical lowers and/or so the right operand is evaluated only when
// needed. The right operand is coerced to Bool by combining it with the
// operator's identity.
//
//	a and b:  a; JMPZ .false_N; b; PUSH true; AND; JMP .done_N
//	          .false_N: PUSH false
//	          .done_N:
//	a or b:   a; JMPZ .rhs_N; PUSH true; JMP .done_N
//	          .rhs_N: b; PUSH false; OR
//	          .done_N:
func (c *Compiler) compileLogical(l *ast.LogicalOp) {
	id := c.newLabelID()
	c.compileExpression(l.Left)

	switch l.Op {
	case token.AND:
		c.jump(opcode.Jmpz, "false", id)
		c.compileExpression(l.Right)
		c.emit(opcode.PushValue(value.Bool(true)), opcode.New(opcode.And))
		c.jump(opcode.Jmp, "done", id)
		c.label("false", id)
		c.emit(opcode.PushValue(value.Bool(false)))
		c.label("done", id)
	case token.OR:
		c.jump(opcode.Jmpz, "rhs", id)
		c.emit(opcode.PushValue(value.Bool(true)))
		c.jump(opcode.Jmp, "done", id)
		c.label("rhs", id)
		c.compileExpression(l.Right)
		c.emit(opcode.PushValue(value.Bool(false)), opcode.New(opcode.Or))
		c.label("done", id)
	default:
		c.failf(diag.InternalError, l, "unknown logical operator %s", l.Token.Literal)
	}
}

// compileCall pushes the arguments left to right and calls the function's
// label. The callee is resolved later by checkDeferred.
func (c *Compiler) compileCall(call *ast.FunctionCall) {
	for _, arg := range call.Args {
		c.compileExpression(arg)
	}
	if c.err != nil {
		return
	}
	c.emit(opcode.With(opcode.Call, opcode.Func{Name: call.Name, Arity: len(call.Args)}))
	c.calls = append(c.calls, pendingCall{call: call})
}

// checkDeferred reports the first global read by a function body that the
// program never assigns, then the first call to an undeclared function or
// with the wrong number of arguments.
func (c *Compiler) checkDeferred() {
	for _, ref := range c.refs {
		if _, ok := c.syms.Global(ref.Name); !ok {
			c.failf(diag.NameError, ref, "name %s is not defined", ref.Name)
			return
		}
	}
	for _, pc := range c.calls {
		fn, ok := c.syms.Function(pc.call.Name)
		if !ok {
			c.failf(diag.NameError, pc.call, "function %s is not defined", pc.call.Name)
			return
		}
		if fn.Slot != len(pc.call.Args) {
			line, col := pc.call.Pos()
			c.err = diag.NewArityError(pc.call.Name, fn.Slot, len(pc.call.Args), line, col)
			return
		}
	}
}
