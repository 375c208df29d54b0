// Package symtab resolves names to storage for the bytecode compiler.
//
// Depth 0 is the global scope: its variables live in a global table and are
// addressed by name. Every deeper scope allocates locals on the runtime
// operand stack, so a local's slot is its frame-relative stack position and
// locals must be released in strict reverse order when their scope closes.
package symtab

import "fmt"

// Kind distinguishes variables from functions.
type Kind int

const (
	Variable Kind = iota
	Function
)

func (k Kind) String() string {
	if k == Function {
		return "Function"
	}
	return "Variable"
}

// Symbol is a resolved name.
type Symbol struct {
	Name  string
	Kind  Kind
	Depth int

	// Slot is the dense global index for globals, the frame-relative stack
	// position for locals and the parameter count for functions.
	Slot int
}

// Global reports whether s lives in the global table.
func (s *Symbol) Global() bool { return s.Kind == Variable && s.Depth == 0 }

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s depth=%d slot=%d", s.Kind, s.Name, s.Depth, s.Slot)
}

type frame struct {
	base  int
	depth int
}

// Table is the compiler's scope state. The zero value is not usable; call New.
type Table struct {
	globals     map[string]*Symbol
	globalOrder []*Symbol

	// locals is the live local stack across all open frames.
	locals    []*Symbol
	frameBase int
	frames    []frame

	depth     int
	functions map[string]*Symbol
}

// New returns an empty table at depth 0.
func New() *Table {
	return &Table{
		globals:   make(map[string]*Symbol),
		functions: make(map[string]*Symbol),
	}
}

// Depth returns the current scope depth.
func (t *Table) Depth() int { return t.depth }

// Height returns the number of live locals in the current frame, which is
// the operand stack height at a statement boundary.
func (t *Table) Height() int { return len(t.locals) - t.frameBase }

// Resolve finds name among the current frame's locals, innermost first, and
// then among the globals. Locals of enclosing frames are not visible.
func (t *Table) Resolve(name string) (*Symbol, bool) {
	for i := len(t.locals) - 1; i >= t.frameBase; i-- {
		if t.locals[i].Name == name {
			return t.locals[i], true
		}
	}
	sym, ok := t.globals[name]
	return sym, ok
}

// Enclosing finds name among the live locals outside the current frame:
// locals of enclosing functions and of the blocks around the declaration.
func (t *Table) Enclosing(name string) (*Symbol, bool) {
	for i := t.frameBase - 1; i >= 0; i-- {
		if t.locals[i].Name == name {
			return t.locals[i], true
		}
	}
	return nil, false
}

// Declare binds name at the current depth and returns its symbol. It does
// not check for an existing binding; callers resolve first.
func (t *Table) Declare(name string) *Symbol {
	if t.depth == 0 {
		sym := &Symbol{Name: name, Kind: Variable, Depth: 0, Slot: len(t.globalOrder)}
		t.globals[name] = sym
		t.globalOrder = append(t.globalOrder, sym)
		return sym
	}
	sym := &Symbol{Name: name, Kind: Variable, Depth: t.depth, Slot: t.Height()}
	t.locals = append(t.locals, sym)
	return sym
}

// Global looks up a global variable.
func (t *Table) Global(name string) (*Symbol, bool) {
	sym, ok := t.globals[name]
	return sym, ok
}

// Globals returns the global variables in declaration order.
func (t *Table) Globals() []*Symbol {
	out := make([]*Symbol, len(t.globalOrder))
	copy(out, t.globalOrder)
	return out
}

// EnterScope opens a nested block scope.
func (t *Table) EnterScope() { t.depth++ }

// ExitScope closes the current scope. cleanup is called once per local
// declared at this depth, most recent first, before the local is released.
func (t *Table) ExitScope(cleanup func(*Symbol)) {
	for len(t.locals) > t.frameBase {
		top := t.locals[len(t.locals)-1]
		if top.Depth != t.depth {
			break
		}
		if cleanup != nil {
			cleanup(top)
		}
		t.locals = t.locals[:len(t.locals)-1]
	}
	t.depth--
}

// EnterFrame opens a function frame. Slots restart at 0 and the enclosing
// frame's locals become invisible until ExitFrame.
func (t *Table) EnterFrame() {
	t.frames = append(t.frames, frame{base: t.frameBase, depth: t.depth})
	t.frameBase = len(t.locals)
	t.depth++
}

// ExitFrame closes the current function frame and releases all of its
// locals without cleanup; returning from the function discards the frame.
func (t *Table) ExitFrame() {
	if len(t.frames) == 0 {
		return
	}
	saved := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	t.locals = t.locals[:t.frameBase]
	t.frameBase = saved.base
	t.depth = saved.depth
}

// InFrame reports whether a function frame is open.
func (t *Table) InFrame() bool { return len(t.frames) > 0 }

// DeclareFunction registers a function. It returns false when the name is
// already declared.
func (t *Table) DeclareFunction(name string, arity int) (*Symbol, bool) {
	if _, exists := t.functions[name]; exists {
		return nil, false
	}
	sym := &Symbol{Name: name, Kind: Function, Depth: t.depth, Slot: arity}
	t.functions[name] = sym
	return sym, true
}

// Function looks up a declared function.
func (t *Table) Function(name string) (*Symbol, bool) {
	sym, ok := t.functions[name]
	return sym, ok
}
