// Package opcode defines the tinyscript stack-machine instruction set.
// The compiler emits Instruction sequences; Render prints them, Link resolves
// their labels and Verify checks their operand stack discipline.
package opcode

import (
	"strconv"

	"github.com/zurustar/tinyscript/pkg/value"
)

// Cmd is an instruction mnemonic.
type Cmd string

// Instruction set. Unless noted, operands are popped from and results pushed
// onto the operand stack.
const (
	// Push pushes a constant.
	// Operand: value.Value
	Push Cmd = "PUSH"

	// Binary arithmetic. Pops b then a, pushes a op b.
	Add Cmd = "ADD"
	Sub Cmd = "SUB"
	Mul Cmd = "MUL"
	Div Cmd = "DIV"
	Mod Cmd = "MOD"
	Exp Cmd = "EXP"

	// Comparisons. Pop two, push a Bool.
	Lt Cmd = "LT"
	Gt Cmd = "GT"
	Le Cmd = "LE"
	Ge Cmd = "GE"
	Eq Cmd = "EQ"
	Ne Cmd = "NE"

	// Boolean operators. Pop two, push a Bool.
	And Cmd = "AND"
	Or  Cmd = "OR"
	Xor Cmd = "XOR"

	// Neg negates the Number on top of the stack.
	Neg Cmd = "NEG"

	// LoadGlobal pushes a global variable.
	// Operand: Global
	LoadGlobal Cmd = "LOAD_GLOBAL"

	// StoreGlobal pops into a global variable.
	// Operand: Global
	StoreGlobal Cmd = "STORE_GLOBAL"

	// LoadLocal pushes a copy of a frame-relative stack slot.
	// Operand: Slot
	LoadLocal Cmd = "LOAD_LOCAL"

	// StoreLocal pops into an existing slot. When the slot is the one the
	// popped value occupied, the value stays in place and becomes the local.
	// Operand: Slot
	StoreLocal Cmd = "STORE_LOCAL"

	// Pop discards the top of the stack. Scope exits emit one per local.
	Pop Cmd = "POP"

	// Jmp jumps unconditionally.
	// Operand: LabelName
	Jmp Cmd = "JMP"

	// Jmpz pops a value and jumps when it is falsy.
	// Operand: LabelName
	Jmpz Cmd = "JMPZ"

	// Call pops the arguments into a new frame and jumps to the function
	// label. RTS leaves the return value on the caller's stack.
	// Operand: Func
	Call Cmd = "CALL"

	// Rts pops the return value, tears down the frame and returns.
	Rts Cmd = "RTS"

	// Print and Println pop a value, decode escapes and write it.
	Print   Cmd = "PRINT"
	Println Cmd = "PRINTLN"

	// Label marks a jump target. It occupies no offset.
	// Operand: LabelName, or Func for a function entry
	Label Cmd = "LABEL"

	// Halt stops the program.
	Halt Cmd = "HALT"
)

// Instruction is a single emitted instruction.
type Instruction struct {
	Cmd Cmd

	// Operand is nil or one of value.Value, Slot, Global, LabelName and Func.
	Operand any

	// Depth is the block nesting depth a LABEL was emitted at. Only the
	// Nested rendering uses it.
	Depth int
}

// Slot is a frame-relative local stack slot.
type Slot int

func (s Slot) String() string { return strconv.Itoa(int(s)) }

// Global names a global variable.
type Global string

func (g Global) String() string { return string(g) }

// LabelName names a jump target.
type LabelName string

func (l LabelName) String() string { return string(l) }

// Func names a function. On a function entry LABEL, Arity is the parameter
// count; on a CALL it is the number of arguments pushed.
type Func struct {
	Name  string
	Arity int
}

func (f Func) String() string { return f.Name }

// Target returns the label name an instruction defines or refers to, if any.
func (i Instruction) Target() (string, bool) {
	switch op := i.Operand.(type) {
	case LabelName:
		return string(op), true
	case Func:
		return op.Name, true
	}
	return "", false
}

// String renders the instruction as a single line without the trailing
// newline, in the Flat style.
func (i Instruction) String() string {
	if i.Cmd == Label {
		name, _ := i.Target()
		return name + ":"
	}
	if i.Operand == nil {
		return "\t" + string(i.Cmd)
	}
	return "\t" + string(i.Cmd) + " " + operandString(i.Operand)
}

func operandString(op any) string {
	switch v := op.(type) {
	case value.Value:
		return v.Literal()
	case Slot:
		return v.String()
	case Global:
		return v.String()
	case LabelName:
		return v.String()
	case Func:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	default:
		return "?"
	}
}

// Emit constructors used by the compiler.

func New(cmd Cmd) Instruction { return Instruction{Cmd: cmd} }

func PushValue(v value.Value) Instruction { return Instruction{Cmd: Push, Operand: v} }

func With(cmd Cmd, operand any) Instruction { return Instruction{Cmd: cmd, Operand: operand} }

func LabelAt(name string, depth int) Instruction {
	return Instruction{Cmd: Label, Operand: LabelName(name), Depth: depth}
}

func FuncLabel(name string, arity, depth int) Instruction {
	return Instruction{Cmd: Label, Operand: Func{Name: name, Arity: arity}, Depth: depth}
}
