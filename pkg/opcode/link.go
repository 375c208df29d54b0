package opcode

import (
	"github.com/zurustar/tinyscript/pkg/diag"
)

// Function is an entry of a linked program's function table.
type Function struct {
	Name   string
	Offset int
	Arity  int
}

// Program is a linked instruction stream.
//
// Code keeps the labels as emitted. Offsets in Labels and Functions count
// only real instructions, i.e. positions in Instructions().
type Program struct {
	Code      []Instruction
	Labels    map[string]int
	Functions map[string]Function
}

// Link resolves every label to its offset and builds the function table.
// A label defined twice, a jump to an undefined label, a CALL to something
// that is not a function and an argument count that does not match the
// function's arity are errors.
func Link(code []Instruction) (*Program, error) {
	prog := &Program{
		Code:      code,
		Labels:    make(map[string]int),
		Functions: make(map[string]Function),
	}

	offset := 0
	for _, ins := range code {
		if ins.Cmd != Label {
			offset++
			continue
		}
		name, ok := ins.Target()
		if !ok {
			return nil, linkError("LABEL without a name")
		}
		if _, dup := prog.Labels[name]; dup {
			return nil, linkError("label %s defined more than once", name)
		}
		prog.Labels[name] = offset
		if fn, ok := ins.Operand.(Func); ok {
			prog.Functions[name] = Function{Name: name, Offset: offset, Arity: fn.Arity}
		}
	}

	for _, ins := range code {
		switch ins.Cmd {
		case Jmp, Jmpz:
			name, ok := ins.Target()
			if !ok {
				return nil, linkError("%s without a target", ins.Cmd)
			}
			if _, ok := prog.Labels[name]; !ok {
				return nil, linkError("%s to undefined label %s", ins.Cmd, name)
			}
		case Call:
			call, ok := ins.Operand.(Func)
			if !ok {
				return nil, linkError("CALL without a function operand")
			}
			fn, ok := prog.Functions[call.Name]
			if !ok {
				return nil, linkError("CALL to undefined function %s", call.Name)
			}
			if fn.Arity != call.Arity {
				return nil, linkError("CALL %s with %d argument(s), function takes %d", call.Name, call.Arity, fn.Arity)
			}
		}
	}

	return prog, nil
}

// Instructions returns Code without LABEL pseudo-instructions.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, 0, len(p.Code))
	for _, ins := range p.Code {
		if ins.Cmd != Label {
			out = append(out, ins)
		}
	}
	return out
}

func linkError(format string, args ...any) *diag.Error {
	return diag.New(diag.InternalError, 0, 0, "link: "+format, args...)
}
