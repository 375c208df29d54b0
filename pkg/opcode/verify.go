package opcode

import (
	"github.com/zurustar/tinyscript/pkg/diag"
)

// Verify checks the operand stack discipline of a linked program by abstract
// interpretation of stack heights.
//
// The top level starts at height 0 and every function entry at its arity.
// Heights are frame-relative, so a local's slot is its stack position. Each
// reachable instruction must be reached with a single height, no instruction
// may pop from an empty stack, LOAD_LOCAL must name a live slot and
// STORE_LOCAL must name a live slot or the slot of the value it pops. Every
// path must end in RTS or HALT.
func Verify(prog *Program) error {
	code := prog.Code

	index := make(map[string]int, len(prog.Labels))
	for i, ins := range code {
		if ins.Cmd == Label {
			name, _ := ins.Target()
			index[name] = i
		}
	}

	heights := make([]int, len(code))
	for i := range heights {
		heights[i] = -1
	}

	type state struct{ pc, height int }
	var work []state

	reach := func(from, pc, h int) error {
		if pc >= len(code) {
			return verifyError(from, code, "execution falls off the end of the program")
		}
		if heights[pc] == -1 {
			heights[pc] = h
			work = append(work, state{pc, h})
			return nil
		}
		if heights[pc] != h {
			return verifyError(pc, code, "stack height %d does not match %d at join point", h, heights[pc])
		}
		return nil
	}

	if len(code) == 0 {
		return nil
	}
	if err := reach(0, 0, 0); err != nil {
		return err
	}
	for _, fn := range prog.Functions {
		if err := reach(index[fn.Name], index[fn.Name], fn.Arity); err != nil {
			return err
		}
	}

	for len(work) > 0 {
		s := work[len(work)-1]
		work = work[:len(work)-1]
		ins := code[s.pc]
		h := s.height

		need := func(n int) error {
			if h < n {
				return verifyError(s.pc, code, "stack underflow: %s needs %d value(s), height is %d", ins.Cmd, n, h)
			}
			return nil
		}

		var err error
		switch ins.Cmd {
		case Label:
			err = reach(s.pc, s.pc+1, h)

		case Push, LoadGlobal:
			err = reach(s.pc, s.pc+1, h+1)

		case LoadLocal:
			slot, _ := ins.Operand.(Slot)
			if int(slot) < 0 || int(slot) >= h {
				err = verifyError(s.pc, code, "LOAD_LOCAL %d outside the frame (height %d)", slot, h)
				break
			}
			err = reach(s.pc, s.pc+1, h+1)

		case StoreLocal:
			if err = need(1); err != nil {
				break
			}
			slot, _ := ins.Operand.(Slot)
			switch {
			case int(slot) == h-1:
				err = reach(s.pc, s.pc+1, h)
			case int(slot) >= 0 && int(slot) < h-1:
				err = reach(s.pc, s.pc+1, h-1)
			default:
				err = verifyError(s.pc, code, "STORE_LOCAL %d outside the frame (height %d)", slot, h)
			}

		case StoreGlobal, Pop, Print, Println:
			if err = need(1); err == nil {
				err = reach(s.pc, s.pc+1, h-1)
			}

		case Add, Sub, Mul, Div, Mod, Exp, Lt, Gt, Le, Ge, Eq, Ne, And, Or, Xor:
			if err = need(2); err == nil {
				err = reach(s.pc, s.pc+1, h-1)
			}

		case Neg:
			if err = need(1); err == nil {
				err = reach(s.pc, s.pc+1, h)
			}

		case Jmp:
			name, _ := ins.Target()
			err = reach(s.pc, index[name], h)

		case Jmpz:
			if err = need(1); err != nil {
				break
			}
			name, _ := ins.Target()
			if err = reach(s.pc, index[name], h-1); err == nil {
				err = reach(s.pc, s.pc+1, h-1)
			}

		case Call:
			fn, _ := ins.Operand.(Func)
			if err = need(fn.Arity); err == nil {
				err = reach(s.pc, s.pc+1, h-fn.Arity+1)
			}

		case Rts:
			err = need(1)

		case Halt:

		default:
			err = verifyError(s.pc, code, "unknown instruction %q", ins.Cmd)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func verifyError(pc int, code []Instruction, format string, args ...any) *diag.Error {
	e := diag.New(diag.InternalError, 0, 0, "verify: "+format, args...)
	if pc >= 0 && pc < len(code) {
		e.Message += " (at " + code[pc].String() + ")"
	}
	return e
}
