package opcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Style selects how labels are laid out by Render.
type Style int

const (
	// Flat renders every label at column 0.
	Flat Style = iota
	// Nested indents a label two spaces per block nesting depth.
	Nested
)

// ParseStyle maps "flat" or "nested" to a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(s) {
	case "", "flat":
		return Flat, nil
	case "nested":
		return Nested, nil
	}
	return Flat, fmt.Errorf("unknown label style %q (want flat or nested)", s)
}

func (s Style) String() string {
	if s == Nested {
		return "nested"
	}
	return "flat"
}

// Render writes code in the textual listing format. A LABEL renders as its
// name followed by ':'; every other instruction renders as a tab, the
// mnemonic and, when present, a space and the operand.
//
//	.test_0:
//		LOAD_GLOBAL i
//		PUSH 3
//		LT
//		JMPZ .exit_1
func Render(w io.Writer, code []Instruction, style Style) error {
	bw := bufio.NewWriter(w)
	for _, ins := range code {
		if ins.Cmd == Label && style == Nested {
			bw.WriteString(strings.Repeat("  ", ins.Depth))
		}
		bw.WriteString(ins.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Format returns the rendering of code as a string.
func Format(code []Instruction, style Style) string {
	var sb strings.Builder
	_ = Render(&sb, code, style)
	return sb.String()
}
