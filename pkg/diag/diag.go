// Package diag defines the error type shared by every phase of tinyscript:
// the lexer and parser front end, the evaluator and the bytecode compiler.
//
// Every diagnostic is fatal. The first one raised aborts the running phase and
// is reported once with the offending name, operator or source position.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// Front end
	LexError   Kind = "LexError"
	ParseError Kind = "ParseError"

	// Shared by both backends
	NameError      Kind = "NameError"
	ArityError     Kind = "ArityError"
	TypeError      Kind = "TypeError"
	DivisionByZero Kind = "DivisionByZero"
	StackOverflow  Kind = "StackOverflow"

	// InternalError reports an AST node or instruction the backend does not know.
	InternalError Kind = "InternalError"
)

// Error is a positioned diagnostic.
type Error struct {
	Kind    Kind
	Message string

	// Line and Column are 1-indexed. Zero means the position is unknown.
	Line   int
	Column int

	// Context holds a rendered excerpt of the source around Line.
	Context string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var buf strings.Builder
	buf.WriteString(string(e.Kind))
	if e.Line > 0 {
		fmt.Fprintf(&buf, " at line %d, column %d", e.Line, e.Column)
	}
	buf.WriteString(": ")
	buf.WriteString(e.Message)
	if e.Context != "" {
		buf.WriteString("\n")
		buf.WriteString(e.Context)
	}
	return buf.String()
}

// New creates an Error of the given kind.
func New(kind Kind, line, column int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
	}
}

// NewNameError reports an unbound variable or function.
func NewNameError(line, column int, format string, args ...any) *Error {
	return New(NameError, line, column, format, args...)
}

// NewArityError reports a call whose argument count does not match the declaration.
func NewArityError(name string, want, got, line, column int) *Error {
	return New(ArityError, line, column, "function %s expects %d argument(s), got %d", name, want, got)
}

// NewTypeError reports an unsupported operand/operator combination.
func NewTypeError(line, column int, format string, args ...any) *Error {
	return New(TypeError, line, column, format, args...)
}

// WithContext returns a copy of e carrying a source excerpt around its line.
func (e *Error) WithContext(source string) *Error {
	cp := *e
	cp.Context = GenerateContext(source, e.Line, e.Column)
	return &cp
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) && de != nil {
		return de.Kind
	}
	return ""
}

// Is reports whether err carries a diagnostic of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// GenerateContext renders up to two lines before and after line, marking the
// error line with '>' and the column with '^'.
//
// Example output:
//
//	  2 | x := 1
//	  3 | y := 2
//	> 4 | z := x +
//	                 ^
//	  5 | println z
func GenerateContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	start := max(line-3, 0)
	end := min(line+2, len(lines))

	width := len(fmt.Sprintf("%d", end))

	var buf strings.Builder
	for i := start; i < end; i++ {
		n := i + 1
		text := strings.TrimRight(lines[i], "\r")
		if n != line {
			fmt.Fprintf(&buf, "  %*d | %s\n", width, n, text)
			continue
		}
		fmt.Fprintf(&buf, "> %*d | %s\n", width, n, text)
		indent := 2 + width + 3
		if column > 0 {
			indent += column - 1
		}
		fmt.Fprintf(&buf, "%s^\n", strings.Repeat(" ", indent))
	}
	return buf.String()
}
