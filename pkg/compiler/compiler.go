// Package compiler provides the compilation pipeline for tinyscript sources.
// It transforms source code into a linked instruction stream through four
// phases:
//  1. Lexer: Tokenization
//  2. Parser: AST generation
//  3. Compiler: instruction generation
//  4. Link and Verify: label resolution and stack-height checking
//
// This package provides a unified API:
//   - Parse: parses source code into an AST
//   - Compile: compiles source code into a linked Program
//   - CompileWithOptions: compiles with additional options
//   - CompileFile: compiles a file, decoding it first
//   - CompileFileWithOptions: compiles a file with additional options
//
// Errors that carry a source position are returned with an excerpt of the
// source around the offending line.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zurustar/tinyscript/pkg/compiler/ast"
	"github.com/zurustar/tinyscript/pkg/compiler/compiler"
	"github.com/zurustar/tinyscript/pkg/compiler/lexer"
	"github.com/zurustar/tinyscript/pkg/compiler/parser"
	"github.com/zurustar/tinyscript/pkg/diag"
	"github.com/zurustar/tinyscript/pkg/opcode"
	"github.com/zurustar/tinyscript/pkg/script"
)

// CompileOptions provides configuration options for compilation.
type CompileOptions struct {
	// Logger receives debug output from the code generator. Nil uses slog.Default().
	Logger *slog.Logger

	// Encoding names the source file encoding for the file variants.
	// Empty means script.Auto.
	Encoding string

	// SkipVerify links the program without the stack-height check.
	SkipVerify bool
}

// Parse runs the lexer and parser over source.
func Parse(source string) (*ast.Statements, error) {
	program, err := parser.New(lexer.New(source)).ParseProgram()
	if err != nil {
		return nil, WithSourceContext(err, source)
	}
	return program, nil
}

// ParseFile loads path and parses it. The decoded source is returned along
// with the AST so that later phases can render error context.
func ParseFile(path, encoding string) (*ast.Statements, string, error) {
	s, err := script.NewLoader(encoding).Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", path, err)
	}
	program, err := Parse(s.Content)
	if err != nil {
		return nil, s.Content, fmt.Errorf("%s: %w", s.FileName, err)
	}
	return program, s.Content, nil
}

// Compile compiles source code to a linked Program.
// It chains the lexer → parser → compiler → link → verify pipeline and
// stops at the first error.
func Compile(source string) (*opcode.Program, error) {
	return CompileWithOptions(source, CompileOptions{})
}

// CompileWithOptions compiles source code with the given options.
func CompileWithOptions(source string, opts CompileOptions) (*opcode.Program, error) {
	program, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return CompileAST(program, source, opts)
}

// CompileAST generates, links and verifies code for an already parsed
// program. source is only used for error context and may be empty.
func CompileAST(program *ast.Statements, source string, opts CompileOptions) (*opcode.Program, error) {
	var copts []compiler.Option
	if opts.Logger != nil {
		copts = append(copts, compiler.WithLogger(opts.Logger))
	}

	code, err := compiler.New(copts...).Compile(program)
	if err != nil {
		return nil, WithSourceContext(err, source)
	}

	prog, err := opcode.Link(code)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}

	if !opts.SkipVerify {
		if err := opcode.Verify(prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// CompileFile compiles a file to a linked Program. The file is decoded with
// BOM sniffing and read as UTF-8 otherwise.
func CompileFile(path string) (*opcode.Program, error) {
	return CompileFileWithOptions(path, CompileOptions{})
}

// CompileFileWithOptions compiles a file with the given options.
func CompileFileWithOptions(path string, opts CompileOptions) (*opcode.Program, error) {
	program, source, err := ParseFile(path, opts.Encoding)
	if err != nil {
		return nil, err
	}
	prog, err := CompileAST(program, source, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// WithSourceContext attaches a source excerpt to the first positioned
// diagnostic in err's chain. Other errors are returned unchanged.
func WithSourceContext(err error, source string) error {
	var de *diag.Error
	if source == "" || !errors.As(err, &de) || de == nil || de.Line == 0 || de.Context != "" {
		return err
	}
	if err == error(de) {
		return de.WithContext(source)
	}
	// Keep the wrapping text and replace the diagnostic with its annotated copy.
	return &contextError{err: err, diag: de.WithContext(source)}
}

// contextError keeps an outer wrapping chain while exposing the annotated
// diagnostic to errors.As.
type contextError struct {
	err  error
	diag *diag.Error
}

func (e *contextError) Error() string {
	return e.err.Error() + "\n" + e.diag.Context
}

func (e *contextError) Unwrap() []error { return []error{e.diag, e.err} }
